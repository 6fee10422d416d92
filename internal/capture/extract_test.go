package capture

import "testing"

func TestExtractOperands(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		actual   any
		expected any
	}{
		{
			name:     "subscript equality strips quotes",
			message:  "assert data['firstName'] == 'Leanne Graham'",
			actual:   "data['firstName']",
			expected: "Leanne Graham",
		},
		{
			name:     "length equality yields integer",
			message:  "assert len(data) == 12",
			actual:   "len(data)",
			expected: 12,
		},
		{
			name:     "membership",
			message:  "assert 'id' in data",
			actual:   nil,
			expected: "id",
		},
		{
			name:     "generic equality",
			message:  "assert 200 == 201",
			actual:   "200",
			expected: "201",
		},
		{
			name:     "no match",
			message:  "KeyError: 'firstName'",
			actual:   nil,
			expected: nil,
		},
		{
			name:     "double quoted subscript",
			message:  `assert user["email"] == "a@b.com"`,
			actual:   `user["email"]`,
			expected: "a@b.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, expected := ExtractOperands(tt.message)
			if actual != tt.actual {
				t.Errorf("actual = %#v, want %#v", actual, tt.actual)
			}
			if expected != tt.expected {
				t.Errorf("expected = %#v, want %#v", expected, tt.expected)
			}
		})
	}
}

func TestExtractOperands_Idempotent(t *testing.T) {
	msg := "assert data['firstName'] == 'Leanne Graham'"
	a1, e1 := ExtractOperands(msg)
	a2, e2 := ExtractOperands(msg)
	if a1 != a2 || e1 != e2 {
		t.Errorf("extraction not idempotent: (%v,%v) vs (%v,%v)", a1, e1, a2, e2)
	}
}

func TestExtractFromTraceback(t *testing.T) {
	tb := `Traceback (most recent call last):
  File "tests/api/test_users.py", line 23, in test_get_user_by_id
    assert len(data) == 12
AssertionError`

	actual, expected := ExtractFromTraceback(tb)
	if actual != "len(data)" {
		t.Errorf("actual = %#v, want len(data)", actual)
	}
	if expected != 12 {
		t.Errorf("expected = %#v, want 12", expected)
	}
}
