package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParser_FindTestCases(t *testing.T) {
	parser := NewParser()

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test_users.py")
	content := `"""User endpoint tests."""
import httpx

BASE_URL = "https://jsonplaceholder.typicode.com"


def test_get_all_users(client):
    response = client.get(f"{BASE_URL}/users")
    assert response.status_code == 200


async def test_create_user(client):
    response = client.post(f"{BASE_URL}/users", json={"name": "x"})
    assert response.status_code == 201


def helper_build_payload():
    return {}


class TestUserRoles:
    def test_role_assignment(self):
        assert True
`
	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cases, err := parser.FindTestCases(testFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"test_create_user", "test_get_all_users", "test_role_assignment"}
	if len(cases) != len(expected) {
		t.Fatalf("expected %d test cases, got %d: %v", len(expected), len(cases), cases)
	}
	for i, name := range expected {
		if cases[i] != name {
			t.Errorf("case %d: expected %s, got %s", i, name, cases[i])
		}
	}
}

func TestParser_FindTestCases_MissingFile(t *testing.T) {
	parser := NewParser()
	if _, err := parser.FindTestCases("/no/such/file.py"); err == nil {
		t.Error("expected error for missing file")
	}
}
