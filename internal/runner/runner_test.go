package runner

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"apiheal/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	return cfg
}

func TestRunner_ExchangeLogPath(t *testing.T) {
	cfg := testConfig(t)
	r := NewRunner(cfg)

	got := r.ExchangeLogPath("tests/api/test_users.py")
	want := filepath.Join(cfg.GetExchangeDir(), "test_users.jsonl")
	if got != want {
		t.Errorf("ExchangeLogPath() = %q, want %q", got, want)
	}

	if got := r.ExchangeLogPath("/abs/path/test_posts.py"); filepath.Base(got) != "test_posts.jsonl" {
		t.Errorf("ExchangeLogPath() = %q, want base test_posts.jsonl", got)
	}
}

func TestRunner_RunSingle(t *testing.T) {
	t.Run("passing test", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.RunnerCommand = "true"
		r := NewRunner(cfg)

		result := r.RunSingle(context.Background(), "tests/api/test_users.py::test_get_all_users")
		if !result.Passed {
			t.Errorf("expected pass, got error %q", result.Error)
		}
		if result.TestID != "tests/api/test_users.py::test_get_all_users" {
			t.Errorf("unexpected test id %q", result.TestID)
		}
	})

	t.Run("failing test is not an execution error", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.RunnerCommand = "false"
		r := NewRunner(cfg)

		result := r.RunSingle(context.Background(), "tests/api/test_users.py::test_get_user_by_id")
		if result.Passed {
			t.Error("expected failure")
		}
		if result.Error != "" {
			t.Errorf("exit status must not be reported as execution error, got %q", result.Error)
		}
	})

	t.Run("missing runner reports execution error", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.RunnerCommand = "definitely-not-a-real-runner"
		r := NewRunner(cfg)

		result := r.RunSingle(context.Background(), "tests/api/test_users.py::test_create_user")
		if result.Passed {
			t.Error("expected failure")
		}
		if result.Error == "" {
			t.Error("expected execution error for unstartable runner")
		}
	})
}

func TestRunner_RunFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.RunnerCommand = "true"
	r := NewRunner(cfg)

	result := r.RunFile("tests/api/test_users.py", 1)
	if !result.Success {
		t.Errorf("expected success, got %v", result.Error)
	}
	if !strings.HasSuffix(result.TestPath, "test_users.py") {
		t.Errorf("unexpected test path %q", result.TestPath)
	}
}
