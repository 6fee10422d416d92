package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"apiheal/internal/domain"
)

// BackupCreator snapshots a file before a mutating write.
type BackupCreator interface {
	Create(path string) (string, error)
}

// SingleRunner executes exactly one test by its fully-qualified identity.
type SingleRunner interface {
	RunSingle(ctx context.Context, testID string) domain.SingleTestResult
}

// Invocation records one executed tool call for the healing audit trail.
type Invocation struct {
	Tool       string
	Input      map[string]any
	Output     string // strict JSON handed back to the reasoning engine
	BackupPath string // set by write_test_file when a backup was taken
	Err        error  // tool-level failure; already reflected in Output
}

// Toolset is the closed set of operations the reasoning engine may invoke:
// read_test_file, write_test_file, run_single_test, call_api and
// list_test_files. Dispatch is over this fixed set only. All file paths are
// validated against the tests root before any I/O, and every write to an
// existing file takes a backup first.
type Toolset struct {
	testsRoot  string
	backups    BackupCreator
	runner     SingleRunner
	apiBaseURL string
	httpClient *http.Client
}

// NewToolset builds the toolset around the protected tests root.
func NewToolset(testsRoot string, backups BackupCreator, runner SingleRunner, apiBaseURL string, apiTimeout time.Duration) *Toolset {
	return &Toolset{
		testsRoot:  testsRoot,
		backups:    backups,
		runner:     runner,
		apiBaseURL: apiBaseURL,
		httpClient: &http.Client{Timeout: apiTimeout},
	}
}

// Definitions returns the tool contracts advertised to the reasoning engine.
func (t *Toolset) Definitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "read_test_file",
			Description: "Read the content of a test file. Use this to examine existing test code before making fixes.",
			InputSchema: objectSchema(map[string]any{
				"file_path": map[string]any{"type": "string", "description": "Path to test file (relative or absolute)"},
			}, "file_path"),
		},
		{
			Name:        "write_test_file",
			Description: "Write or update a test file. Automatically creates a backup before modification for safety.",
			InputSchema: objectSchema(map[string]any{
				"file_path":     map[string]any{"type": "string", "description": "Path to test file to write"},
				"content":       map[string]any{"type": "string", "description": "Complete file content to write"},
				"create_backup": map[string]any{"type": "boolean", "description": "Create backup before writing (default true)"},
			}, "file_path", "content"),
		},
		{
			Name:        "run_single_test",
			Description: "Execute a single test using the test runner. Use this to validate fixes after modifying test code.",
			InputSchema: objectSchema(map[string]any{
				"test_id": map[string]any{"type": "string", "description": "Test identity: 'tests/api/test_file.py::test_function'"},
			}, "test_id"),
		},
		{
			Name:        "call_api",
			Description: "Make an HTTP request to the target API. Use this to verify API responses and understand actual behavior.",
			InputSchema: objectSchema(map[string]any{
				"method":  map[string]any{"type": "string", "description": "HTTP method: GET, POST, PUT, DELETE, PATCH"},
				"url":     map[string]any{"type": "string", "description": "Full URL or relative path (e.g., '/users/1')"},
				"payload": map[string]any{"type": "object", "description": "Request body for POST/PUT/PATCH"},
			}, "method", "url"),
		},
		{
			Name:        "list_test_files",
			Description: "List all test files under the tests directory. Use this to discover available tests.",
			InputSchema: objectSchema(map[string]any{}),
		},
	}
}

// Execute dispatches one tool call and returns its invocation record. Tool
// failures are reported inside the JSON output, not as Go errors, so the
// reasoning engine can react to them; Err additionally flags them for the
// session log.
func (t *Toolset) Execute(ctx context.Context, call ToolCall) Invocation {
	inv := Invocation{Tool: call.Name, Input: call.Input}

	var result map[string]any
	switch call.Name {
	case "read_test_file":
		result = t.readTestFile(call.Input)
	case "write_test_file":
		result, inv.BackupPath = t.writeTestFile(call.Input)
	case "run_single_test":
		result = t.runSingleTest(ctx, call.Input)
	case "call_api":
		result = t.callAPI(ctx, call.Input)
	case "list_test_files":
		result = t.listTestFiles()
	default:
		result = toolError(fmt.Sprintf("Unknown tool: %s", call.Name))
	}

	if errMsg, ok := result["error"].(string); ok && errMsg != "" {
		inv.Err = fmt.Errorf("%s: %s", call.Name, errMsg)
	}

	out, err := json.Marshal(result)
	if err != nil {
		out = []byte(`{"success":false,"error":"failed to serialize tool result"}`)
		inv.Err = fmt.Errorf("%s: %w", call.Name, err)
	}
	inv.Output = string(out)
	return inv
}

func (t *Toolset) readTestFile(input map[string]any) map[string]any {
	path, ok := stringArg(input, "file_path")
	if !ok {
		return toolError("file_path is required")
	}
	abs, err := t.resolvePath(path)
	if err != nil {
		return toolError(err.Error())
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return toolError(fmt.Sprintf("File not found: %s", path))
		}
		return toolError(fmt.Sprintf("Error reading file: %v", err))
	}
	return map[string]any{"success": true, "content": string(content)}
}

func (t *Toolset) writeTestFile(input map[string]any) (map[string]any, string) {
	path, ok := stringArg(input, "file_path")
	if !ok {
		return toolError("file_path is required"), ""
	}
	content, ok := stringArg(input, "content")
	if !ok {
		return toolError("content is required"), ""
	}
	createBackup := true
	if v, ok := input["create_backup"].(bool); ok {
		createBackup = v
	}

	abs, err := t.resolvePath(path)
	if err != nil {
		return toolError(err.Error()), ""
	}

	var backupPath string
	if createBackup {
		if _, err := os.Stat(abs); err == nil {
			backupPath, err = t.backups.Create(abs)
			if err != nil {
				return toolError(fmt.Sprintf("Failed to create backup: %v", err)), ""
			}
		}
	}

	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return toolError(fmt.Sprintf("Error writing file: %v", err)), backupPath
	}

	result := map[string]any{"success": true}
	if backupPath != "" {
		result["backup_path"] = backupPath
	}
	return result, backupPath
}

func (t *Toolset) runSingleTest(ctx context.Context, input map[string]any) map[string]any {
	testID, ok := stringArg(input, "test_id")
	if !ok {
		return toolError("test_id is required")
	}

	result := t.runner.RunSingle(ctx, testID)
	out := map[string]any{
		"success": true,
		"passed":  result.Passed,
		"output":  result.Output,
	}
	if result.Error != "" {
		out["success"] = false
		out["error"] = result.Error
	}
	return out
}

func (t *Toolset) callAPI(ctx context.Context, input map[string]any) map[string]any {
	method, ok := stringArg(input, "method")
	if !ok {
		return toolError("method is required")
	}
	url, ok := stringArg(input, "url")
	if !ok {
		return toolError("url is required")
	}

	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return toolError(fmt.Sprintf("Unsupported method: %s", method))
	}

	if strings.HasPrefix(url, "/") {
		url = t.apiBaseURL + url
	}

	var body io.Reader
	if payload, ok := input["payload"]; ok && payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return toolError(fmt.Sprintf("Invalid payload: %v", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return toolError(fmt.Sprintf("Invalid request: %v", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return toolError(fmt.Sprintf("Request failed: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to read response: %v", err))
	}

	var parsedBody any
	if err := json.Unmarshal(raw, &parsedBody); err != nil {
		parsedBody = string(raw)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return map[string]any{
		"success":     true,
		"status_code": resp.StatusCode,
		"body":        parsedBody,
		"headers":     headers,
	}
}

func (t *Toolset) listTestFiles() map[string]any {
	entries, err := os.ReadDir(t.testsRoot)
	if err != nil {
		return toolError(fmt.Sprintf("Error listing test files: %v", err))
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, "test_") && strings.HasSuffix(name, ".py") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return map[string]any{"success": true, "files": files}
}

// resolvePath resolves a tool-supplied path and rejects anything outside the
// tests root before any I/O happens. Containment is lexical: traversal via
// ".." fails the relative-path check.
func (t *Toolset) resolvePath(path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		rel := path
		// Tool paths usually arrive project-relative ("tests/api/test_x.py");
		// strip everything up to the tests-root directory name when present.
		marker := filepath.Base(t.testsRoot) + string(filepath.Separator)
		if i := strings.LastIndex(rel, marker); i >= 0 {
			rel = rel[i+len(marker):]
		}
		abs = filepath.Join(t.testsRoot, rel)
	}
	abs = filepath.Clean(abs)
	if a, err := filepath.Abs(abs); err == nil {
		abs = a
	}

	rel, err := filepath.Rel(t.testsRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("Path %s is outside the tests directory", path)
	}
	return abs, nil
}

func stringArg(input map[string]any, key string) (string, bool) {
	v, ok := input[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func toolError(msg string) map[string]any {
	return map[string]any{"success": false, "error": msg}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
