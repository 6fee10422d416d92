package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// scriptedClient replays a fixed sequence of responses.
type scriptedClient struct {
	responses []*ToolResponse
	errs      []error
	calls     int
	lastMsgs  []Message
}

func (s *scriptedClient) Complete(_ context.Context, _ string, messages []Message, _ []ToolDefinition) (*ToolResponse, error) {
	s.lastMsgs = messages
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.responses) {
		return nil, errors.New("script exhausted")
	}
	return s.responses[i], nil
}

func toolUseResponse(id, name string, input map[string]any) *ToolResponse {
	block := ContentBlock{Type: "tool_use", ID: id, Name: name, Input: input}
	return &ToolResponse{
		StopReason: "tool_use",
		ToolCalls:  []ToolCall{{ID: id, Name: name, Input: input}},
		Blocks:     []ContentBlock{block},
	}
}

func endTurnResponse(text string) *ToolResponse {
	return &ToolResponse{
		StopReason: "end_turn",
		Text:       text,
		Blocks:     []ContentBlock{{Type: "text", Text: text}},
	}
}

func newEngineFixture(t *testing.T, client LLMClient) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	testsRoot := filepath.Join(root, "tests", "api")
	if err := os.MkdirAll(testsRoot, 0755); err != nil {
		t.Fatal(err)
	}
	tools := NewToolset(testsRoot, &fakeBackups{}, &fakeRunner{}, "https://example.test", time.Second)
	return NewEngine(client, tools), testsRoot
}

func TestEngine_Run(t *testing.T) {
	client := &scriptedClient{
		responses: []*ToolResponse{
			toolUseResponse("tc_1", "read_test_file", map[string]any{"file_path": "test_users.py"}),
			endTurnResponse("Detected: stale assertion\nDECISION: update expected value"),
		},
	}
	engine, testsRoot := newEngineFixture(t, client)
	if err := os.WriteFile(filepath.Join(testsRoot, "test_users.py"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := engine.Run(context.Background(), "system", "fix this test")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Output == "" || result.Output != "Detected: stale assertion\nDECISION: update expected value" {
		t.Errorf("unexpected output: %q", result.Output)
	}
	if len(result.Invocations) != 1 || result.Invocations[0].Tool != "read_test_file" {
		t.Fatalf("expected one read invocation, got %v", result.Invocations)
	}

	// Second turn must include the assistant blocks and a tool_result.
	if len(client.lastMsgs) != 3 {
		t.Fatalf("expected 3 messages on second turn, got %d", len(client.lastMsgs))
	}
	results, ok := client.lastMsgs[2].Content.([]ContentBlock)
	if !ok || len(results) != 1 || results[0].Type != "tool_result" || results[0].ToolUseID != "tc_1" {
		t.Errorf("tool_result not fed back correctly: %v", client.lastMsgs[2].Content)
	}
}

func TestEngine_ToolCallCap(t *testing.T) {
	// The client asks for the same tool forever.
	loop := toolUseResponse("tc", "list_test_files", map[string]any{})
	client := &scriptedClient{responses: []*ToolResponse{loop, loop, loop, loop, loop}}
	engine, _ := newEngineFixture(t, client)
	engine.SetMaxToolCalls(3)

	result, err := engine.Run(context.Background(), "", "loop")
	if err == nil {
		t.Fatal("expected tool call limit error")
	}
	if len(result.Invocations) > 3 {
		t.Errorf("made %d invocations, cap was 3", len(result.Invocations))
	}
}

func TestEngine_ErrorKeepsInvocations(t *testing.T) {
	client := &scriptedClient{
		responses: []*ToolResponse{
			toolUseResponse("tc_1", "write_test_file", map[string]any{
				"file_path": "test_users.py",
				"content":   "fixed\n",
			}),
		},
		errs: []error{nil, errors.New("transport down")},
	}
	engine, testsRoot := newEngineFixture(t, client)
	if err := os.WriteFile(filepath.Join(testsRoot, "test_users.py"), []byte("old\n"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := engine.Run(context.Background(), "", "fix")
	if err == nil {
		t.Fatal("expected engine error")
	}
	// The write made before the failure must stay visible for rollback.
	if len(result.BackupPaths()) != 1 {
		t.Errorf("expected 1 backup path, got %v", result.BackupPaths())
	}
}
