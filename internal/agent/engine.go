package agent

import (
	"context"
	"fmt"
)

// DefaultMaxToolCalls caps how many tool invocations one engine session may
// make before it is cut off.
const DefaultMaxToolCalls = 25

// EngineResult is the outcome of one reasoning session: the final textual
// output plus every tool invocation made along the way.
type EngineResult struct {
	Output      string
	Invocations []Invocation
}

// BackupPaths returns the backup files produced by write_test_file calls
// during the session, in invocation order.
func (r *EngineResult) BackupPaths() []string {
	var paths []string
	for _, inv := range r.Invocations {
		if inv.BackupPath != "" {
			paths = append(paths, inv.BackupPath)
		}
	}
	return paths
}

// Engine drives the reasoning loop: send the conversation, execute any
// requested tool calls, feed results back, repeat until the engine produces
// a final answer or hits the tool-call cap.
type Engine struct {
	client       LLMClient
	tools        *Toolset
	maxToolCalls int
}

// NewEngine creates an Engine over the given client and toolset.
func NewEngine(client LLMClient, tools *Toolset) *Engine {
	return &Engine{
		client:       client,
		tools:        tools,
		maxToolCalls: DefaultMaxToolCalls,
	}
}

// SetMaxToolCalls overrides the per-session tool call cap.
func (e *Engine) SetMaxToolCalls(n int) {
	if n > 0 {
		e.maxToolCalls = n
	}
}

// Run executes one reasoning session. On error the returned result still
// carries the invocations made so far, so the caller can roll back any
// writes the session produced before failing.
func (e *Engine) Run(ctx context.Context, system, prompt string) (*EngineResult, error) {
	result := &EngineResult{}
	messages := []Message{{Role: "user", Content: prompt}}
	defs := e.tools.Definitions()

	toolCalls := 0
	for {
		resp, err := e.client.Complete(ctx, system, messages, defs)
		if err != nil {
			return result, fmt.Errorf("reasoning engine failed: %w", err)
		}

		if resp.StopReason != "tool_use" || len(resp.ToolCalls) == 0 {
			result.Output = resp.Text
			return result, nil
		}

		if toolCalls+len(resp.ToolCalls) > e.maxToolCalls {
			return result, fmt.Errorf("tool call limit of %d exceeded", e.maxToolCalls)
		}

		messages = append(messages, Message{Role: "assistant", Content: resp.Blocks})

		toolResults := make([]ContentBlock, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			inv := e.tools.Execute(ctx, call)
			result.Invocations = append(result.Invocations, inv)
			toolResults = append(toolResults, ContentBlock{
				Type:      "tool_result",
				ToolUseID: call.ID,
				Content:   inv.Output,
				IsError:   inv.Err != nil,
			})
			toolCalls++
		}
		messages = append(messages, Message{Role: "user", Content: toolResults})
	}
}
