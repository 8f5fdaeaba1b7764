// Package agent runs the bounded tool-calling loop that produces bot
// replies. The model is an external collaborator behind model.LLM; tools are
// plain data so tests can substitute both.
package agent

import "context"

// ToolResult is what a tool hands back to the model. Failures are values,
// never panics or errors crossing into the loop.
type ToolResult struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	ErrorType string         `json:"error_type,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

func (r ToolResult) toMap() map[string]any {
	out := map[string]any{
		"success": r.Success,
		"message": r.Message,
	}
	if r.ErrorType != "" {
		out["error_type"] = r.ErrorType
	}
	if r.Data != nil {
		out["data"] = r.Data
	}
	return out
}

// Tool couples a function declaration with its handler. Parameters is a
// JSON schema object passed through to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(ctx context.Context, args map[string]any) ToolResult
}

// Turn is one message of prior conversation history.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}
