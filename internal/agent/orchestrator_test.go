package agent

import (
	"context"
	"errors"
	"iter"
	"testing"

	"chatdesk_backend/platform/logger"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// scriptedModel replays canned responses and records every request.
type scriptedModel struct {
	responses []*model.LLMResponse
	err       error
	requests  []*model.LLMRequest
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		m.requests = append(m.requests, req)
		if m.err != nil {
			yield(nil, m.err)
			return
		}
		idx := len(m.requests) - 1
		if idx >= len(m.responses) {
			idx = len(m.responses) - 1
		}
		yield(m.responses[idx], nil)
	}
}

func textResponse(text string) *model.LLMResponse {
	return &model.LLMResponse{
		Content: genai.NewContentFromText(text, genai.RoleModel),
	}
}

func callResponse(name string, args map[string]any) *model.LLMResponse {
	return &model.LLMResponse{
		Content: &genai.Content{
			Role: genai.RoleModel,
			Parts: []*genai.Part{
				{FunctionCall: &genai.FunctionCall{Name: name, Args: args}},
			},
		},
	}
}

func newTestOrchestrator(m model.LLM, maxSteps int) *Orchestrator {
	return NewOrchestrator(m, maxSteps, logger.New("test"))
}

func TestRun_PlainTextResponse(t *testing.T) {
	m := &scriptedModel{responses: []*model.LLMResponse{textResponse("Hi there!")}}
	orch := newTestOrchestrator(m, 5)

	reply, err := orch.Run(context.Background(), "be helpful", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Hi there!" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if len(m.requests) != 1 {
		t.Fatalf("expected a single model call, got %d", len(m.requests))
	}
}

func TestRun_ToolCallThenText(t *testing.T) {
	m := &scriptedModel{responses: []*model.LLMResponse{
		callResponse("createLead", map[string]any{"name": "Jamie"}),
		textResponse("Saved your details!"),
	}}
	orch := newTestOrchestrator(m, 5)

	var gotArgs map[string]any
	tools := []Tool{{
		Name: "createLead",
		Handler: func(_ context.Context, args map[string]any) ToolResult {
			gotArgs = args
			return ToolResult{Success: true, Message: "lead saved"}
		},
	}}

	reply, err := orch.Run(context.Background(), "be helpful", nil, tools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Saved your details!" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if gotArgs["name"] != "Jamie" {
		t.Fatalf("expected the tool to receive the model args, got %v", gotArgs)
	}

	// The second request must carry the tool result back to the model.
	second := m.requests[1]
	last := second.Contents[len(second.Contents)-1]
	if len(last.Parts) != 1 || last.Parts[0].FunctionResponse == nil {
		t.Fatalf("expected a function response part, got %+v", last)
	}
	resp := last.Parts[0].FunctionResponse.Response
	if resp["success"] != true {
		t.Fatalf("expected the success flag in the tool response, got %v", resp)
	}
}

func TestRun_StepBudgetIsNeverExceeded(t *testing.T) {
	// The model insists on calling tools forever.
	m := &scriptedModel{responses: []*model.LLMResponse{
		callResponse("createLead", nil),
	}}
	orch := newTestOrchestrator(m, 3)

	calls := 0
	tools := []Tool{{
		Name: "createLead",
		Handler: func(_ context.Context, _ map[string]any) ToolResult {
			calls++
			return ToolResult{Success: true, Message: "ok"}
		},
	}}

	reply, err := orch.Run(context.Background(), "be helpful", nil, tools)
	if err != nil {
		t.Fatalf("budget exhaustion is not an error: %v", err)
	}
	if len(m.requests) != 3 {
		t.Fatalf("expected exactly 3 model calls, got %d", len(m.requests))
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 tool executions, got %d", calls)
	}
	if reply == "" {
		t.Fatalf("expected a usable reply even with the budget exhausted")
	}
}

func TestRun_BudgetExhaustedKeepsLastText(t *testing.T) {
	mixed := &model.LLMResponse{
		Content: &genai.Content{
			Role: genai.RoleModel,
			Parts: []*genai.Part{
				{Text: "Let me check that for you."},
				{FunctionCall: &genai.FunctionCall{Name: "createLead"}},
			},
		},
	}
	m := &scriptedModel{responses: []*model.LLMResponse{mixed}}
	orch := newTestOrchestrator(m, 2)

	tools := []Tool{{
		Name: "createLead",
		Handler: func(_ context.Context, _ map[string]any) ToolResult {
			return ToolResult{Success: true, Message: "ok"}
		},
	}}

	reply, err := orch.Run(context.Background(), "be helpful", nil, tools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Let me check that for you." {
		t.Fatalf("expected the last text the model produced, got %q", reply)
	}
}

func TestRun_UnknownToolBecomesStructuredFailure(t *testing.T) {
	m := &scriptedModel{responses: []*model.LLMResponse{
		callResponse("launchRocket", nil),
		textResponse("Sorry, I cannot do that."),
	}}
	orch := newTestOrchestrator(m, 5)

	reply, err := orch.Run(context.Background(), "be helpful", nil, nil)
	if err != nil {
		t.Fatalf("an unknown tool must not abort the turn: %v", err)
	}
	if reply != "Sorry, I cannot do that." {
		t.Fatalf("unexpected reply %q", reply)
	}

	second := m.requests[1]
	last := second.Contents[len(second.Contents)-1]
	resp := last.Parts[0].FunctionResponse.Response
	if resp["success"] != false || resp["error_type"] != "unknown_tool" {
		t.Fatalf("expected an unknown_tool failure result, got %v", resp)
	}
}

func TestRun_ToolPanicIsIsolated(t *testing.T) {
	m := &scriptedModel{responses: []*model.LLMResponse{
		callResponse("createLead", nil),
		textResponse("Apologies, something went wrong on our side."),
	}}
	orch := newTestOrchestrator(m, 5)

	tools := []Tool{{
		Name: "createLead",
		Handler: func(_ context.Context, _ map[string]any) ToolResult {
			panic("nil pointer dereference")
		},
	}}

	reply, err := orch.Run(context.Background(), "be helpful", nil, tools)
	if err != nil {
		t.Fatalf("a tool panic must not abort the turn: %v", err)
	}
	if reply == "" {
		t.Fatalf("expected a reply after the panic was contained")
	}

	second := m.requests[1]
	last := second.Contents[len(second.Contents)-1]
	resp := last.Parts[0].FunctionResponse.Response
	if resp["success"] != false || resp["error_type"] != "internal_error" {
		t.Fatalf("expected an internal_error result, got %v", resp)
	}
}

func TestRun_ModelErrorSurfaces(t *testing.T) {
	m := &scriptedModel{err: errors.New("upstream 503")}
	orch := newTestOrchestrator(m, 5)

	if _, err := orch.Run(context.Background(), "be helpful", nil, nil); err == nil {
		t.Fatalf("expected the model error to surface to the caller")
	}
}

func TestHistoryContents_MapsRolesAndSkipsBlanks(t *testing.T) {
	contents := historyContents([]Turn{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi!"},
		{Role: "user", Content: "   "},
		{Role: "model", Content: "still here"},
	})

	if len(contents) != 3 {
		t.Fatalf("expected blank turns to be dropped, got %d contents", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Fatalf("expected user role, got %q", contents[0].Role)
	}
	if contents[1].Role != genai.RoleModel || contents[2].Role != genai.RoleModel {
		t.Fatalf("assistant and model turns must map to the model role")
	}
}
