package agent

import (
	"context"
	"fmt"
	"strings"

	"chatdesk_backend/platform/logger"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const defaultMaxSteps = 5

// Orchestrator drives the model through at most maxSteps rounds of tool
// calling until it produces plain text or the budget runs out.
type Orchestrator struct {
	llm      model.LLM
	maxSteps int
	log      *logger.Logger
}

func NewOrchestrator(llm model.LLM, maxSteps int, log *logger.Logger) *Orchestrator {
	if maxSteps < 1 {
		maxSteps = defaultMaxSteps
	}
	return &Orchestrator{llm: llm, maxSteps: maxSteps, log: log}
}

// Run executes one bot turn. An error means the model itself was unusable;
// the caller turns that into a fixed apology. Tool failures never surface
// here: they flow back to the model as structured results.
func (o *Orchestrator) Run(ctx context.Context, systemPrompt string, history []Turn, tools []Tool) (string, error) {
	contents := historyContents(history)
	toolIndex := make(map[string]*Tool, len(tools))
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for i := range tools {
		t := &tools[i]
		toolIndex[t.Name] = t
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: t.Parameters,
		})
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	if len(declarations) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	lastText := ""
	for step := 0; step < o.maxSteps; step++ {
		resp, err := o.invoke(ctx, &model.LLMRequest{
			Contents: contents,
			Config:   config,
		})
		if err != nil {
			return "", fmt.Errorf("model invocation failed at step %d: %w", step, err)
		}

		text, calls := splitResponse(resp)
		if text != "" {
			lastText = text
		}

		if len(calls) == 0 {
			// Plain text means the model is done.
			return lastText, nil
		}

		contents = append(contents, resp.Content)

		responseParts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			result := o.execute(ctx, toolIndex, call)
			responseParts = append(responseParts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       call.ID,
					Name:     call.Name,
					Response: result.toMap(),
				},
			})
		}
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: responseParts})
	}

	// Budget exhausted: return the best text seen so far.
	o.log.Warn("agent step budget exhausted", "max_steps", o.maxSteps)
	if lastText == "" {
		lastText = "I'm still working on that. Could you give me a moment, or rephrase your request?"
	}
	return lastText, nil
}

func (o *Orchestrator) invoke(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	for resp, err := range o.llm.GenerateContent(ctx, req, false) {
		return resp, err
	}
	return nil, fmt.Errorf("model returned no response")
}

// execute runs one tool with full fault isolation: unknown tools, handler
// panics, and handler failures all become structured results for the model.
func (o *Orchestrator) execute(ctx context.Context, tools map[string]*Tool, call *genai.FunctionCall) (result ToolResult) {
	tool, ok := tools[call.Name]
	if !ok {
		o.log.ToolFailure(call.Name, fmt.Errorf("unknown tool"))
		return ToolResult{
			Success:   false,
			Message:   "That capability is not available right now. Our team will follow up manually.",
			ErrorType: "unknown_tool",
		}
	}

	defer func() {
		if r := recover(); r != nil {
			o.log.ToolFailure(call.Name, fmt.Errorf("panic: %v", r))
			result = ToolResult{
				Success:   false,
				Message:   "Something went wrong handling that request. Our team will follow up manually.",
				ErrorType: "internal_error",
			}
		}
	}()

	result = tool.Handler(ctx, call.Args)
	if !result.Success {
		o.log.ToolFailure(call.Name, fmt.Errorf("%s: %s", result.ErrorType, result.Message))
	}
	return result
}

func historyContents(history []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		var role genai.Role = genai.RoleUser
		if turn.Role == "assistant" || turn.Role == "model" {
			role = genai.RoleModel
		}
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	return contents
}

func splitResponse(resp *model.LLMResponse) (string, []*genai.FunctionCall) {
	if resp == nil || resp.Content == nil {
		return "", nil
	}

	var text strings.Builder
	var calls []*genai.FunctionCall
	for _, part := range resp.Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
			continue
		}
		if strings.TrimSpace(part.Text) != "" {
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(text.String()), calls
}
