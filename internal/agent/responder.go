package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrgContext supplies organization details for the system prompt.
type OrgContext interface {
	TimezoneResolver
	OrgName(ctx context.Context, orgID uuid.UUID) string
}

// Request is one bot turn to answer. The latest visitor message is the last
// entry of History.
type Request struct {
	ConversationID uuid.UUID
	OrganizationID uuid.UUID
	Channel        string
	History        []Turn
}

// Responder is the production bot: an orchestrator plus the tool
// dependencies bound per conversation.
type Responder struct {
	orch *Orchestrator
	deps ToolDeps
	orgs OrgContext
}

func NewResponder(orch *Orchestrator, deps ToolDeps, orgs OrgContext) *Responder {
	return &Responder{orch: orch, deps: deps, orgs: orgs}
}

// Respond produces the assistant reply for one turn. An error means the
// model was unusable; callers substitute their fixed fallback text.
func (r *Responder) Respond(ctx context.Context, req Request) (string, error) {
	loc := r.deps.Timezones.Location(ctx, req.OrganizationID)

	prompt := SystemPrompt(PromptInfo{
		OrganizationName: r.orgs.OrgName(ctx, req.OrganizationID),
		Channel:          req.Channel,
		LocalTime:        time.Now().In(loc),
	})

	tools := Toolset(r.deps, Binding{
		ConversationID: req.ConversationID,
		OrganizationID: req.OrganizationID,
	})

	return r.orch.Run(ctx, prompt, req.History, tools)
}
