package service

import "chatdesk_backend/internal/scoring/repository"

// freemailDomains are consumer providers that keep a lead out of the
// corporate-email bonus.
var freemailDomains = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "outlook.com",
	"aol.com", "icloud.com", "protonmail.com", "gmx.com",
}

var highIntentKeywords = []string{
	"pricing", "price", "demo", "quote", "buy", "purchase", "trial", "contract",
}

// defaultRules is the canonical rule set seeded for an organization that
// has none yet.
var defaultRules = []repository.SeedRule{
	{
		RuleName: "corporate_email",
		RuleType: repository.TypeEmailDomain,
		TriggerCondition: repository.TriggerCondition{
			Operator: repository.OpNotInList,
			Values:   freemailDomains,
		},
		ScoreChange: 20,
	},
	{
		RuleName: "phone_provided",
		RuleType: repository.TypePhoneProvided,
		TriggerCondition: repository.TriggerCondition{
			Operator: repository.OpExists,
		},
		ScoreChange: 15,
	},
	{
		RuleName: "concise_notes",
		RuleType: repository.TypeNotesLength,
		TriggerCondition: repository.TriggerCondition{
			Operator:  repository.OpLessThan,
			Threshold: 150,
		},
		ScoreChange: 15,
	},
	{
		RuleName: "high_intent_keywords",
		RuleType: repository.TypeKeywordMatch,
		TriggerCondition: repository.TriggerCondition{
			Operator: repository.OpContainsAny,
			Values:   highIntentKeywords,
		},
		ScoreChange: 25,
	},
	{
		RuleName: "fast_response",
		RuleType: repository.TypeResponseTime,
		TriggerCondition: repository.TriggerCondition{
			Operator:  repository.OpLessThan,
			Threshold: 60,
		},
		ScoreChange: 10,
	},
	{
		RuleName: "engaged_visitor",
		RuleType: repository.TypeEngagement,
		TriggerCondition: repository.TriggerCondition{
			Operator:  repository.OpGreaterThanOrEqual,
			Threshold: 3,
		},
		ScoreChange: 10,
	},
}

// DefaultRules returns a copy of the canonical default set.
func DefaultRules() []repository.SeedRule {
	out := make([]repository.SeedRule, len(defaultRules))
	copy(out, defaultRules)
	return out
}
