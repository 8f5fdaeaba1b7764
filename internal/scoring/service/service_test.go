package service

import (
	"context"
	"errors"
	"testing"

	"chatdesk_backend/internal/scoring/repository"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRuleRepo struct {
	rules       []repository.Rule
	listErr     error
	seedErr     error
	seeded      bool
	seedInstall bool
}

func (f *fakeRuleRepo) ListActive(_ context.Context, _ uuid.UUID) ([]repository.Rule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.rules, nil
}

func (f *fakeRuleRepo) ListAll(_ context.Context, _ uuid.UUID) ([]repository.Rule, error) {
	return f.rules, nil
}

func (f *fakeRuleRepo) SeedDefaults(_ context.Context, orgID uuid.UUID, defaults []repository.SeedRule) error {
	if f.seedErr != nil {
		return f.seedErr
	}
	f.seeded = true
	if f.seedInstall {
		for _, d := range defaults {
			f.rules = append(f.rules, repository.Rule{
				ID:               uuid.New(),
				OrganizationID:   orgID,
				RuleName:         d.RuleName,
				RuleType:         d.RuleType,
				TriggerCondition: d.TriggerCondition,
				ScoreChange:      d.ScoreChange,
				IsActive:         true,
			})
		}
	}
	return nil
}

func (f *fakeRuleRepo) Create(_ context.Context, _ repository.CreateRuleParams) (*repository.Rule, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRuleRepo) Update(_ context.Context, _, _ uuid.UUID, _ repository.UpdateRuleParams) (*repository.Rule, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRuleRepo) Delete(_ context.Context, _, _ uuid.UUID) error {
	return errors.New("not implemented")
}

func newTestEngine(repo Repository) *Engine {
	return NewEngine(repo, logger.New("test"))
}

func hotFactors() Factors {
	return Factors{
		EmailDomain:         "acme-corp.com",
		PhoneProvided:       true,
		Notes:               "needs pricing for 50 seats",
		KeywordsMentioned:   []string{"what is your pricing?"},
		ResponseTimeSeconds: 12,
		NumQuestionsAsked:   4,
	}
}

func TestScore_AllDefaultRulesMatch(t *testing.T) {
	repo := &fakeRuleRepo{seedInstall: true}
	engine := newTestEngine(repo)

	result := engine.Score(context.Background(), uuid.New(), hotFactors())

	if !repo.seeded {
		t.Fatalf("expected default rules to be seeded for an empty organization")
	}
	// 20 + 15 + 15 + 25 + 10 + 10
	if result.Score != 95 {
		t.Fatalf("expected score 95, got %d", result.Score)
	}
	if result.Quality != QualityHot {
		t.Fatalf("expected quality hot, got %q", result.Quality)
	}
	if len(result.AppliedRules) != 6 {
		t.Fatalf("expected 6 applied rules, got %d: %v", len(result.AppliedRules), result.AppliedRules)
	}
}

func TestScore_FreemailDomainDoesNotMatchCorporateRule(t *testing.T) {
	repo := &fakeRuleRepo{seedInstall: true}
	engine := newTestEngine(repo)

	factors := hotFactors()
	factors.EmailDomain = "gmail.com"

	result := engine.Score(context.Background(), uuid.New(), factors)

	if result.Score != 75 {
		t.Fatalf("expected score 75, got %d", result.Score)
	}
	for _, name := range result.AppliedRules {
		if name == "corporate_email" {
			t.Fatalf("corporate_email must not match a freemail domain")
		}
	}
}

func TestScore_QualityTiers(t *testing.T) {
	cases := []struct {
		score   int
		quality string
	}{
		{100, QualityHot},
		{70, QualityHot},
		{69, QualityWarm},
		{40, QualityWarm},
		{39, QualityCold},
		{20, QualityCold},
		{19, QualityUnqualified},
		{0, QualityUnqualified},
	}

	for _, tc := range cases {
		if got := qualityFor(tc.score); got != tc.quality {
			t.Fatalf("score %d: expected %q, got %q", tc.score, tc.quality, got)
		}
	}
}

func TestScore_ClampsToValidRange(t *testing.T) {
	repo := &fakeRuleRepo{
		rules: []repository.Rule{
			{
				ID:               uuid.New(),
				RuleName:         "massive_bonus",
				RuleType:         repository.TypePhoneProvided,
				TriggerCondition: repository.TriggerCondition{Operator: repository.OpExists},
				ScoreChange:      250,
				IsActive:         true,
			},
		},
	}
	engine := newTestEngine(repo)

	result := engine.Score(context.Background(), uuid.New(), Factors{PhoneProvided: true})
	if result.Score != 100 {
		t.Fatalf("expected score clamped to 100, got %d", result.Score)
	}

	repo.rules[0].ScoreChange = -250
	result = engine.Score(context.Background(), uuid.New(), Factors{PhoneProvided: true})
	if result.Score != 0 {
		t.Fatalf("expected score clamped to 0, got %d", result.Score)
	}
}

func TestScore_BrokenRuleIsSkipped(t *testing.T) {
	repo := &fakeRuleRepo{
		rules: []repository.Rule{
			{
				ID:               uuid.New(),
				RuleName:         "future_rule",
				RuleType:         "sentiment_analysis",
				TriggerCondition: repository.TriggerCondition{Operator: repository.OpExists},
				ScoreChange:      50,
				IsActive:         true,
			},
			{
				ID:               uuid.New(),
				RuleName:         "phone_provided",
				RuleType:         repository.TypePhoneProvided,
				TriggerCondition: repository.TriggerCondition{Operator: repository.OpExists},
				ScoreChange:      15,
				IsActive:         true,
			},
		},
	}
	engine := newTestEngine(repo)

	result := engine.Score(context.Background(), uuid.New(), Factors{PhoneProvided: true})

	if result.Score != 15 {
		t.Fatalf("expected the unknown rule type to be skipped, got score %d", result.Score)
	}
	if len(result.AppliedRules) != 1 || result.AppliedRules[0] != "phone_provided" {
		t.Fatalf("expected only phone_provided to apply, got %v", result.AppliedRules)
	}
}

func TestScore_FallbackWhenRulesUnavailable(t *testing.T) {
	repo := &fakeRuleRepo{listErr: errors.New("connection refused")}
	engine := newTestEngine(repo)

	result := engine.Score(context.Background(), uuid.New(), hotFactors())

	if result.Score != 95 {
		t.Fatalf("expected fallback score 95, got %d", result.Score)
	}
	if result.Quality != QualityHot {
		t.Fatalf("expected fallback quality hot, got %q", result.Quality)
	}
	if len(result.Reasoning) == 0 || result.Reasoning[0] != "fallback heuristic applied" {
		t.Fatalf("expected fallback reasoning marker, got %v", result.Reasoning)
	}
}

func TestScore_FallbackWhenSeedFails(t *testing.T) {
	repo := &fakeRuleRepo{seedErr: errors.New("insert failed")}
	engine := newTestEngine(repo)

	result := engine.Score(context.Background(), uuid.New(), Factors{PhoneProvided: true, Notes: "short"})

	// phone +15, concise notes +15
	if result.Score != 30 {
		t.Fatalf("expected fallback score 30, got %d", result.Score)
	}
	if result.Quality != QualityCold {
		t.Fatalf("expected quality cold, got %q", result.Quality)
	}
}

func TestEvaluate_KeywordMatchIsCaseInsensitiveSubstring(t *testing.T) {
	rule := repository.Rule{
		RuleType: repository.TypeKeywordMatch,
		TriggerCondition: repository.TriggerCondition{
			Operator: repository.OpContainsAny,
			Values:   []string{"pricing", "demo"},
		},
	}

	matched, err := evaluate(&rule, &Factors{KeywordsMentioned: []string{"Can I get a DEMO next week?"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched {
		t.Fatalf("expected case-insensitive substring match")
	}

	matched, err = evaluate(&rule, &Factors{KeywordsMentioned: []string{"just saying hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatalf("expected no match without any keyword")
	}
}

func TestEvaluate_ContainsAllRequiresEveryKeyword(t *testing.T) {
	rule := repository.Rule{
		RuleType: repository.TypeKeywordMatch,
		TriggerCondition: repository.TriggerCondition{
			Operator: repository.OpContainsAll,
			Values:   []string{"pricing", "enterprise"},
		},
	}

	matched, err := evaluate(&rule, &Factors{KeywordsMentioned: []string{"enterprise pricing please"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched {
		t.Fatalf("expected match when all keywords present")
	}

	matched, _ = evaluate(&rule, &Factors{KeywordsMentioned: []string{"pricing please"}})
	if matched {
		t.Fatalf("expected no match when one keyword is missing")
	}
}

func TestEvaluate_InvalidOperatorForType(t *testing.T) {
	rule := repository.Rule{
		RuleType: repository.TypeEmailDomain,
		TriggerCondition: repository.TriggerCondition{
			Operator: repository.OpGreaterThan,
		},
	}

	if _, err := evaluate(&rule, &Factors{EmailDomain: "acme.com"}); err == nil {
		t.Fatalf("expected error for operator invalid on rule type")
	}
}

func TestEvaluate_EmailDomainMissingNeverMatches(t *testing.T) {
	rule := repository.Rule{
		RuleType: repository.TypeEmailDomain,
		TriggerCondition: repository.TriggerCondition{
			Operator: repository.OpNotInList,
			Values:   []string{"gmail.com"},
		},
	}

	matched, err := evaluate(&rule, &Factors{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatalf("a lead without an email must not earn the corporate domain bonus")
	}
}

func TestEvaluate_ResponseTimeAbsentNeverMatches(t *testing.T) {
	rule := repository.Rule{
		RuleType: repository.TypeResponseTime,
		TriggerCondition: repository.TriggerCondition{
			Operator:  repository.OpLessThan,
			Threshold: 60,
		},
	}

	matched, err := evaluate(&rule, &Factors{ResponseTimeSeconds: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatalf("an unmeasured response time must not count as a fast reply")
	}

	matched, err = evaluate(&rule, &Factors{ResponseTimeSeconds: 12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched {
		t.Fatalf("a measured fast reply must match")
	}
}
