// Package service implements the lead scoring engine: rule evaluation,
// default seeding, and the fixed fallback heuristic.
package service

import (
	"context"
	"fmt"

	"chatdesk_backend/internal/scoring/repository"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// Quality tiers.
const (
	QualityHot         = "hot"
	QualityWarm        = "warm"
	QualityCold        = "cold"
	QualityUnqualified = "unqualified"
)

// Repository is the persistence surface the engine needs.
type Repository interface {
	ListActive(ctx context.Context, orgID uuid.UUID) ([]repository.Rule, error)
	ListAll(ctx context.Context, orgID uuid.UUID) ([]repository.Rule, error)
	SeedDefaults(ctx context.Context, orgID uuid.UUID, defaults []repository.SeedRule) error
	Create(ctx context.Context, p repository.CreateRuleParams) (*repository.Rule, error)
	Update(ctx context.Context, orgID, ruleID uuid.UUID, p repository.UpdateRuleParams) (*repository.Rule, error)
	Delete(ctx context.Context, orgID, ruleID uuid.UUID) error
}

// Result is the outcome of scoring one set of factors.
type Result struct {
	Score        int
	Quality      string
	Reasoning    []string
	AppliedRules []string
}

type Engine struct {
	repo Repository
	log  *logger.Logger
}

func NewEngine(repo Repository, log *logger.Logger) *Engine {
	return &Engine{repo: repo, log: log}
}

// Score evaluates the organization's active rules against the factors.
// An organization with no rules gets the default set seeded once; if the
// seed or the refetch fails, the fixed fallback heuristic answers instead.
// Score never fails the caller.
func (e *Engine) Score(ctx context.Context, orgID uuid.UUID, factors Factors) *Result {
	rules, err := e.repo.ListActive(ctx, orgID)
	if err != nil {
		e.log.DatabaseError("fetch scoring rules", err)
		return e.fallback(&factors)
	}

	if len(rules) == 0 {
		if err := e.repo.SeedDefaults(ctx, orgID, DefaultRules()); err != nil {
			e.log.DatabaseError("seed default scoring rules", err)
			return e.fallback(&factors)
		}

		// One retry after seeding. A concurrent seeder may have won the
		// race; either way the refetch sees the canonical set.
		rules, err = e.repo.ListActive(ctx, orgID)
		if err != nil || len(rules) == 0 {
			if err != nil {
				e.log.DatabaseError("refetch scoring rules", err)
			}
			return e.fallback(&factors)
		}
	}

	return e.apply(rules, &factors)
}

func (e *Engine) apply(rules []repository.Rule, factors *Factors) *Result {
	result := &Result{
		Reasoning:    make([]string, 0, len(rules)),
		AppliedRules: make([]string, 0, len(rules)),
	}

	total := 0
	for i := range rules {
		rule := &rules[i]

		matched, err := evaluate(rule, factors)
		if err != nil {
			// A broken rule must not abort scoring.
			e.log.Warn("scoring rule evaluation failed",
				"rule_id", rule.ID, "rule_name", rule.RuleName, "error", err)
			continue
		}
		if !matched {
			continue
		}

		total += rule.ScoreChange
		result.AppliedRules = append(result.AppliedRules, rule.RuleName)
		result.Reasoning = append(result.Reasoning,
			fmt.Sprintf("%s: %+d", rule.RuleName, rule.ScoreChange))
	}

	result.Score = clamp(total)
	result.Quality = qualityFor(result.Score)
	return result
}

// fallback is a hardcoded approximation of the default rule set, used when
// rules cannot be fetched or seeded.
func (e *Engine) fallback(factors *Factors) *Result {
	result := &Result{
		Reasoning:    []string{"fallback heuristic applied"},
		AppliedRules: []string{},
	}

	total := 0
	if factors.EmailDomain != "" && !containsFold(freemailDomains, factors.EmailDomain) {
		total += 20
		result.Reasoning = append(result.Reasoning, "corporate email domain: +20")
	}
	if factors.PhoneProvided {
		total += 15
		result.Reasoning = append(result.Reasoning, "phone provided: +15")
	}
	if len(factors.Notes) < 150 {
		total += 15
		result.Reasoning = append(result.Reasoning, "concise notes: +15")
	}
	if matchKeywords(factors.KeywordsMentioned, highIntentKeywords, false) {
		total += 25
		result.Reasoning = append(result.Reasoning, "high intent keywords: +25")
	}
	if factors.ResponseTimeSeconds > 0 && factors.ResponseTimeSeconds < 60 {
		total += 10
		result.Reasoning = append(result.Reasoning, "fast response: +10")
	}
	if factors.NumQuestionsAsked >= 3 {
		total += 10
		result.Reasoning = append(result.Reasoning, "engaged visitor: +10")
	}

	result.Score = clamp(total)
	result.Quality = qualityFor(result.Score)
	return result
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func qualityFor(score int) string {
	switch {
	case score >= 70:
		return QualityHot
	case score >= 40:
		return QualityWarm
	case score >= 20:
		return QualityCold
	default:
		return QualityUnqualified
	}
}

// Rule management passthroughs for the dashboard.

func (e *Engine) ListRules(ctx context.Context, orgID uuid.UUID) ([]repository.Rule, error) {
	return e.repo.ListAll(ctx, orgID)
}

func (e *Engine) CreateRule(ctx context.Context, p repository.CreateRuleParams) (*repository.Rule, error) {
	return e.repo.Create(ctx, p)
}

func (e *Engine) UpdateRule(ctx context.Context, orgID, ruleID uuid.UUID, p repository.UpdateRuleParams) (*repository.Rule, error) {
	return e.repo.Update(ctx, orgID, ruleID, p)
}

func (e *Engine) DeleteRule(ctx context.Context, orgID, ruleID uuid.UUID) error {
	return e.repo.Delete(ctx, orgID, ruleID)
}
