package service

import (
	"fmt"
	"strings"

	"chatdesk_backend/internal/scoring/repository"
)

// Factors are the observed lead signals a rule set is evaluated against.
// They are ephemeral; nothing here is persisted.
type Factors struct {
	EmailDomain         string
	PhoneProvided       bool
	Notes               string
	KeywordsMentioned   []string
	ResponseTimeSeconds float64
	NumQuestionsAsked   int
}

// evaluate reports whether a rule matches the factors. Unknown rule types
// and operator combinations return an error so the engine can log them and
// treat the rule as non-matching.
func evaluate(rule *repository.Rule, f *Factors) (bool, error) {
	cond := rule.TriggerCondition

	switch rule.RuleType {
	case repository.TypeEmailDomain:
		if f.EmailDomain == "" {
			return false, nil
		}
		domain := strings.ToLower(f.EmailDomain)
		switch cond.Operator {
		case repository.OpInList:
			return containsFold(cond.Values, domain), nil
		case repository.OpNotInList:
			return !containsFold(cond.Values, domain), nil
		}

	case repository.TypePhoneProvided:
		switch cond.Operator {
		case repository.OpExists:
			return f.PhoneProvided, nil
		}

	case repository.TypeNotesLength:
		length := float64(len(f.Notes))
		switch cond.Operator {
		case repository.OpGreaterThan:
			return length > cond.Threshold, nil
		case repository.OpLessThan:
			return length < cond.Threshold, nil
		}

	case repository.TypeKeywordMatch:
		switch cond.Operator {
		case repository.OpContainsAny:
			return matchKeywords(f.KeywordsMentioned, cond.Values, false), nil
		case repository.OpContainsAll:
			return matchKeywords(f.KeywordsMentioned, cond.Values, true), nil
		}

	case repository.TypeResponseTime:
		// Zero means the signal was never measured, not an instant reply.
		if f.ResponseTimeSeconds <= 0 {
			return false, nil
		}
		switch cond.Operator {
		case repository.OpLessThan:
			return f.ResponseTimeSeconds < cond.Threshold, nil
		case repository.OpGreaterThan:
			return f.ResponseTimeSeconds > cond.Threshold, nil
		}

	case repository.TypeEngagement:
		asked := float64(f.NumQuestionsAsked)
		switch cond.Operator {
		case repository.OpGreaterThanOrEqual:
			return asked >= cond.Threshold, nil
		case repository.OpGreaterThan:
			return asked > cond.Threshold, nil
		case repository.OpEquals:
			return asked == cond.Threshold, nil
		}

	default:
		return false, fmt.Errorf("unknown rule type %q", rule.RuleType)
	}

	return false, fmt.Errorf("operator %q not valid for rule type %q", cond.Operator, rule.RuleType)
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

// matchKeywords does case-insensitive substring matching between mentioned
// keywords and the condition values.
func matchKeywords(mentioned, wanted []string, requireAll bool) bool {
	if len(wanted) == 0 {
		return false
	}

	matched := 0
	for _, want := range wanted {
		want = strings.ToLower(want)
		found := false
		for _, have := range mentioned {
			if strings.Contains(strings.ToLower(have), want) {
				found = true
				break
			}
		}
		if found {
			matched++
			if !requireAll {
				return true
			}
		} else if requireAll {
			return false
		}
	}

	return requireAll && matched == len(wanted)
}
