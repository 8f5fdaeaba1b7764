// Package transport defines the wire types for scoring rule management.
package transport

import (
	"time"

	"chatdesk_backend/internal/scoring/repository"

	"github.com/google/uuid"
)

type TriggerConditionDTO struct {
	Operator  string   `json:"operator" binding:"required,oneof=in_list not_in_list exists greater_than greater_than_or_equal less_than equals contains_any contains_all"`
	Values    []string `json:"values,omitempty" binding:"max=50"`
	Threshold float64  `json:"threshold,omitempty"`
}

type CreateRuleRequest struct {
	RuleName         string              `json:"rule_name" binding:"required,min=1,max=100"`
	RuleType         string              `json:"rule_type" binding:"required,oneof=email_domain phone_provided notes_length keyword_match response_time engagement"`
	TriggerCondition TriggerConditionDTO `json:"trigger_condition" binding:"required"`
	ScoreChange      int                 `json:"score_change" binding:"required,min=-100,max=100"`
}

type UpdateRuleRequest struct {
	TriggerCondition TriggerConditionDTO `json:"trigger_condition" binding:"required"`
	ScoreChange      int                 `json:"score_change" binding:"required,min=-100,max=100"`
	IsActive         *bool               `json:"is_active" binding:"required"`
}

type RuleResponse struct {
	ID               uuid.UUID           `json:"id"`
	RuleName         string              `json:"rule_name"`
	RuleType         string              `json:"rule_type"`
	TriggerCondition TriggerConditionDTO `json:"trigger_condition"`
	ScoreChange      int                 `json:"score_change"`
	IsActive         bool                `json:"is_active"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func ToRuleResponse(r *repository.Rule) RuleResponse {
	return RuleResponse{
		ID:       r.ID,
		RuleName: r.RuleName,
		RuleType: r.RuleType,
		TriggerCondition: TriggerConditionDTO{
			Operator:  r.TriggerCondition.Operator,
			Values:    r.TriggerCondition.Values,
			Threshold: r.TriggerCondition.Threshold,
		},
		ScoreChange: r.ScoreChange,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (d TriggerConditionDTO) ToDomain() repository.TriggerCondition {
	return repository.TriggerCondition{
		Operator:  d.Operator,
		Values:    d.Values,
		Threshold: d.Threshold,
	}
}
