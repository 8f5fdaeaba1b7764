// Package repository persists organization scoring rules.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chatdesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Rule types.
const (
	TypeEmailDomain   = "email_domain"
	TypePhoneProvided = "phone_provided"
	TypeNotesLength   = "notes_length"
	TypeKeywordMatch  = "keyword_match"
	TypeResponseTime  = "response_time"
	TypeEngagement    = "engagement"
)

// Condition operators.
const (
	OpInList             = "in_list"
	OpNotInList          = "not_in_list"
	OpExists             = "exists"
	OpGreaterThan        = "greater_than"
	OpGreaterThanOrEqual = "greater_than_or_equal"
	OpLessThan           = "less_than"
	OpEquals             = "equals"
	OpContainsAny        = "contains_any"
	OpContainsAll        = "contains_all"
)

// TriggerCondition is the typed predicate a rule evaluates. Values is used
// by list and keyword operators, Threshold by numeric ones.
type TriggerCondition struct {
	Operator  string   `json:"operator"`
	Values    []string `json:"values,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
}

type Rule struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	RuleName         string
	RuleType         string
	TriggerCondition TriggerCondition
	ScoreChange      int
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ruleColumns = `id, organization_id, rule_name, rule_type, trigger_condition, score_change, is_active, created_at, updated_at`

func (r *Repository) ListActive(ctx context.Context, orgID uuid.UUID) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM scoring_rules
		WHERE organization_id = $1 AND is_active = TRUE
		ORDER BY created_at ASC`
	return r.list(ctx, query, orgID)
}

func (r *Repository) ListAll(ctx context.Context, orgID uuid.UUID) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM scoring_rules
		WHERE organization_id = $1
		ORDER BY created_at ASC`
	return r.list(ctx, query, orgID)
}

func (r *Repository) list(ctx context.Context, query string, orgID uuid.UUID) ([]Rule, error) {
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring rules: %w", err)
	}
	defer rows.Close()

	items := make([]Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scoring rules: %w", err)
	}

	return items, nil
}

func scanRule(row pgx.Row) (*Rule, error) {
	var rule Rule
	var condition []byte
	err := row.Scan(
		&rule.ID,
		&rule.OrganizationID,
		&rule.RuleName,
		&rule.RuleType,
		&condition,
		&rule.ScoreChange,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan scoring rule: %w", err)
	}
	if err := json.Unmarshal(condition, &rule.TriggerCondition); err != nil {
		return nil, fmt.Errorf("failed to decode trigger condition: %w", err)
	}
	return &rule, nil
}

type SeedRule struct {
	RuleName         string
	RuleType         string
	TriggerCondition TriggerCondition
	ScoreChange      int
}

// SeedDefaults inserts the default rule set for an organization. Concurrent
// seeders racing on the same organization are harmless: the unique
// (organization_id, rule_name) constraint swallows the duplicates.
func (r *Repository) SeedDefaults(ctx context.Context, orgID uuid.UUID, defaults []SeedRule) error {
	for _, d := range defaults {
		condition, err := json.Marshal(d.TriggerCondition)
		if err != nil {
			return fmt.Errorf("failed to encode trigger condition: %w", err)
		}

		_, err = r.pool.Exec(ctx, `
			INSERT INTO scoring_rules (id, organization_id, rule_name, rule_type, trigger_condition, score_change)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (organization_id, rule_name) DO NOTHING`,
			uuid.New(), orgID, d.RuleName, d.RuleType, condition, d.ScoreChange,
		)
		if err != nil {
			return fmt.Errorf("failed to seed scoring rule %q: %w", d.RuleName, err)
		}
	}
	return nil
}

type CreateRuleParams struct {
	OrganizationID   uuid.UUID
	RuleName         string
	RuleType         string
	TriggerCondition TriggerCondition
	ScoreChange      int
}

func (r *Repository) Create(ctx context.Context, p CreateRuleParams) (*Rule, error) {
	condition, err := json.Marshal(p.TriggerCondition)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trigger condition: %w", err)
	}

	query := `
		INSERT INTO scoring_rules (id, organization_id, rule_name, rule_type, trigger_condition, score_change)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + ruleColumns

	rule, err := scanRule(r.pool.QueryRow(ctx, query,
		uuid.New(), p.OrganizationID, p.RuleName, p.RuleType, condition, p.ScoreChange,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring rule: %w", err)
	}
	return rule, nil
}

type UpdateRuleParams struct {
	TriggerCondition TriggerCondition
	ScoreChange      int
	IsActive         bool
}

func (r *Repository) Update(ctx context.Context, orgID, ruleID uuid.UUID, p UpdateRuleParams) (*Rule, error) {
	condition, err := json.Marshal(p.TriggerCondition)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trigger condition: %w", err)
	}

	query := `
		UPDATE scoring_rules
		SET trigger_condition = $3, score_change = $4, is_active = $5, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING ` + ruleColumns

	rule, err := scanRule(r.pool.QueryRow(ctx, query, ruleID, orgID, condition, p.ScoreChange, p.IsActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("scoring rule not found")
		}
		return nil, fmt.Errorf("failed to update scoring rule: %w", err)
	}
	return rule, nil
}

func (r *Repository) Delete(ctx context.Context, orgID, ruleID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM scoring_rules WHERE id = $1 AND organization_id = $2`,
		ruleID, orgID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete scoring rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("scoring rule not found")
	}
	return nil
}
