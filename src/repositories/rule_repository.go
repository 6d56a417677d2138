package repositories

import (
	"context"
	"fmt"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ruleColumns = `id, project_id, name, rule_kind, source_type, target_type,
	relationship_type, config, severity, is_active, created_at, updated_at`

type ValidationRuleRepository struct {
	pool *pgxpool.Pool
}

func NewValidationRuleRepository(pool *pgxpool.Pool) *ValidationRuleRepository {
	return &ValidationRuleRepository{pool: pool}
}

func scanRule(row pgx.Row) (entities.ValidationRule, error) {
	var rule entities.ValidationRule
	err := row.Scan(
		&rule.ID,
		&rule.ProjectID,
		&rule.Name,
		&rule.RuleKind,
		&rule.SourceType,
		&rule.TargetType,
		&rule.RelationshipType,
		&rule.Config,
		&rule.Severity,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	return rule, err
}

func (r *ValidationRuleRepository) Create(ctx context.Context, rule entities.ValidationRule) (*entities.ValidationRule, error) {
	query := fmt.Sprintf(`
		INSERT INTO validation_rules (project_id, name, rule_kind, source_type, target_type, relationship_type, config, severity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s`, ruleColumns)

	created, err := scanRule(r.pool.QueryRow(ctx, query,
		rule.ProjectID, rule.Name, rule.RuleKind, rule.SourceType, rule.TargetType,
		rule.RelationshipType, rule.Config, rule.Severity, rule.IsActive))
	if err != nil {
		return nil, fmt.Errorf("ValidationRuleRepository.Create - insert failed: %w", err)
	}
	return &created, nil
}

func (r *ValidationRuleRepository) GetByID(ctx context.Context, id int64) (*entities.ValidationRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM validation_rules WHERE id = $1`, ruleColumns)

	rule, err := scanRule(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("ValidationRuleRepository.GetByID - rule %d: %w", id, domain.ErrRuleNotFound)
		}
		return nil, fmt.Errorf("ValidationRuleRepository.GetByID - query failed: %w", err)
	}
	return &rule, nil
}

// ListActiveForProject returns the rules applicable to a project: global rules
// (empty project_id) plus the project's own, optionally narrowed by kind.
func (r *ValidationRuleRepository) ListActiveForProject(ctx context.Context, projectID string, kinds []entities.RuleKind) ([]entities.ValidationRule, error) {
	args := []interface{}{projectID}
	query := fmt.Sprintf(`SELECT %s FROM validation_rules WHERE is_active AND (project_id = '' OR project_id = $1)`, ruleColumns)

	if len(kinds) > 0 {
		kindStrings := make([]string, len(kinds))
		for i, kind := range kinds {
			kindStrings[i] = string(kind)
		}
		args = append(args, kindStrings)
		query += fmt.Sprintf(" AND rule_kind = ANY($%d)", len(args))
	}

	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ValidationRuleRepository.ListActiveForProject - query failed: %w", err)
	}
	defer rows.Close()

	var rules []entities.ValidationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("ValidationRuleRepository.ListActiveForProject - scan failed: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *ValidationRuleRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE validation_rules SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ValidationRuleRepository.Deactivate - update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ValidationRuleRepository.Deactivate - rule %d: %w", id, domain.ErrRuleNotFound)
	}
	return nil
}
