package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const violationColumns = `id, public_id, rule_id, project_id, violation_type, severity,
	entity_type, entity_id, edge_id, message, details, status,
	resolved_by, resolved_notes, resolved_at, created_at`

type ValidationViolationRepository struct {
	writePool *pgxpool.Pool
}

func NewValidationViolationRepository(writePool *pgxpool.Pool) *ValidationViolationRepository {
	return &ValidationViolationRepository{writePool: writePool}
}

func scanViolation(row pgx.Row) (entities.ValidationViolation, error) {
	var v entities.ValidationViolation
	err := row.Scan(
		&v.ID,
		&v.PublicID,
		&v.RuleID,
		&v.ProjectID,
		&v.ViolationType,
		&v.Severity,
		&v.EntityType,
		&v.EntityID,
		&v.EdgeID,
		&v.Message,
		&v.Details,
		&v.Status,
		&v.ResolvedBy,
		&v.ResolvedNotes,
		&v.ResolvedAt,
		&v.CreatedAt,
	)
	return v, err
}

// ReplaceForProject swaps the project's violations for the evaluated rule
// kinds wholesale, in one transaction. Runs are not diffed: each run clears
// what the previous run recorded and persists the fresh findings.
func (r *ValidationViolationRepository) ReplaceForProject(ctx context.Context, projectID string, kinds []entities.RuleKind, violations []entities.ValidationViolation) error {
	tx, err := r.writePool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ValidationViolationRepository.ReplaceForProject - failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	deleteQuery := `
		DELETE FROM validation_violations v
		USING validation_rules r
		WHERE v.rule_id = r.id AND v.project_id = $1`
	deleteArgs := []interface{}{projectID}

	if len(kinds) > 0 {
		kindStrings := make([]string, len(kinds))
		for i, kind := range kinds {
			kindStrings[i] = string(kind)
		}
		deleteArgs = append(deleteArgs, kindStrings)
		deleteQuery += fmt.Sprintf(" AND r.rule_kind = ANY($%d)", len(deleteArgs))
	}

	if _, err := tx.Exec(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("ValidationViolationRepository.ReplaceForProject - clear failed: %w", err)
	}

	for i, v := range violations {
		_, err := tx.Exec(ctx, `
			INSERT INTO validation_violations (public_id, rule_id, project_id, violation_type, severity, entity_type, entity_id, edge_id, message, details, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			v.PublicID, v.RuleID, v.ProjectID, v.ViolationType, v.Severity,
			v.EntityType, v.EntityID, v.EdgeID, v.Message, v.Details, entities.ViolationStatusOpen)
		if err != nil {
			return fmt.Errorf("ValidationViolationRepository.ReplaceForProject - insert %d failed: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ValidationViolationRepository.ReplaceForProject - commit failed: %w", err)
	}
	return nil
}

// ViolationFilters narrows violation listings; zero values mean "no filter".
type ViolationFilters struct {
	ProjectID string
	RuleID    int64
	Status    string
	Severity  string
}

func (r *ValidationViolationRepository) List(ctx context.Context, filters ViolationFilters, limit, offset int) ([]entities.ValidationViolation, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)

	if filters.ProjectID != "" {
		args = append(args, filters.ProjectID)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filters.RuleID != 0 {
		args = append(args, filters.RuleID)
		conditions = append(conditions, fmt.Sprintf("rule_id = $%d", len(args)))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.Severity != "" {
		args = append(args, filters.Severity)
		conditions = append(conditions, fmt.Sprintf("severity = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM validation_violations %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		violationColumns, where, len(args)-1, len(args))

	rows, err := r.writePool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ValidationViolationRepository.List - query failed: %w", err)
	}
	defer rows.Close()

	var violations []entities.ValidationViolation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, fmt.Errorf("ValidationViolationRepository.List - scan failed: %w", err)
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

// Resolve closes a violation with resolver attribution. Violations otherwise
// persist until the owning rule is re-run or deleted.
func (r *ValidationViolationRepository) Resolve(ctx context.Context, publicID, resolvedBy, notes string) (*entities.ValidationViolation, error) {
	query := fmt.Sprintf(`
		UPDATE validation_violations
		SET status = $2, resolved_by = $3, resolved_notes = $4, resolved_at = NOW()
		WHERE public_id = $1
		RETURNING %s`, violationColumns)

	v, err := scanViolation(r.writePool.QueryRow(ctx, query, publicID, entities.ViolationStatusResolved, resolvedBy, notes))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("ValidationViolationRepository.Resolve - violation %s not found: %w", publicID, domain.ErrRuleNotFound)
		}
		return nil, fmt.Errorf("ValidationViolationRepository.Resolve - update failed: %w", err)
	}
	return &v, nil
}

// CountOpenBySeverity feeds the analytics health score.
func (r *ValidationViolationRepository) CountOpenBySeverity(ctx context.Context, projectID string) (map[string]int, error) {
	query := `SELECT severity, COUNT(*) FROM validation_violations
		WHERE project_id = $1 AND status = 'open' GROUP BY severity`

	rows, err := r.writePool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("ValidationViolationRepository.CountOpenBySeverity - query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("ValidationViolationRepository.CountOpenBySeverity - scan failed: %w", err)
		}
		counts[severity] = count
	}
	return counts, rows.Err()
}
