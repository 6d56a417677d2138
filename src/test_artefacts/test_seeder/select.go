package test_seeder

import (
	"context"

	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

// SelectEdgesByProject reads back every edge row of a project, including
// inactive ones, ordered by id.
func (ts TestSeeder) SelectEdgesByProject(ctx context.Context, projectID string) ([]entities.Edge, error) {
	query := `SELECT id, project_id, source_type, source_id, target_type, target_id,
			relationship_type, strength, is_bidirectional, attributes, status, is_active,
			source, confidence_score, valid_from, valid_to, created_at, updated_at
		FROM entity_relationships WHERE project_id = $1 ORDER BY id`

	rows, err := ts.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []entities.Edge
	for rows.Next() {
		var e entities.Edge
		err := rows.Scan(
			&e.ID,
			&e.ProjectID,
			&e.SourceType,
			&e.SourceID,
			&e.TargetType,
			&e.TargetID,
			&e.RelationshipType,
			&e.Strength,
			&e.IsBidirectional,
			&e.Attributes,
			&e.Status,
			&e.IsActive,
			&e.Source,
			&e.ConfidenceScore,
			&e.ValidFrom,
			&e.ValidTo,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}

	return edges, rows.Err()
}

// SelectViolationsByProject reads back the persisted validation violations of
// a project, ordered by id.
func (ts TestSeeder) SelectViolationsByProject(ctx context.Context, projectID string) ([]entities.ValidationViolation, error) {
	query := `SELECT id, public_id, rule_id, project_id, violation_type, severity,
			entity_type, entity_id, edge_id, message, details, status,
			resolved_by, resolved_notes, resolved_at, created_at
		FROM validation_violations WHERE project_id = $1 ORDER BY id`

	rows, err := ts.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []entities.ValidationViolation
	for rows.Next() {
		var v entities.ValidationViolation
		err := rows.Scan(
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
		if err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}

	return violations, rows.Err()
}

// SelectSetViolations reads back every sync-check violation of a set.
func (ts TestSeeder) SelectSetViolations(ctx context.Context, setID int64) ([]entities.SetViolation, error) {
	query := `SELECT id, public_id, set_id, member_id, violation_type, severity, message,
			details, status, resolved_by, resolved_notes, resolved_at, created_at
		FROM set_violations WHERE set_id = $1 ORDER BY id`

	rows, err := ts.pool.Query(ctx, query, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []entities.SetViolation
	for rows.Next() {
		var v entities.SetViolation
		err := rows.Scan(
			&v.ID,
			&v.PublicID,
			&v.SetID,
			&v.MemberID,
			&v.ViolationType,
			&v.Severity,
			&v.Message,
			&v.Details,
			&v.Status,
			&v.ResolvedBy,
			&v.ResolvedNotes,
			&v.ResolvedAt,
			&v.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}

	return violations, rows.Err()
}
