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

const edgeColumns = `id, project_id, source_type, source_id, target_type, target_id,
	relationship_type, strength, is_bidirectional, attributes, status, is_active,
	source, confidence_score, valid_from, valid_to, created_at, updated_at`

type EdgeQueryRepository struct {
	pool *pgxpool.Pool
}

func NewEdgeQueryRepository(pool *pgxpool.Pool) *EdgeQueryRepository {
	return &EdgeQueryRepository{pool: pool}
}

func scanEdge(row pgx.Row) (entities.Edge, error) {
	var edge entities.Edge
	err := row.Scan(
		&edge.ID,
		&edge.ProjectID,
		&edge.SourceType,
		&edge.SourceID,
		&edge.TargetType,
		&edge.TargetID,
		&edge.RelationshipType,
		&edge.Strength,
		&edge.IsBidirectional,
		&edge.Attributes,
		&edge.Status,
		&edge.IsActive,
		&edge.Source,
		&edge.ConfidenceScore,
		&edge.ValidFrom,
		&edge.ValidTo,
		&edge.CreatedAt,
		&edge.UpdatedAt,
	)
	return edge, err
}

func collectEdges(rows pgx.Rows) ([]entities.Edge, error) {
	defer rows.Close()

	var edges []entities.Edge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

func (r *EdgeQueryRepository) GetByID(ctx context.Context, id int64) (*entities.Edge, error) {
	query := fmt.Sprintf(`SELECT %s FROM entity_relationships WHERE id = $1`, edgeColumns)

	edge, err := scanEdge(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("EdgeQueryRepository.GetByID - edge %d: %w", id, domain.ErrEdgeNotFound)
		}
		return nil, fmt.Errorf("EdgeQueryRepository.GetByID - query failed: %w", err)
	}

	return &edge, nil
}

// List returns edges newest-first, narrowed by the given filters and paginated.
func (r *EdgeQueryRepository) List(ctx context.Context, filters domain.EdgeFilters, limit, offset int) ([]entities.Edge, error) {
	conditions := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)

	addCondition := func(column, value string) {
		if value != "" {
			args = append(args, value)
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}

	addCondition("project_id", filters.ProjectID)
	addCondition("source_type", filters.SourceType)
	addCondition("source_id", filters.SourceID)
	addCondition("target_type", filters.TargetType)
	addCondition("target_id", filters.TargetID)
	addCondition("relationship_type", filters.RelationshipType)

	if !filters.IncludeInactive {
		conditions = append(conditions, "is_active")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM entity_relationships %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		edgeColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("EdgeQueryRepository.List - query failed: %w", err)
	}

	edges, err := collectEdges(rows)
	if err != nil {
		return nil, fmt.Errorf("EdgeQueryRepository.List - scan failed: %w", err)
	}
	return edges, nil
}

// ListByProject loads every active edge of a project. Traversal materializes
// its adjacency from this snapshot; a long traversal may see a store that
// changed mid-run.
func (r *EdgeQueryRepository) ListByProject(ctx context.Context, projectID string) ([]entities.Edge, error) {
	query := fmt.Sprintf(`SELECT %s FROM entity_relationships WHERE project_id = $1 AND is_active ORDER BY id`, edgeColumns)

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("EdgeQueryRepository.ListByProject - query failed: %w", err)
	}

	edges, err := collectEdges(rows)
	if err != nil {
		return nil, fmt.Errorf("EdgeQueryRepository.ListByProject - scan failed: %w", err)
	}
	return edges, nil
}

// ListTouching returns the active edges where the given reference appears on
// the requested side. Bidirectional edges count for both sides.
func (r *EdgeQueryRepository) ListTouching(ctx context.Context, ref domain.EntityRef, projectID, relationshipType string, direction entities.EdgeDirection) ([]entities.Edge, error) {
	args := []interface{}{ref.EntityType, ref.EntityID}

	outgoing := "(source_type = $1 AND source_id = $2)"
	incoming := "(target_type = $1 AND target_id = $2)"
	bidirectional := "(is_bidirectional AND (" + outgoing + " OR " + incoming + "))"

	var sideClause string
	switch direction {
	case entities.DirectionOutgoing:
		sideClause = "(" + outgoing + " OR " + bidirectional + ")"
	case entities.DirectionIncoming:
		sideClause = "(" + incoming + " OR " + bidirectional + ")"
	default:
		sideClause = "(" + outgoing + " OR " + incoming + ")"
	}

	conditions := []string{"is_active", sideClause}

	if projectID != "" {
		args = append(args, projectID)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if relationshipType != "" {
		args = append(args, relationshipType)
		conditions = append(conditions, fmt.Sprintf("relationship_type = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM entity_relationships WHERE %s ORDER BY created_at DESC, id DESC`,
		edgeColumns, strings.Join(conditions, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("EdgeQueryRepository.ListTouching - query failed: %w", err)
	}

	edges, err := collectEdges(rows)
	if err != nil {
		return nil, fmt.Errorf("EdgeQueryRepository.ListTouching - scan failed: %w", err)
	}
	return edges, nil
}
