package repositories

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

type EdgeWriteRepository struct {
	writePool            *pgxpool.Pool
	cachedEdgeRepository *CachedEdgeRepository
}

func NewEdgeWriteRepository(writePool *pgxpool.Pool, cachedEdgeRepository *CachedEdgeRepository) *EdgeWriteRepository {
	return &EdgeWriteRepository{writePool: writePool, cachedEdgeRepository: cachedEdgeRepository}
}

const insertEdgeQuery = `
	INSERT INTO entity_relationships (
		project_id, source_type, source_id, target_type, target_id,
		relationship_type, strength, is_bidirectional, attributes, status,
		is_active, source, confidence_score, valid_from, valid_to
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	RETURNING ` + edgeColumns

// Insert persists a new edge. The partial unique index is the true duplicate
// enforcement: a unique violation here means a concurrent writer won the race,
// reported as ErrDuplicateEdge rather than a storage fault.
func (r *EdgeWriteRepository) Insert(ctx context.Context, edge entities.Edge) (*entities.Edge, error) {
	row := r.writePool.QueryRow(ctx, insertEdgeQuery,
		edge.ProjectID, edge.SourceType, edge.SourceID, edge.TargetType, edge.TargetID,
		edge.RelationshipType, edge.Strength, edge.IsBidirectional, edge.Attributes, edge.Status,
		edge.IsActive, edge.Source, edge.ConfidenceScore, edge.ValidFrom, edge.ValidTo,
	)

	created, err := scanEdge(row)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, fmt.Errorf("EdgeWriteRepository.Insert - identical active edge exists: %w", domain.ErrDuplicateEdge)
		}
		return nil, fmt.Errorf("EdgeWriteRepository.Insert - insert failed: %w", err)
	}

	r.invalidateProject(created.ProjectID)
	return &created, nil
}

// InsertBatch creates all edges in a single transaction; the first failure
// rolls back the whole batch.
func (r *EdgeWriteRepository) InsertBatch(ctx context.Context, edges []entities.Edge) ([]entities.Edge, error) {
	tx, err := r.writePool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("EdgeWriteRepository.InsertBatch - failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	created := make([]entities.Edge, 0, len(edges))
	projects := make(map[string]struct{})

	for i, edge := range edges {
		row := tx.QueryRow(ctx, insertEdgeQuery,
			edge.ProjectID, edge.SourceType, edge.SourceID, edge.TargetType, edge.TargetID,
			edge.RelationshipType, edge.Strength, edge.IsBidirectional, edge.Attributes, edge.Status,
			edge.IsActive, edge.Source, edge.ConfidenceScore, edge.ValidFrom, edge.ValidTo,
		)

		inserted, err := scanEdge(row)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return nil, fmt.Errorf("EdgeWriteRepository.InsertBatch - edge %d duplicates an active edge: %w", i, domain.ErrDuplicateEdge)
			}
			return nil, fmt.Errorf("EdgeWriteRepository.InsertBatch - insert %d failed: %w", i, err)
		}

		created = append(created, inserted)
		projects[inserted.ProjectID] = struct{}{}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("EdgeWriteRepository.InsertBatch - commit failed: %w", err)
	}

	for projectID := range projects {
		r.invalidateProject(projectID)
	}
	return created, nil
}

// FindByIdentity locates the newest edge carrying the identity tuple. With
// activeOnly=false it surfaces soft-deleted rows so the caller can resurrect
// instead of duplicating. Reads the write pool for read-your-writes behavior.
func (r *EdgeWriteRepository) FindByIdentity(ctx context.Context, projectID string, source, target domain.EntityRef, relationshipType string, activeOnly bool) (*entities.Edge, error) {
	conditions := `project_id = $1 AND source_type = $2 AND source_id = $3
		AND target_type = $4 AND target_id = $5 AND relationship_type = $6`
	if activeOnly {
		conditions += " AND is_active"
	} else {
		conditions += " AND NOT is_active"
	}

	query := fmt.Sprintf(`SELECT %s FROM entity_relationships WHERE %s ORDER BY updated_at DESC, id DESC LIMIT 1`,
		edgeColumns, conditions)

	edge, err := scanEdge(r.writePool.QueryRow(ctx, query,
		projectID, source.EntityType, source.EntityID, target.EntityType, target.EntityID, relationshipType))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("EdgeWriteRepository.FindByIdentity - query failed: %w", err)
	}

	return &edge, nil
}

// Resurrect reactivates a soft-deleted edge in place, applying the new
// request's optional fields to the existing row.
func (r *EdgeWriteRepository) Resurrect(ctx context.Context, id int64, req domain.CreateEdgeRequest) (*entities.Edge, error) {
	query := fmt.Sprintf(`
		UPDATE entity_relationships SET
			is_active = TRUE,
			status = $2,
			strength = $3,
			is_bidirectional = $4,
			attributes = COALESCE($5, attributes),
			source = $6,
			confidence_score = $7,
			valid_from = $8,
			valid_to = $9,
			updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, edgeColumns)

	row := r.writePool.QueryRow(ctx, query, id,
		entities.EdgeStatusActive, req.Strength, req.IsBidirectional, req.Attributes,
		req.Origin, req.ConfidenceScore, req.ValidFrom, req.ValidTo)

	edge, err := scanEdge(row)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("EdgeWriteRepository.Resurrect - edge %d: %w", id, domain.ErrEdgeNotFound)
		}
		return nil, fmt.Errorf("EdgeWriteRepository.Resurrect - update failed: %w", err)
	}

	r.invalidateProject(edge.ProjectID)
	return &edge, nil
}

// Update applies only the recognized mutable fields. Returns the updated edge.
func (r *EdgeWriteRepository) Update(ctx context.Context, id int64, fields domain.UpdateEdgeFields) (*entities.Edge, error) {
	assignments := make([]string, 0, 7)
	args := []interface{}{id}

	assign := func(column string, value interface{}) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Strength != nil {
		assign("strength", *fields.Strength)
	}
	if fields.IsBidirectional != nil {
		assign("is_bidirectional", *fields.IsBidirectional)
	}
	if fields.Attributes != nil {
		assign("attributes", fields.Attributes)
	}
	if fields.Status != nil {
		assign("status", *fields.Status)
	}
	if fields.ValidFrom != nil {
		assign("valid_from", *fields.ValidFrom)
	}
	if fields.ValidTo != nil {
		assign("valid_to", *fields.ValidTo)
	}
	if fields.IsActive != nil {
		assign("is_active", *fields.IsActive)
	}

	if len(assignments) == 0 {
		// Nothing recognized supplied: no-op, return current state.
		return NewEdgeQueryRepository(r.writePool).GetByID(ctx, id)
	}

	assignments = append(assignments, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE entity_relationships SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(assignments, ", "), edgeColumns)

	edge, err := scanEdge(r.writePool.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("EdgeWriteRepository.Update - edge %d: %w", id, domain.ErrEdgeNotFound)
		}
		return nil, fmt.Errorf("EdgeWriteRepository.Update - update failed: %w", err)
	}

	r.invalidateProject(edge.ProjectID)
	return &edge, nil
}

// Delete removes one edge. Soft delete flips it inactive (reversible through
// resurrection); hard delete removes the row permanently.
func (r *EdgeWriteRepository) Delete(ctx context.Context, id int64, mode domain.DeleteMode) error {
	var projectID string
	var err error

	if mode == domain.DeleteHard {
		err = r.writePool.QueryRow(ctx,
			`DELETE FROM entity_relationships WHERE id = $1 RETURNING project_id`, id).Scan(&projectID)
	} else {
		err = r.writePool.QueryRow(ctx,
			`UPDATE entity_relationships SET is_active = FALSE, status = $2, updated_at = NOW()
			 WHERE id = $1 RETURNING project_id`, id, entities.EdgeStatusDeleted).Scan(&projectID)
	}

	if err != nil {
		if postgres.IsNoRows(err) {
			return fmt.Errorf("EdgeWriteRepository.Delete - edge %d: %w", id, domain.ErrEdgeNotFound)
		}
		return fmt.Errorf("EdgeWriteRepository.Delete - delete failed: %w", err)
	}

	r.invalidateProject(projectID)
	return nil
}

// DeleteBatch removes the given edges in a single transaction and returns the
// affected count.
func (r *EdgeWriteRepository) DeleteBatch(ctx context.Context, ids []int64, mode domain.DeleteMode) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.writePool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("EdgeWriteRepository.DeleteBatch - failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var query string
	if mode == domain.DeleteHard {
		query = `DELETE FROM entity_relationships WHERE id = ANY($1) RETURNING project_id`
	} else {
		query = `UPDATE entity_relationships SET is_active = FALSE, status = 'deleted', updated_at = NOW()
			WHERE id = ANY($1) RETURNING project_id`
	}

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("EdgeWriteRepository.DeleteBatch - delete failed: %w", err)
	}

	var affected int64
	projects := make(map[string]struct{})
	for rows.Next() {
		var projectID string
		if err := rows.Scan(&projectID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("EdgeWriteRepository.DeleteBatch - scan failed: %w", err)
		}
		projects[projectID] = struct{}{}
		affected++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("EdgeWriteRepository.DeleteBatch - iteration failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("EdgeWriteRepository.DeleteBatch - commit failed: %w", err)
	}

	for projectID := range projects {
		r.invalidateProject(projectID)
	}
	return affected, nil
}

// Cache invalidation happens in the background, off the write latency path.
func (r *EdgeWriteRepository) invalidateProject(projectID string) {
	if r.cachedEdgeRepository == nil {
		return
	}

	go func() {
		if err := r.cachedEdgeRepository.InvalidateProject(context.Background(), projectID); err != nil {
			log.Printf("Failed to invalidate edge cache for project %s: %v", projectID, err)
		}
	}()
}
