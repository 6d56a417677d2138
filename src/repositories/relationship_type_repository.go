package repositories

import (
	"context"
	"fmt"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RelationshipTypeRepository reads the relationship type registry. The
// registry is configuration owned elsewhere; this engine only consults it.
type RelationshipTypeRepository struct {
	pool *pgxpool.Pool
}

func NewRelationshipTypeRepository(pool *pgxpool.Pool) *RelationshipTypeRepository {
	return &RelationshipTypeRepository{pool: pool}
}

const relationshipTypeColumns = `id, code, category, allowed_source_types, allowed_target_types, is_active, created_at, updated_at`

// GetByCode returns the descriptor for a code, or ErrInvalidRelationshipType
// when the code is unknown.
func (r *RelationshipTypeRepository) GetByCode(ctx context.Context, code string) (*entities.RelationshipType, error) {
	query := fmt.Sprintf(`SELECT %s FROM relationship_types WHERE code = $1`, relationshipTypeColumns)

	var rt entities.RelationshipType
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&rt.ID,
		&rt.Code,
		&rt.Category,
		&rt.AllowedSourceTypes,
		&rt.AllowedTargetTypes,
		&rt.IsActive,
		&rt.CreatedAt,
		&rt.UpdatedAt,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("RelationshipTypeRepository.GetByCode - code %q: %w", code, domain.ErrInvalidRelationshipType)
		}
		return nil, fmt.Errorf("RelationshipTypeRepository.GetByCode - query failed: %w", err)
	}

	return &rt, nil
}

func (r *RelationshipTypeRepository) ListActive(ctx context.Context) ([]entities.RelationshipType, error) {
	query := fmt.Sprintf(`SELECT %s FROM relationship_types WHERE is_active ORDER BY code`, relationshipTypeColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("RelationshipTypeRepository.ListActive - query failed: %w", err)
	}
	defer rows.Close()

	var types []entities.RelationshipType
	for rows.Next() {
		var rt entities.RelationshipType
		if err := rows.Scan(
			&rt.ID,
			&rt.Code,
			&rt.Category,
			&rt.AllowedSourceTypes,
			&rt.AllowedTargetTypes,
			&rt.IsActive,
			&rt.CreatedAt,
			&rt.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("RelationshipTypeRepository.ListActive - scan failed: %w", err)
		}
		types = append(types, rt)
	}

	return types, rows.Err()
}
