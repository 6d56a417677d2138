package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/registry"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EntityStoreRepository reads the externally-owned entity tables referenced by
// edges and set members. Every table and column identifier that reaches SQL
// here has passed the entity type registry or the live-schema whitelist; the
// repository refuses to build a query from anything else.
type EntityStoreRepository struct {
	pool         *pgxpool.Pool
	typeRegistry *registry.EntityTypeRegistry
}

func NewEntityStoreRepository(pool *pgxpool.Pool, typeRegistry *registry.EntityTypeRegistry) *EntityStoreRepository {
	return &EntityStoreRepository{pool: pool, typeRegistry: typeRegistry}
}

func (r *EntityStoreRepository) binding(entityType string) (registry.TableBinding, error) {
	binding, ok := r.typeRegistry.Lookup(entityType)
	if !ok {
		return registry.TableBinding{}, fmt.Errorf("EntityStoreRepository - type %q: %w", entityType, domain.ErrInvalidEntityType)
	}
	return binding, nil
}

// Exists reports whether the referenced row is still present.
func (r *EntityStoreRepository) Exists(ctx context.Context, entityType, entityID string) (bool, error) {
	binding, err := r.binding(entityType)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`, binding.Table, binding.PrimaryKey)

	var exists bool
	if err := r.pool.QueryRow(ctx, query, entityID).Scan(&exists); err != nil {
		return false, fmt.Errorf("EntityStoreRepository.Exists - query failed: %w", err)
	}
	return exists, nil
}

// FetchAttribute reads one named column of the referenced row. The column must
// already have passed the schema whitelist; the identifier pattern is
// re-checked here as a backstop.
func (r *EntityStoreRepository) FetchAttribute(ctx context.Context, entityType, entityID, column string) (interface{}, bool, error) {
	binding, err := r.binding(entityType)
	if err != nil {
		return nil, false, err
	}

	if !identifierPattern.MatchString(column) {
		return nil, false, fmt.Errorf("EntityStoreRepository.FetchAttribute - column %q: %w", column, domain.ErrInvalidFilterColumn)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, column, binding.Table, binding.PrimaryKey)

	var value interface{}
	if err := r.pool.QueryRow(ctx, query, entityID).Scan(&value); err != nil {
		if postgres.IsNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("EntityStoreRepository.FetchAttribute - query failed: %w", err)
	}
	return value, true, nil
}

// CountByConditions counts rows matching sanitized filter conditions. Values
// travel as bound parameters only.
func (r *EntityStoreRepository) CountByConditions(ctx context.Context, entityType string, conditions []FindCondition) (int, error) {
	binding, err := r.binding(entityType)
	if err != nil {
		return 0, err
	}

	where, args := buildConditionClause(conditions)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, binding.Table, where)

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("EntityStoreRepository.CountByConditions - query failed: %w", err)
	}
	return count, nil
}

// QueryIDs returns primary keys of rows matching the sanitized conditions.
func (r *EntityStoreRepository) QueryIDs(ctx context.Context, entityType string, conditions []FindCondition, limit int) ([]string, error) {
	binding, err := r.binding(entityType)
	if err != nil {
		return nil, err
	}

	where, args := buildConditionClause(conditions)
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY %s LIMIT $%d`,
		binding.PrimaryKey, binding.Table, where, binding.PrimaryKey, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("EntityStoreRepository.QueryIDs - query failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("EntityStoreRepository.QueryIDs - scan failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindCreatedAfter lists rows created after the given instant, newest first.
// The link-integrity check uses this as the branch/rebuild heuristic: a row
// that vanished may have been recreated under a new id.
func (r *EntityStoreRepository) FindCreatedAfter(ctx context.Context, entityType string, after time.Time, limit int) ([]string, error) {
	binding, err := r.binding(entityType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE created_at > $1 ORDER BY created_at DESC LIMIT $2`,
		binding.PrimaryKey, binding.Table)

	rows, err := r.pool.Query(ctx, query, after, limit)
	if err != nil {
		return nil, fmt.Errorf("EntityStoreRepository.FindCreatedAfter - query failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("EntityStoreRepository.FindCreatedAfter - scan failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TableColumns implements SchemaSource against the store's own catalog. The
// table name is validated against the entity type registry before it is used.
func (r *EntityStoreRepository) TableColumns(ctx context.Context, table string) ([]string, error) {
	if !r.typeRegistry.IsValidTable(table) {
		return nil, fmt.Errorf("EntityStoreRepository.TableColumns - table %q is not registered: %w", table, domain.ErrInvalidEntityType)
	}

	query := `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`

	rows, err := r.pool.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("EntityStoreRepository.TableColumns - query failed: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("EntityStoreRepository.TableColumns - scan failed: %w", err)
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

func buildConditionClause(conditions []FindCondition) (string, []interface{}) {
	if len(conditions) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(conditions))
	args := make([]interface{}, 0, len(conditions))
	for _, condition := range conditions {
		args = append(args, condition.Value)
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", condition.Field, condition.Operator, len(args)))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}
