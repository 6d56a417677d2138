package test_seeder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TestSeeder struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) TestSeeder {
	return TestSeeder{pool: pool}
}

func (ts TestSeeder) TruncateTables(ctx context.Context) {
	tables := []string{
		"set_violations",
		"set_rules",
		"set_members",
		"relationship_sets",
		"validation_violations",
		"validation_rules",
		"entity_relationships",
		"relationship_types",
		"gravity_pipes",
		"gravity_structures",
	}

	for _, table := range tables {
		_, err := ts.pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
		if err != nil {
			panic(fmt.Sprintf("Failed to truncate %s: %v", table, err))
		}
	}
}

// EnsureEntityTables creates the survey record tables the sync checks resolve
// members against. The engine itself never creates them; tests need a pair to
// exist.
func (ts TestSeeder) EnsureEntityTables(ctx context.Context) {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS gravity_pipes (
			pipe_id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL DEFAULT '',
			material TEXT,
			diameter_mm INT,
			slope NUMERIC,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS gravity_structures (
			structure_id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL DEFAULT '',
			structure_kind TEXT,
			material TEXT,
			rim_elevation NUMERIC,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := ts.pool.Exec(ctx, stmt); err != nil {
			panic(fmt.Sprintf("Failed to ensure entity tables: %v", err))
		}
	}
}
