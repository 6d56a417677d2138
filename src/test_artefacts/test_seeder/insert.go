package test_seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

// InsertRelationshipType registers a relationship type code for testing.
func (ts TestSeeder) InsertRelationshipType(ctx context.Context, relType *entities.RelationshipType) {
	query := `
		INSERT INTO relationship_types (code, category, allowed_source_types, allowed_target_types, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	err := ts.pool.QueryRow(ctx, query,
		relType.Code,
		relType.Category,
		relType.AllowedSourceTypes,
		relType.AllowedTargetTypes,
		relType.IsActive,
	).Scan(&relType.ID)

	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertRelationshipType failed: %v", err))
	}
}

// InsertEdge writes an edge row directly, bypassing service validation.
func (ts TestSeeder) InsertEdge(ctx context.Context, edge *entities.Edge) {
	query := `
		INSERT INTO entity_relationships (project_id, source_type, source_id, target_type, target_id,
			relationship_type, strength, is_bidirectional, attributes, status, is_active,
			source, confidence_score, valid_from, valid_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`

	err := ts.pool.QueryRow(ctx, query,
		edge.ProjectID,
		edge.SourceType,
		edge.SourceID,
		edge.TargetType,
		edge.TargetID,
		edge.RelationshipType,
		edge.Strength,
		edge.IsBidirectional,
		edge.Attributes,
		edge.Status,
		edge.IsActive,
		edge.Source,
		edge.ConfidenceScore,
		edge.ValidFrom,
		edge.ValidTo,
	).Scan(&edge.ID, &edge.CreatedAt, &edge.UpdatedAt)

	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertEdge failed: %v", err))
	}
}

// InsertRule writes a validation rule row.
func (ts TestSeeder) InsertRule(ctx context.Context, rule *entities.ValidationRule) {
	query := `
		INSERT INTO validation_rules (project_id, name, rule_kind, source_type, target_type,
			relationship_type, config, severity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := ts.pool.QueryRow(ctx, query,
		rule.ProjectID,
		rule.Name,
		rule.RuleKind,
		rule.SourceType,
		rule.TargetType,
		rule.RelationshipType,
		rule.Config,
		rule.Severity,
		rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertRule failed: %v", err))
	}
}

// InsertSet writes a relationship set row.
func (ts TestSeeder) InsertSet(ctx context.Context, set *entities.RelationshipSet) {
	query := `
		INSERT INTO relationship_sets (public_id, project_id, name, description, category,
			tags, is_template, requires_all_members, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := ts.pool.QueryRow(ctx, query,
		set.PublicID,
		set.ProjectID,
		set.Name,
		set.Description,
		set.Category,
		set.Tags,
		set.IsTemplate,
		set.RequiresAllMembers,
		set.IsActive,
	).Scan(&set.ID, &set.CreatedAt, &set.UpdatedAt)

	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertSet failed: %v", err))
	}
}

// InsertMember writes a set member row.
func (ts TestSeeder) InsertMember(ctx context.Context, member *entities.SetMember) {
	query := `
		INSERT INTO set_members (set_id, entity_type, entity_table, entity_id,
			filter_conditions, is_required, display_order, last_known_exists, attached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := ts.pool.QueryRow(ctx, query,
		member.SetID,
		member.EntityType,
		member.EntityTable,
		member.EntityID,
		member.FilterConditions,
		member.IsRequired,
		member.DisplayOrder,
		member.LastKnownExists,
		member.AttachedAt,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)

	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertMember failed: %v", err))
	}
}

// InsertGravityPipe seeds one survey record for sync-check tests.
func (ts TestSeeder) InsertGravityPipe(ctx context.Context, pipeID, projectID, material string, diameterMM int, createdAt time.Time) {
	query := `
		INSERT INTO gravity_pipes (pipe_id, project_id, material, diameter_mm, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := ts.pool.Exec(ctx, query, pipeID, projectID, material, diameterMM, createdAt); err != nil {
		panic(fmt.Sprintf("Seeder.InsertGravityPipe failed: %v", err))
	}
}

// InsertGravityStructure seeds one structure record for sync-check tests.
func (ts TestSeeder) InsertGravityStructure(ctx context.Context, structureID, projectID, kind, material string, createdAt time.Time) {
	query := `
		INSERT INTO gravity_structures (structure_id, project_id, structure_kind, material, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := ts.pool.Exec(ctx, query, structureID, projectID, kind, material, createdAt); err != nil {
		panic(fmt.Sprintf("Seeder.InsertGravityStructure failed: %v", err))
	}
}

// DeleteGravityPipe removes a record to simulate drift.
func (ts TestSeeder) DeleteGravityPipe(ctx context.Context, pipeID string) {
	if _, err := ts.pool.Exec(ctx, `DELETE FROM gravity_pipes WHERE pipe_id = $1`, pipeID); err != nil {
		panic(fmt.Sprintf("Seeder.DeleteGravityPipe failed: %v", err))
	}
}
