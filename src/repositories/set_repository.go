package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const setColumns = `id, public_id, project_id, name, description, category, tags,
	is_template, requires_all_members, is_active, created_at, updated_at`

const memberColumns = `id, set_id, entity_type, entity_table, entity_id, filter_conditions,
	is_required, display_order, last_known_exists, attached_at, created_at, updated_at`

const setRuleColumns = `id, set_id, rule_kind, attribute_name, match_kind, expected_value, severity, is_active, created_at`

const setViolationColumns = `id, public_id, set_id, member_id, violation_type, severity,
	message, details, status, resolved_by, resolved_notes, resolved_at, created_at`

type SetRepository struct {
	writePool *pgxpool.Pool
}

func NewSetRepository(writePool *pgxpool.Pool) *SetRepository {
	return &SetRepository{writePool: writePool}
}

func scanSet(row pgx.Row) (entities.RelationshipSet, error) {
	var set entities.RelationshipSet
	err := row.Scan(
		&set.ID,
		&set.PublicID,
		&set.ProjectID,
		&set.Name,
		&set.Description,
		&set.Category,
		&set.Tags,
		&set.IsTemplate,
		&set.RequiresAllMembers,
		&set.IsActive,
		&set.CreatedAt,
		&set.UpdatedAt,
	)
	return set, err
}

func scanMember(row pgx.Row) (entities.SetMember, error) {
	var member entities.SetMember
	err := row.Scan(
		&member.ID,
		&member.SetID,
		&member.EntityType,
		&member.EntityTable,
		&member.EntityID,
		&member.FilterConditions,
		&member.IsRequired,
		&member.DisplayOrder,
		&member.LastKnownExists,
		&member.AttachedAt,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	return member, err
}

func scanSetRule(row pgx.Row) (entities.SetRule, error) {
	var rule entities.SetRule
	err := row.Scan(
		&rule.ID,
		&rule.SetID,
		&rule.RuleKind,
		&rule.AttributeName,
		&rule.MatchKind,
		&rule.ExpectedValue,
		&rule.Severity,
		&rule.IsActive,
		&rule.CreatedAt,
	)
	return rule, err
}

func scanSetViolation(row pgx.Row) (entities.SetViolation, error) {
	var v entities.SetViolation
	err := row.Scan(
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
	return v, err
}

// ############################################################
// ######################## SETS ##############################
// ############################################################

func (r *SetRepository) CreateSet(ctx context.Context, set entities.RelationshipSet) (*entities.RelationshipSet, error) {
	query := fmt.Sprintf(`
		INSERT INTO relationship_sets (public_id, project_id, name, description, category, tags, is_template, requires_all_members, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING %s`, setColumns)

	created, err := scanSet(r.writePool.QueryRow(ctx, query,
		set.PublicID, set.ProjectID, set.Name, set.Description, set.Category, set.Tags,
		set.IsTemplate, set.RequiresAllMembers))
	if err != nil {
		return nil, fmt.Errorf("SetRepository.CreateSet - insert failed: %w", err)
	}
	return &created, nil
}

func (r *SetRepository) GetSet(ctx context.Context, id int64) (*entities.RelationshipSet, error) {
	query := fmt.Sprintf(`SELECT %s FROM relationship_sets WHERE id = $1`, setColumns)

	set, err := scanSet(r.writePool.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("SetRepository.GetSet - set %d: %w", id, domain.ErrSetNotFound)
		}
		return nil, fmt.Errorf("SetRepository.GetSet - query failed: %w", err)
	}
	return &set, nil
}

// SetFilters narrows set listings; nil booleans mean "either".
type SetFilters struct {
	ProjectID  string
	Category   string
	IsTemplate *bool
	ActiveOnly bool
}

func (r *SetRepository) ListSets(ctx context.Context, filters SetFilters, limit, offset int) ([]entities.RelationshipSet, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)

	if filters.ProjectID != "" {
		args = append(args, filters.ProjectID)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filters.Category != "" {
		args = append(args, filters.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filters.IsTemplate != nil {
		args = append(args, *filters.IsTemplate)
		conditions = append(conditions, fmt.Sprintf("is_template = $%d", len(args)))
	}
	if filters.ActiveOnly {
		conditions = append(conditions, "is_active")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM relationship_sets %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		setColumns, where, len(args)-1, len(args))

	rows, err := r.writePool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SetRepository.ListSets - query failed: %w", err)
	}
	defer rows.Close()

	var sets []entities.RelationshipSet
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, fmt.Errorf("SetRepository.ListSets - scan failed: %w", err)
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

func (r *SetRepository) DeleteSet(ctx context.Context, id int64, mode domain.DeleteMode) error {
	var query string
	if mode == domain.DeleteHard {
		// FK cascades remove members, rules and violations with the set.
		query = `DELETE FROM relationship_sets WHERE id = $1`
	} else {
		query = `UPDATE relationship_sets SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	}

	result, err := r.writePool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("SetRepository.DeleteSet - delete failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("SetRepository.DeleteSet - set %d: %w", id, domain.ErrSetNotFound)
	}
	return nil
}

// ############################################################
// ####################### MEMBERS ############################
// ############################################################

func (r *SetRepository) AddMember(ctx context.Context, member entities.SetMember) (*entities.SetMember, error) {
	query := fmt.Sprintf(`
		INSERT INTO set_members (set_id, entity_type, entity_table, entity_id, filter_conditions, is_required, display_order, last_known_exists, attached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW())
		RETURNING %s`, memberColumns)

	created, err := scanMember(r.writePool.QueryRow(ctx, query,
		member.SetID, member.EntityType, member.EntityTable, member.EntityID,
		member.FilterConditions, member.IsRequired, member.DisplayOrder))
	if err != nil {
		return nil, fmt.Errorf("SetRepository.AddMember - insert failed: %w", err)
	}
	return &created, nil
}

func (r *SetRepository) ListMembers(ctx context.Context, setID int64) ([]entities.SetMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM set_members WHERE set_id = $1 ORDER BY display_order, id`, memberColumns)

	rows, err := r.writePool.Query(ctx, query, setID)
	if err != nil {
		return nil, fmt.Errorf("SetRepository.ListMembers - query failed: %w", err)
	}
	defer rows.Close()

	var members []entities.SetMember
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("SetRepository.ListMembers - scan failed: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (r *SetRepository) RemoveMember(ctx context.Context, memberID int64) error {
	result, err := r.writePool.Exec(ctx, `DELETE FROM set_members WHERE id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("SetRepository.RemoveMember - delete failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("SetRepository.RemoveMember - member %d: %w", memberID, domain.ErrSetNotFound)
	}
	return nil
}

// UpdateMemberExistence records the latest existence observation from a sync check.
func (r *SetRepository) UpdateMemberExistence(ctx context.Context, memberID int64, exists bool) error {
	_, err := r.writePool.Exec(ctx,
		`UPDATE set_members SET last_known_exists = $2, updated_at = NOW() WHERE id = $1`, memberID, exists)
	if err != nil {
		return fmt.Errorf("SetRepository.UpdateMemberExistence - update failed: %w", err)
	}
	return nil
}

// ############################################################
// ######################## RULES #############################
// ############################################################

func (r *SetRepository) AddRule(ctx context.Context, rule entities.SetRule) (*entities.SetRule, error) {
	query := fmt.Sprintf(`
		INSERT INTO set_rules (set_id, rule_kind, attribute_name, match_kind, expected_value, severity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING %s`, setRuleColumns)

	created, err := scanSetRule(r.writePool.QueryRow(ctx, query,
		rule.SetID, rule.RuleKind, rule.AttributeName, rule.MatchKind, rule.ExpectedValue, rule.Severity))
	if err != nil {
		return nil, fmt.Errorf("SetRepository.AddRule - insert failed: %w", err)
	}
	return &created, nil
}

func (r *SetRepository) ListRules(ctx context.Context, setID int64) ([]entities.SetRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM set_rules WHERE set_id = $1 AND is_active ORDER BY id`, setRuleColumns)

	rows, err := r.writePool.Query(ctx, query, setID)
	if err != nil {
		return nil, fmt.Errorf("SetRepository.ListRules - query failed: %w", err)
	}
	defer rows.Close()

	var rules []entities.SetRule
	for rows.Next() {
		rule, err := scanSetRule(rows)
		if err != nil {
			return nil, fmt.Errorf("SetRepository.ListRules - scan failed: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// ############################################################
// ###################### TEMPLATES ###########################
// ############################################################

// CloneTemplate copies a template's members and rules into a new
// project-scoped set, in one transaction.
func (r *SetRepository) CloneTemplate(ctx context.Context, templateID int64, projectID, name string) (*entities.RelationshipSet, error) {
	tx, err := r.writePool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("SetRepository.CloneTemplate - failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	template, err := scanSet(tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM relationship_sets WHERE id = $1 AND is_template AND is_active`, setColumns), templateID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("SetRepository.CloneTemplate - template %d: %w", templateID, domain.ErrSetNotFound)
		}
		return nil, fmt.Errorf("SetRepository.CloneTemplate - template query failed: %w", err)
	}

	if name == "" {
		name = template.Name
	}

	created, err := scanSet(tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO relationship_sets (public_id, project_id, name, description, category, tags, is_template, requires_all_members, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, TRUE)
		RETURNING %s`, setColumns),
		uuid.NewString(), projectID, name, template.Description, template.Category, template.Tags, template.RequiresAllMembers))
	if err != nil {
		return nil, fmt.Errorf("SetRepository.CloneTemplate - set insert failed: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO set_members (set_id, entity_type, entity_table, entity_id, filter_conditions, is_required, display_order, last_known_exists, attached_at)
		SELECT $2, entity_type, entity_table, entity_id, filter_conditions, is_required, display_order, TRUE, NOW()
		FROM set_members WHERE set_id = $1`, templateID, created.ID)
	if err != nil {
		return nil, fmt.Errorf("SetRepository.CloneTemplate - member copy failed: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO set_rules (set_id, rule_kind, attribute_name, match_kind, expected_value, severity, is_active)
		SELECT $2, rule_kind, attribute_name, match_kind, expected_value, severity, is_active
		FROM set_rules WHERE set_id = $1 AND is_active`, templateID, created.ID)
	if err != nil {
		return nil, fmt.Errorf("SetRepository.CloneTemplate - rule copy failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("SetRepository.CloneTemplate - commit failed: %w", err)
	}
	return &created, nil
}

// ############################################################
// ##################### VIOLATIONS ###########################
// ############################################################

// ReplaceViolations clears the set's previous findings and persists the fresh
// union, in one transaction. A concurrent reader may observe the transient
// empty state between clear and insert; callers wanting a stable view must not
// overlap runs on the same set.
func (r *SetRepository) ReplaceViolations(ctx context.Context, setID int64, violations []entities.SetViolation) error {
	tx, err := r.writePool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("SetRepository.ReplaceViolations - failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM set_violations WHERE set_id = $1`, setID); err != nil {
		return fmt.Errorf("SetRepository.ReplaceViolations - clear failed: %w", err)
	}

	for i, v := range violations {
		_, err := tx.Exec(ctx, `
			INSERT INTO set_violations (public_id, set_id, member_id, violation_type, severity, message, details, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			v.PublicID, v.SetID, v.MemberID, v.ViolationType, v.Severity, v.Message, v.Details, entities.ViolationStatusOpen)
		if err != nil {
			return fmt.Errorf("SetRepository.ReplaceViolations - insert %d failed: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("SetRepository.ReplaceViolations - commit failed: %w", err)
	}
	return nil
}

func (r *SetRepository) ListViolations(ctx context.Context, setID int64, status string) ([]entities.SetViolation, error) {
	args := []interface{}{setID}
	query := fmt.Sprintf(`SELECT %s FROM set_violations WHERE set_id = $1`, setViolationColumns)

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.writePool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SetRepository.ListViolations - query failed: %w", err)
	}
	defer rows.Close()

	var violations []entities.SetViolation
	for rows.Next() {
		v, err := scanSetViolation(rows)
		if err != nil {
			return nil, fmt.Errorf("SetRepository.ListViolations - scan failed: %w", err)
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

// CountOpenBySeverityForProject aggregates open drift findings across all of a
// project's sets, for the analytics health score.
func (r *SetRepository) CountOpenBySeverityForProject(ctx context.Context, projectID string) (map[string]int, error) {
	query := `SELECT sv.severity, COUNT(*)
		FROM set_violations sv
		JOIN relationship_sets rs ON rs.id = sv.set_id
		WHERE rs.project_id = $1 AND sv.status = 'open'
		GROUP BY sv.severity`

	rows, err := r.writePool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("SetRepository.CountOpenBySeverityForProject - query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("SetRepository.CountOpenBySeverityForProject - scan failed: %w", err)
		}
		counts[severity] = count
	}
	return counts, rows.Err()
}

func (r *SetRepository) ResolveViolation(ctx context.Context, publicID, resolvedBy, notes string) (*entities.SetViolation, error) {
	query := fmt.Sprintf(`
		UPDATE set_violations
		SET status = $2, resolved_by = $3, resolved_notes = $4, resolved_at = NOW()
		WHERE public_id = $1
		RETURNING %s`, setViolationColumns)

	v, err := scanSetViolation(r.writePool.QueryRow(ctx, query, publicID, entities.ViolationStatusResolved, resolvedBy, notes))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("SetRepository.ResolveViolation - violation %s not found: %w", publicID, domain.ErrSetNotFound)
		}
		return nil, fmt.Errorf("SetRepository.ResolveViolation - update failed: %w", err)
	}
	return &v, nil
}
