package sets

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/repositories"
)

const (
	// replacementCandidateLimit caps how many possible replacement rows the
	// link integrity check reports for one vanished member.
	replacementCandidateLimit = 5

	// resolvedMemberLimit caps how many rows a dynamic member contributes to
	// the metadata consistency comparison.
	resolvedMemberLimit = 50
)

// EntityStore is the live-row access the sync checks need. In production this
// is the entity store repository; tests substitute an in-memory fake.
type EntityStore interface {
	Exists(ctx context.Context, entityType, entityID string) (bool, error)
	FetchAttribute(ctx context.Context, entityType, entityID, column string) (interface{}, bool, error)
	CountByConditions(ctx context.Context, entityType string, conditions []repositories.FindCondition) (int, error)
	QueryIDs(ctx context.Context, entityType string, conditions []repositories.FindCondition, limit int) ([]string, error)
	FindCreatedAfter(ctx context.Context, entityType string, after time.Time, limit int) ([]string, error)
}

// SetStore is the slice of the set repository a check run touches.
type SetStore interface {
	GetSet(ctx context.Context, id int64) (*entities.RelationshipSet, error)
	ListMembers(ctx context.Context, setID int64) ([]entities.SetMember, error)
	ListRules(ctx context.Context, setID int64) ([]entities.SetRule, error)
	UpdateMemberExistence(ctx context.Context, memberID int64, exists bool) error
	ReplaceViolations(ctx context.Context, setID int64, violations []entities.SetViolation) error
}

// SyncChecker detects drift between a relationship set and the live rows its
// members point at. Every check re-evaluates from scratch; a run replaces the
// set's recorded violations wholesale.
type SyncChecker struct {
	setRepository SetStore
	entityStore   EntityStore
	schemaCache   *repositories.SchemaCache
}

func NewSyncChecker(
	setRepository SetStore,
	entityStore EntityStore,
	schemaCache *repositories.SchemaCache,
) *SyncChecker {
	return &SyncChecker{
		setRepository: setRepository,
		entityStore:   entityStore,
		schemaCache:   schemaCache,
	}
}

// memberState is the per-member outcome of the existence pass, reused by the
// link integrity pass so each row is resolved once per run.
type memberState struct {
	member entities.SetMember
	exists bool
	failed bool
}

// RunAllChecks executes the three sync checks against a set, replaces its
// recorded violations with the fresh findings and returns a summary. A
// concurrent reader may observe a transient empty state mid-run; overlapping
// runs on the same set are not serialized here.
func (c *SyncChecker) RunAllChecks(ctx context.Context, setID int64) (*domain.CheckSummary, error) {
	if _, err := c.setRepository.GetSet(ctx, setID); err != nil {
		return nil, err
	}

	members, err := c.setRepository.ListMembers(ctx, setID)
	if err != nil {
		return nil, err
	}
	rules, err := c.setRepository.ListRules(ctx, setID)
	if err != nil {
		return nil, err
	}

	var violations []entities.SetViolation

	states := make([]memberState, 0, len(members))
	for _, member := range members {
		state, found := c.checkExistence(ctx, member)
		states = append(states, state)
		violations = append(violations, found...)
	}

	for _, state := range states {
		violations = append(violations, c.checkLinkIntegrity(ctx, state)...)
	}

	violations = append(violations, c.checkMetadataConsistency(ctx, rules, states)...)

	for i := range violations {
		violations[i].SetID = setID
		violations[i].PublicID = uuid.NewString()
		violations[i].Status = entities.ViolationStatusOpen
	}

	if err := c.setRepository.ReplaceViolations(ctx, setID, violations); err != nil {
		return nil, err
	}

	summary := &domain.CheckSummary{
		SetID:          setID,
		ViolationCount: len(violations),
		ByCheckType:    make(map[string]int),
		BySeverity:     make(map[string]int),
	}
	for _, v := range violations {
		summary.ByCheckType[v.ViolationType]++
		summary.BySeverity[string(v.Severity)]++
	}
	return summary, nil
}

// checkExistence resolves one member against the live store. Explicit ids are
// looked up directly; dynamic members exist when their filter query matches at
// least one row. The member's last-known-existence marker is refreshed as a
// side effect.
func (c *SyncChecker) checkExistence(ctx context.Context, member entities.SetMember) (memberState, []entities.SetViolation) {
	state := memberState{member: member}

	var exists bool
	var err error

	if member.EntityID != "" {
		exists, err = c.entityStore.Exists(ctx, member.EntityType, member.EntityID)
	} else {
		var conditions []repositories.FindCondition
		conditions, err = repositories.ParseFilterConditions(ctx, c.schemaCache, member.EntityTable, member.FilterConditions)
		if err == nil {
			var count int
			count, err = c.entityStore.CountByConditions(ctx, member.EntityType, conditions)
			exists = count > 0
		}
	}

	if err != nil {
		state.failed = true
		return state, []entities.SetViolation{checkErrorViolation(member, "existence", err)}
	}

	state.exists = exists
	if updateErr := c.setRepository.UpdateMemberExistence(ctx, member.ID, exists); updateErr != nil {
		log.Printf("SyncChecker - updating existence marker of member %d: %v", member.ID, updateErr)
	}

	if exists {
		return state, nil
	}

	severity := entities.SeverityWarning
	if member.IsRequired {
		severity = entities.SeverityError
	}

	memberID := member.ID
	details, _ := json.Marshal(map[string]interface{}{
		"entity_type": member.EntityType,
		"entity_id":   member.EntityID,
		"required":    member.IsRequired,
	})

	return state, []entities.SetViolation{{
		MemberID:      &memberID,
		ViolationType: entities.SetViolationMissingElement,
		Severity:      severity,
		Message:       missingMessage(member),
		Details:       details,
	}}
}

func missingMessage(member entities.SetMember) string {
	if member.EntityID != "" {
		return fmt.Sprintf("%s %s no longer exists", member.EntityType, member.EntityID)
	}
	return fmt.Sprintf("no %s rows match the member's filter conditions", member.EntityType)
}

// checkLinkIntegrity looks for replacement candidates when an explicitly
// bound row has vanished. Rows created in the same table after the member was
// attached hint that the entity was branched or rebuilt under a new id; no
// candidates means it is simply gone.
func (c *SyncChecker) checkLinkIntegrity(ctx context.Context, state memberState) []entities.SetViolation {
	member := state.member
	if member.EntityID == "" || state.exists || state.failed {
		return nil
	}

	candidates, err := c.entityStore.FindCreatedAfter(ctx, member.EntityType, member.AttachedAt, replacementCandidateLimit)
	if err != nil {
		return []entities.SetViolation{checkErrorViolation(member, "link_integrity", err)}
	}

	memberID := member.ID
	details, _ := json.Marshal(map[string]interface{}{
		"entity_type":            member.EntityType,
		"entity_id":              member.EntityID,
		"attached_at":            member.AttachedAt,
		"replacement_candidates": candidates,
	})

	if len(candidates) > 0 {
		return []entities.SetViolation{{
			MemberID:      &memberID,
			ViolationType: entities.SetViolationBrokenLink,
			Severity:      entities.SeverityWarning,
			Message: fmt.Sprintf("%s %s may have been branched or rebuilt, verify %d candidate(s)",
				member.EntityType, member.EntityID, len(candidates)),
			Details: details,
		}}
	}

	return []entities.SetViolation{{
		MemberID:      &memberID,
		ViolationType: entities.SetViolationBrokenLink,
		Severity:      entities.SeverityError,
		Message:       fmt.Sprintf("%s %s was deleted with no replacement", member.EntityType, member.EntityID),
		Details:       details,
	}}
}

// resolvedMember is one concrete row a member covers. Explicit members map to
// their single id; dynamic members expand to every row their filter matches,
// capped at resolvedMemberLimit.
type resolvedMember struct {
	member   entities.SetMember
	entityID string
}

func (c *SyncChecker) resolveMemberRows(ctx context.Context, states []memberState) ([]resolvedMember, []entities.SetViolation) {
	var resolved []resolvedMember
	var violations []entities.SetViolation

	for _, state := range states {
		if !state.exists || state.failed {
			continue
		}
		member := state.member

		if member.EntityID != "" {
			resolved = append(resolved, resolvedMember{member: member, entityID: member.EntityID})
			continue
		}

		conditions, err := repositories.ParseFilterConditions(ctx, c.schemaCache, member.EntityTable, member.FilterConditions)
		if err == nil {
			var ids []string
			ids, err = c.entityStore.QueryIDs(ctx, member.EntityType, conditions, resolvedMemberLimit)
			for _, id := range ids {
				resolved = append(resolved, resolvedMember{member: member, entityID: id})
			}
		}
		if err != nil {
			violations = append(violations, checkErrorViolation(member, "metadata_consistency", err))
		}
	}

	return resolved, violations
}

// checkMetadataConsistency fetches each rule's attribute from every row the
// members resolve to and compares. Fewer than two resolvable values make the
// comparison meaningless and the rule is skipped.
func (c *SyncChecker) checkMetadataConsistency(ctx context.Context, rules []entities.SetRule, states []memberState) []entities.SetViolation {
	active := false
	for _, rule := range rules {
		if rule.IsActive && rule.RuleKind == entities.SetRuleKindMetadataConsistency {
			active = true
			break
		}
	}
	if !active {
		return nil
	}

	resolved, violations := c.resolveMemberRows(ctx, states)

	for _, rule := range rules {
		if !rule.IsActive || rule.RuleKind != entities.SetRuleKindMetadataConsistency {
			continue
		}

		type memberValue struct {
			row   resolvedMember
			value string
		}
		var values []memberValue
		failed := false

		for _, row := range resolved {
			raw, found, err := c.entityStore.FetchAttribute(ctx, row.member.EntityType, row.entityID, rule.AttributeName)
			if err != nil {
				violations = append(violations, checkErrorViolation(row.member, "metadata_consistency", err))
				failed = true
				break
			}
			if !found {
				continue
			}
			values = append(values, memberValue{row: row, value: normalizeValue(raw)})
		}

		if failed || len(values) < 2 {
			continue
		}

		switch rule.MatchKind {
		case entities.MatchEquals:
			expected := normalizeExpected(rule.ExpectedValue)
			for _, mv := range values {
				if mv.value == expected {
					continue
				}
				violations = append(violations, mismatchViolation(rule, mv.row, mv.value, expected))
			}
		case entities.MatchAll:
			reference := values[0].value
			for _, mv := range values[1:] {
				if mv.value == reference {
					continue
				}
				violations = append(violations, mismatchViolation(rule, mv.row, mv.value, reference))
			}
		}
	}

	return violations
}

func mismatchViolation(rule entities.SetRule, row resolvedMember, got, want string) entities.SetViolation {
	memberID := row.member.ID
	details, _ := json.Marshal(map[string]interface{}{
		"attribute": rule.AttributeName,
		"entity_id": row.entityID,
		"expected":  want,
		"actual":    got,
	})
	return entities.SetViolation{
		MemberID:      &memberID,
		ViolationType: entities.SetViolationMetadataMismatch,
		Severity:      rule.Severity,
		Message: fmt.Sprintf("%s %s has %s=%q, expected %q",
			row.member.EntityType, row.entityID, rule.AttributeName, got, want),
		Details: details,
	}
}

func checkErrorViolation(member entities.SetMember, check string, err error) entities.SetViolation {
	memberID := member.ID
	details, _ := json.Marshal(map[string]interface{}{
		"check": check,
		"error": err.Error(),
	})
	return entities.SetViolation{
		MemberID:      &memberID,
		ViolationType: entities.SetViolationCheckError,
		Severity:      entities.SeverityWarning,
		Message:       fmt.Sprintf("%s check failed for %s %s", check, member.EntityType, member.EntityID),
		Details:       details,
	}
}

// normalizeValue flattens driver-specific scalar types into a comparable
// string form so 42 (int64) and 42 (float64) agree.
func normalizeValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case float32:
		return normalizeValue(float64(t))
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func normalizeExpected(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return normalizeValue(v)
}
