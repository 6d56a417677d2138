package validation

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

// evaluateRule dispatches on the rule kind. Adding a kind means adding a case
// here; an unknown kind is reported as an evaluation error, not ignored.
func evaluateRule(rule entities.ValidationRule, edges []entities.Edge) ([]entities.ValidationViolation, error) {
	switch rule.RuleKind {
	case entities.RuleKindCardinality:
		return evaluateCardinality(rule, edges)
	case entities.RuleKindRequired:
		return evaluateRequired(rule, edges), nil
	case entities.RuleKindForbidden:
		return evaluateForbidden(rule, edges), nil
	case entities.RuleKindConditional:
		// Reserved kind, evaluates to nothing until a condition grammar
		// is settled.
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown rule kind %q", rule.RuleKind)
	}
}

// matchesEdgeFilter applies the rule's optional relationship and target type
// filters to one edge.
func matchesEdgeFilter(rule entities.ValidationRule, e entities.Edge) bool {
	if !e.IsActive {
		return false
	}
	if rule.RelationshipType != "" && e.RelationshipType != rule.RelationshipType {
		return false
	}
	if rule.TargetType != "" && e.TargetType != rule.TargetType {
		return false
	}
	return true
}

// countMatching tallies, per node of the rule's source type, the edges that
// match the rule filter in the configured direction. Bidirectional edges count
// in both directions.
func countMatching(rule entities.ValidationRule, direction entities.EdgeDirection, edges []entities.Edge) map[domain.EntityRef]int {
	counts := make(map[domain.EntityRef]int)

	outgoing := direction == entities.DirectionOutgoing || direction == entities.DirectionBoth
	incoming := direction == entities.DirectionIncoming || direction == entities.DirectionBoth

	for _, e := range edges {
		if !matchesEdgeFilter(rule, e) {
			continue
		}

		if e.SourceType == rule.SourceType && (outgoing || e.IsBidirectional && incoming) {
			counts[domain.EntityRef{EntityType: e.SourceType, EntityID: e.SourceID}]++
		}
		if e.TargetType == rule.SourceType && (incoming || e.IsBidirectional && outgoing) {
			counts[domain.EntityRef{EntityType: e.TargetType, EntityID: e.TargetID}]++
		}
	}

	return counts
}

func sortedCountKeys(counts map[domain.EntityRef]int) []domain.EntityRef {
	refs := make([]domain.EntityRef, 0, len(counts))
	for ref := range counts {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].EntityID < refs[j].EntityID })
	return refs
}

// evaluateCardinality flags every node whose matching-edge count falls outside
// [min, max]. Nodes with no matching edges at all only participate when the
// rule sets min > 0 and the node appears elsewhere in the graph as a
// source-typed participant.
func evaluateCardinality(rule entities.ValidationRule, edges []entities.Edge) ([]entities.ValidationViolation, error) {
	cfg, err := rule.CardinalityConfig()
	if err != nil {
		return nil, fmt.Errorf("decoding cardinality config: %w", err)
	}

	counts := countMatching(rule, cfg.Direction, edges)

	// Participants of the source type with zero matching edges still need a
	// min check, so seed them from the full graph.
	if cfg.Min > 0 {
		for _, e := range edges {
			if !e.IsActive {
				continue
			}
			if e.SourceType == rule.SourceType {
				ref := domain.EntityRef{EntityType: e.SourceType, EntityID: e.SourceID}
				if _, ok := counts[ref]; !ok {
					counts[ref] = 0
				}
			}
			if e.TargetType == rule.SourceType {
				ref := domain.EntityRef{EntityType: e.TargetType, EntityID: e.TargetID}
				if _, ok := counts[ref]; !ok {
					counts[ref] = 0
				}
			}
		}
	}

	var violations []entities.ValidationViolation
	for _, ref := range sortedCountKeys(counts) {
		count := counts[ref]
		if count >= cfg.Min && (cfg.Max == nil || count <= *cfg.Max) {
			continue
		}

		details, _ := json.Marshal(map[string]interface{}{
			"count": count,
			"min":   cfg.Min,
			"max":   cfg.Max,
		})
		maxLabel := "unbounded"
		if cfg.Max != nil {
			maxLabel = fmt.Sprintf("%d", *cfg.Max)
		}

		violations = append(violations, entities.ValidationViolation{
			RuleID:        rule.ID,
			ViolationType: entities.ViolationTypeCardinality,
			Severity:      rule.Severity,
			EntityType:    ref.EntityType,
			EntityID:      ref.EntityID,
			Message: fmt.Sprintf("%s %s has %d matching edge(s), expected between %d and %s",
				ref.EntityType, ref.EntityID, count, cfg.Min, maxLabel),
			Details: details,
		})
	}

	return violations, nil
}

// evaluateRequired computes the set difference between all source-typed edge
// participants and those that also carry the required relationship.
func evaluateRequired(rule entities.ValidationRule, edges []entities.Edge) []entities.ValidationViolation {
	participants := make(map[domain.EntityRef]struct{})
	satisfied := make(map[domain.EntityRef]struct{})

	for _, e := range edges {
		if !e.IsActive {
			continue
		}

		if e.SourceType == rule.SourceType {
			ref := domain.EntityRef{EntityType: e.SourceType, EntityID: e.SourceID}
			participants[ref] = struct{}{}
			if matchesEdgeFilter(rule, e) {
				satisfied[ref] = struct{}{}
			}
		}
		if e.TargetType == rule.SourceType {
			ref := domain.EntityRef{EntityType: e.TargetType, EntityID: e.TargetID}
			participants[ref] = struct{}{}
			if e.IsBidirectional && matchesEdgeFilter(rule, e) {
				satisfied[ref] = struct{}{}
			}
		}
	}

	missing := make([]domain.EntityRef, 0)
	for ref := range participants {
		if _, ok := satisfied[ref]; !ok {
			missing = append(missing, ref)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].EntityID < missing[j].EntityID })

	var violations []entities.ValidationViolation
	for _, ref := range missing {
		details, _ := json.Marshal(map[string]interface{}{
			"required_relationship_type": rule.RelationshipType,
			"required_target_type":       rule.TargetType,
		})

		violations = append(violations, entities.ValidationViolation{
			RuleID:        rule.ID,
			ViolationType: entities.ViolationTypeRequired,
			Severity:      rule.Severity,
			EntityType:    ref.EntityType,
			EntityID:      ref.EntityID,
			Message: fmt.Sprintf("%s %s is missing a required %q relationship",
				ref.EntityType, ref.EntityID, rule.RelationshipType),
			Details: details,
		})
	}

	return violations
}

// evaluateForbidden treats every edge matching the filter as a violation in
// itself.
func evaluateForbidden(rule entities.ValidationRule, edges []entities.Edge) []entities.ValidationViolation {
	var violations []entities.ValidationViolation

	for _, e := range edges {
		if !matchesEdgeFilter(rule, e) {
			continue
		}
		if rule.SourceType != "" && e.SourceType != rule.SourceType {
			continue
		}

		edgeID := e.ID
		details, _ := json.Marshal(map[string]interface{}{
			"source": fmt.Sprintf("%s:%s", e.SourceType, e.SourceID),
			"target": fmt.Sprintf("%s:%s", e.TargetType, e.TargetID),
		})

		violations = append(violations, entities.ValidationViolation{
			RuleID:        rule.ID,
			ViolationType: entities.ViolationTypeForbidden,
			Severity:      rule.Severity,
			EntityType:    e.SourceType,
			EntityID:      e.SourceID,
			EdgeID:        &edgeID,
			Message: fmt.Sprintf("forbidden %q edge between %s %s and %s %s",
				e.RelationshipType, e.SourceType, e.SourceID, e.TargetType, e.TargetID),
			Details: details,
		})
	}

	return violations
}
