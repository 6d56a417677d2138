package validation

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/repositories"
)

// EdgeSnapshotter serves the active edge snapshot a validation run evaluates
// against. In production this is the cached edge repository.
type EdgeSnapshotter interface {
	ListByProject(ctx context.Context, projectID string) ([]entities.Edge, error)
}

// RuleStore is the slice of the rule repository the engine touches.
type RuleStore interface {
	Create(ctx context.Context, rule entities.ValidationRule) (*entities.ValidationRule, error)
	GetByID(ctx context.Context, id int64) (*entities.ValidationRule, error)
	Deactivate(ctx context.Context, id int64) error
	ListActiveForProject(ctx context.Context, projectID string, kinds []entities.RuleKind) ([]entities.ValidationRule, error)
}

// ViolationStore persists and serves the outcomes of validation runs.
type ViolationStore interface {
	ReplaceForProject(ctx context.Context, projectID string, kinds []entities.RuleKind, violations []entities.ValidationViolation) error
	List(ctx context.Context, filters repositories.ViolationFilters, limit, offset int) ([]entities.ValidationViolation, error)
	Resolve(ctx context.Context, publicID, resolvedBy, notes string) (*entities.ValidationViolation, error)
}

// RuleEngine evaluates declarative rules against the edge store and persists
// violations. Violations are data, not errors: a rule firing is a normal
// outcome, only storage faults propagate as errors.
type RuleEngine struct {
	ruleRepository      RuleStore
	violationRepository ViolationStore
	snapshots           EdgeSnapshotter
}

func NewRuleEngine(
	ruleRepository RuleStore,
	violationRepository ViolationStore,
	snapshots EdgeSnapshotter,
) *RuleEngine {
	return &RuleEngine{
		ruleRepository:      ruleRepository,
		violationRepository: violationRepository,
		snapshots:           snapshots,
	}
}

func (e *RuleEngine) CreateRule(ctx context.Context, rule entities.ValidationRule) (*entities.ValidationRule, error) {
	if !rule.RuleKind.IsValid() {
		return nil, fmt.Errorf("RuleEngine.CreateRule - unknown rule kind %q", rule.RuleKind)
	}
	if rule.Severity == "" {
		rule.Severity = entities.SeverityWarning
	}
	return e.ruleRepository.Create(ctx, rule)
}

func (e *RuleEngine) GetRule(ctx context.Context, id int64) (*entities.ValidationRule, error) {
	return e.ruleRepository.GetByID(ctx, id)
}

func (e *RuleEngine) DeactivateRule(ctx context.Context, id int64) error {
	return e.ruleRepository.Deactivate(ctx, id)
}

// safeEvaluate shields a run from a single misbehaving rule. A panic inside
// one evaluation becomes that rule's error and the run moves on.
func safeEvaluate(rule entities.ValidationRule, edges []entities.Edge) (violations []entities.ValidationViolation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule %d panicked: %v", rule.ID, r)
		}
	}()
	return evaluateRule(rule, edges)
}

// ValidateProject evaluates every active applicable rule (global rules plus
// the project's own), optionally restricted to given kinds, and replaces the
// project's persisted violations for those kinds wholesale.
func (e *RuleEngine) ValidateProject(ctx context.Context, projectID string, kinds []entities.RuleKind) (*domain.ValidationRunSummary, error) {
	rules, err := e.ruleRepository.ListActiveForProject(ctx, projectID, kinds)
	if err != nil {
		return nil, err
	}

	edges, err := e.snapshots.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("RuleEngine.ValidateProject - loading edges of project %s: %w", projectID, err)
	}

	summary := &domain.ValidationRunSummary{
		ProjectID:  projectID,
		BySeverity: make(map[string]int),
	}

	var collected []entities.ValidationViolation
	for _, rule := range rules {
		found, err := safeEvaluate(rule, edges)
		if err != nil {
			// A broken rule never aborts the remaining rules.
			log.Printf("RuleEngine.ValidateProject - skipping rule %d (%s): %v", rule.ID, rule.Name, err)
			summary.RulesSkipped++
			continue
		}
		summary.RulesEvaluated++

		for i := range found {
			found[i].PublicID = uuid.NewString()
			found[i].ProjectID = projectID
			found[i].Status = entities.ViolationStatusOpen
			summary.BySeverity[string(found[i].Severity)]++
		}
		collected = append(collected, found...)
	}
	summary.ViolationCount = len(collected)

	if err := e.violationRepository.ReplaceForProject(ctx, projectID, kinds, collected); err != nil {
		return nil, err
	}

	return summary, nil
}

// CheckEntityCompliance runs only cardinality rules against a single entity,
// synchronously and without persisting anything.
func (e *RuleEngine) CheckEntityCompliance(ctx context.Context, projectID string, entity domain.EntityRef) (*domain.ComplianceResult, error) {
	rules, err := e.ruleRepository.ListActiveForProject(ctx, projectID, []entities.RuleKind{entities.RuleKindCardinality})
	if err != nil {
		return nil, err
	}

	edges, err := e.snapshots.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("RuleEngine.CheckEntityCompliance - loading edges of project %s: %w", projectID, err)
	}

	result := &domain.ComplianceResult{Entity: entity, Compliant: true}
	for _, rule := range rules {
		if rule.SourceType != "" && rule.SourceType != entity.EntityType {
			continue
		}

		found, err := safeEvaluate(rule, edges)
		if err != nil {
			log.Printf("RuleEngine.CheckEntityCompliance - skipping rule %d (%s): %v", rule.ID, rule.Name, err)
			continue
		}

		for _, v := range found {
			if v.EntityType != entity.EntityType || v.EntityID != entity.EntityID {
				continue
			}
			v.ProjectID = projectID
			v.Status = entities.ViolationStatusOpen
			result.Violations = append(result.Violations, v)
			result.Compliant = false
		}
	}

	return result, nil
}

func (e *RuleEngine) ListViolations(ctx context.Context, filters repositories.ViolationFilters, limit, offset int) ([]entities.ValidationViolation, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return e.violationRepository.List(ctx, filters, limit, offset)
}

func (e *RuleEngine) ResolveViolation(ctx context.Context, publicID, resolvedBy, notes string) (*entities.ValidationViolation, error) {
	return e.violationRepository.Resolve(ctx, publicID, resolvedBy, notes)
}
