package sets

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/registry"
	"github.com/Rtoony/survey-data-system-sub001/src/repositories"
)

// SetService manages relationship sets, their members and per-set rules.
// Member identifiers are validated against the entity type registry and
// filter conditions against the live schema before anything is stored, so a
// persisted member is always queryable later.
type SetService struct {
	typeRegistry  *registry.EntityTypeRegistry
	setRepository *repositories.SetRepository
	schemaCache   *repositories.SchemaCache
}

func NewSetService(
	typeRegistry *registry.EntityTypeRegistry,
	setRepository *repositories.SetRepository,
	schemaCache *repositories.SchemaCache,
) *SetService {
	return &SetService{
		typeRegistry:  typeRegistry,
		setRepository: setRepository,
		schemaCache:   schemaCache,
	}
}

func (s *SetService) CreateSet(ctx context.Context, set entities.RelationshipSet) (*entities.RelationshipSet, error) {
	if set.Name == "" {
		return nil, fmt.Errorf("SetService.CreateSet - name is required")
	}
	if set.IsTemplate && set.ProjectID != "" {
		return nil, fmt.Errorf("SetService.CreateSet - templates are not project scoped")
	}
	if set.PublicID == "" {
		set.PublicID = uuid.NewString()
	}
	set.IsActive = true
	return s.setRepository.CreateSet(ctx, set)
}

func (s *SetService) GetSet(ctx context.Context, id int64) (*entities.RelationshipSet, error) {
	return s.setRepository.GetSet(ctx, id)
}

func (s *SetService) ListSets(ctx context.Context, filters repositories.SetFilters, limit, offset int) ([]entities.RelationshipSet, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.setRepository.ListSets(ctx, filters, limit, offset)
}

func (s *SetService) DeleteSet(ctx context.Context, id int64, mode domain.DeleteMode) error {
	return s.setRepository.DeleteSet(ctx, id, mode)
}

// AddMember validates the member's type binding and, for dynamic members, the
// filter condition keys before persisting. A member must carry an explicit id
// or filter conditions, not neither.
func (s *SetService) AddMember(ctx context.Context, member entities.SetMember) (*entities.SetMember, error) {
	binding, ok := s.typeRegistry.Lookup(member.EntityType)
	if !ok {
		return nil, fmt.Errorf("SetService.AddMember - entity type %q: %w", member.EntityType, domain.ErrInvalidEntityType)
	}

	if member.EntityTable == "" {
		member.EntityTable = binding.Table
	} else if member.EntityTable != binding.Table {
		return nil, fmt.Errorf("SetService.AddMember - table %q does not belong to type %q: %w",
			member.EntityTable, member.EntityType, domain.ErrInvalidEntityType)
	}

	hasFilter := len(member.FilterConditions) > 0
	if member.EntityID == "" && !hasFilter {
		return nil, fmt.Errorf("SetService.AddMember - member needs an entity id or filter conditions")
	}

	if hasFilter {
		if _, err := repositories.ParseFilterConditions(ctx, s.schemaCache, member.EntityTable, member.FilterConditions); err != nil {
			return nil, fmt.Errorf("SetService.AddMember - %w", err)
		}
	}

	if _, err := s.setRepository.GetSet(ctx, member.SetID); err != nil {
		return nil, err
	}

	return s.setRepository.AddMember(ctx, member)
}

func (s *SetService) ListMembers(ctx context.Context, setID int64) ([]entities.SetMember, error) {
	return s.setRepository.ListMembers(ctx, setID)
}

func (s *SetService) RemoveMember(ctx context.Context, memberID int64) error {
	return s.setRepository.RemoveMember(ctx, memberID)
}

// AddRule accepts only known rule kinds and match kinds; an equals rule must
// carry the literal it compares against.
func (s *SetService) AddRule(ctx context.Context, rule entities.SetRule) (*entities.SetRule, error) {
	if rule.RuleKind != entities.SetRuleKindMetadataConsistency {
		return nil, fmt.Errorf("SetService.AddRule - unknown rule kind %q", rule.RuleKind)
	}
	if !rule.MatchKind.IsValid() {
		return nil, fmt.Errorf("SetService.AddRule - unknown match kind %q", rule.MatchKind)
	}
	if rule.AttributeName == "" {
		return nil, fmt.Errorf("SetService.AddRule - attribute name is required")
	}
	if rule.MatchKind == entities.MatchEquals && len(rule.ExpectedValue) == 0 {
		return nil, fmt.Errorf("SetService.AddRule - equals rules need an expected value")
	}
	if rule.Severity == "" {
		rule.Severity = entities.SeverityWarning
	}
	rule.IsActive = true

	if _, err := s.setRepository.GetSet(ctx, rule.SetID); err != nil {
		return nil, err
	}

	return s.setRepository.AddRule(ctx, rule)
}

func (s *SetService) ListRules(ctx context.Context, setID int64) ([]entities.SetRule, error) {
	return s.setRepository.ListRules(ctx, setID)
}

// ApplyTemplate clones a template's members and rules into a new set owned by
// the given project.
func (s *SetService) ApplyTemplate(ctx context.Context, templateID int64, projectID, name string) (*entities.RelationshipSet, error) {
	if projectID == "" {
		return nil, fmt.Errorf("SetService.ApplyTemplate - project id is required")
	}
	return s.setRepository.CloneTemplate(ctx, templateID, projectID, name)
}

func (s *SetService) ListViolations(ctx context.Context, setID int64, status string) ([]entities.SetViolation, error) {
	return s.setRepository.ListViolations(ctx, setID, status)
}

func (s *SetService) ResolveViolation(ctx context.Context, publicID, resolvedBy, notes string) (*entities.SetViolation, error) {
	return s.setRepository.ResolveViolation(ctx, publicID, resolvedBy, notes)
}
