package edges

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/registry"
	"github.com/Rtoony/survey-data-system-sub001/src/repositories"
)

// EdgeService is the system of record for edges. All identifier validation
// funnels through the entity type registry and the relationship type registry
// before anything reaches SQL.
type EdgeService struct {
	typeRegistry               *registry.EntityTypeRegistry
	relationshipTypeRepository *repositories.RelationshipTypeRepository
	edgeWriteRepository        *repositories.EdgeWriteRepository
	edgeQueryRepository        *repositories.EdgeQueryRepository
}

func NewEdgeService(
	typeRegistry *registry.EntityTypeRegistry,
	relationshipTypeRepository *repositories.RelationshipTypeRepository,
	edgeWriteRepository *repositories.EdgeWriteRepository,
	edgeQueryRepository *repositories.EdgeQueryRepository,
) *EdgeService {
	return &EdgeService{
		typeRegistry:               typeRegistry,
		relationshipTypeRepository: relationshipTypeRepository,
		edgeWriteRepository:        edgeWriteRepository,
		edgeQueryRepository:        edgeQueryRepository,
	}
}

// validateRequest enforces the type, relationship and pairing contracts shared
// by single and batch creation.
func (s *EdgeService) validateRequest(ctx context.Context, req domain.CreateEdgeRequest) error {
	if !s.typeRegistry.IsValidType(req.Source.EntityType) {
		return fmt.Errorf("EdgeService - source type %q: %w", req.Source.EntityType, domain.ErrInvalidEntityType)
	}
	if !s.typeRegistry.IsValidType(req.Target.EntityType) {
		return fmt.Errorf("EdgeService - target type %q: %w", req.Target.EntityType, domain.ErrInvalidEntityType)
	}

	relType, err := s.relationshipTypeRepository.GetByCode(ctx, req.RelationshipType)
	if err != nil {
		return err
	}
	if !relType.IsActive {
		return fmt.Errorf("EdgeService - relationship type %q is inactive: %w", req.RelationshipType, domain.ErrInvalidRelationshipType)
	}

	if !relType.AllowsPairing(req.Source.EntityType, req.Target.EntityType) {
		return fmt.Errorf("EdgeService - %s -> %s not allowed for %q: %w",
			req.Source.EntityType, req.Target.EntityType, req.RelationshipType, domain.ErrInvalidPairing)
	}

	if req.Strength != nil && (*req.Strength < 0 || *req.Strength > 1) {
		return fmt.Errorf("EdgeService - strength %v outside [0, 1]", *req.Strength)
	}

	if req.Origin != "" && !req.Origin.IsValid() {
		return fmt.Errorf("EdgeService - unknown edge source %q", req.Origin)
	}

	return nil
}

func buildEdge(projectID string, req domain.CreateEdgeRequest) entities.Edge {
	origin := req.Origin
	if origin == "" {
		origin = entities.EdgeSourceManual
	}

	return entities.Edge{
		ProjectID:        projectID,
		SourceType:       req.Source.EntityType,
		SourceID:         req.Source.EntityID,
		TargetType:       req.Target.EntityType,
		TargetID:         req.Target.EntityID,
		RelationshipType: req.RelationshipType,
		Strength:         req.Strength,
		IsBidirectional:  req.IsBidirectional,
		Attributes:       req.Attributes,
		Status:           entities.EdgeStatusActive,
		IsActive:         true,
		Source:           origin,
		ConfidenceScore:  req.ConfidenceScore,
		ValidFrom:        req.ValidFrom,
		ValidTo:          req.ValidTo,
	}
}

// CreateEdge validates the pairing and either inserts a new edge, rejects an
// active duplicate, or resurrects a soft-deleted identical edge in place.
func (s *EdgeService) CreateEdge(ctx context.Context, projectID string, req domain.CreateEdgeRequest) (*entities.Edge, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	active, err := s.edgeWriteRepository.FindByIdentity(ctx, projectID, req.Source, req.Target, req.RelationshipType, true)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("EdgeService.CreateEdge - edge %d already active: %w", active.ID, domain.ErrDuplicateEdge)
	}

	inactive, err := s.edgeWriteRepository.FindByIdentity(ctx, projectID, req.Source, req.Target, req.RelationshipType, false)
	if err != nil {
		return nil, err
	}
	if inactive != nil {
		return s.edgeWriteRepository.Resurrect(ctx, inactive.ID, req)
	}

	// The check above is best-effort; the unique index settles concurrent
	// races, and the repository maps that to ErrDuplicateEdge.
	return s.edgeWriteRepository.Insert(ctx, buildEdge(projectID, req))
}

// CreateEdgesBatch validates every request up front (the first failure aborts
// the whole batch) and then inserts all edges in one transaction.
func (s *EdgeService) CreateEdgesBatch(ctx context.Context, projectID string, reqs []domain.CreateEdgeRequest) ([]entities.Edge, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("EdgeService.CreateEdgesBatch - batch must contain at least one edge")
	}

	edges := make([]entities.Edge, 0, len(reqs))
	for i, req := range reqs {
		if err := s.validateRequest(ctx, req); err != nil {
			return nil, fmt.Errorf("EdgeService.CreateEdgesBatch - edge %d: %w", i, err)
		}
		edges = append(edges, buildEdge(projectID, req))
	}

	return s.edgeWriteRepository.InsertBatch(ctx, edges)
}

func (s *EdgeService) GetEdge(ctx context.Context, id int64) (*entities.Edge, error) {
	return s.edgeQueryRepository.GetByID(ctx, id)
}

func (s *EdgeService) GetEdges(ctx context.Context, filters domain.EdgeFilters, limit, offset int) ([]entities.Edge, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.edgeQueryRepository.List(ctx, filters, limit, offset)
}

// ListEdgesTouching returns the active edges where an entity appears on the
// requested side. Bidirectional edges count for either side; an empty
// direction means both.
func (s *EdgeService) ListEdgesTouching(ctx context.Context, ref domain.EntityRef, projectID, relationshipType string, direction entities.EdgeDirection) ([]entities.Edge, error) {
	if !s.typeRegistry.IsValidType(ref.EntityType) {
		return nil, fmt.Errorf("EdgeService - entity type %q: %w", ref.EntityType, domain.ErrInvalidEntityType)
	}

	switch direction {
	case "":
		direction = entities.DirectionBoth
	case entities.DirectionOutgoing, entities.DirectionIncoming, entities.DirectionBoth:
	default:
		return nil, fmt.Errorf("EdgeService - unknown direction %q", direction)
	}

	return s.edgeQueryRepository.ListTouching(ctx, ref, projectID, relationshipType, direction)
}

// UpdateEdge applies only recognized mutable fields; an empty update is a no-op.
func (s *EdgeService) UpdateEdge(ctx context.Context, id int64, fields domain.UpdateEdgeFields) (*entities.Edge, error) {
	if fields.Strength != nil && (*fields.Strength < 0 || *fields.Strength > 1) {
		return nil, fmt.Errorf("EdgeService.UpdateEdge - strength %v outside [0, 1]", *fields.Strength)
	}
	return s.edgeWriteRepository.Update(ctx, id, fields)
}

func (s *EdgeService) DeleteEdge(ctx context.Context, id int64, mode domain.DeleteMode) error {
	return s.edgeWriteRepository.Delete(ctx, id, mode)
}

func (s *EdgeService) DeleteEdgesBatch(ctx context.Context, ids []int64, mode domain.DeleteMode) (int64, error) {
	return s.edgeWriteRepository.DeleteBatch(ctx, ids, mode)
}

// ValidateEdgeData is the pre-flight check usable before CreateEdge. Contract
// failures come back as (false, reason); only storage faults return an error.
func (s *EdgeService) ValidateEdgeData(ctx context.Context, sourceType, targetType, relationshipType string) (bool, string, error) {
	if !s.typeRegistry.IsValidType(sourceType) {
		return false, fmt.Sprintf("unknown source entity type %q", sourceType), nil
	}
	if !s.typeRegistry.IsValidType(targetType) {
		return false, fmt.Sprintf("unknown target entity type %q", targetType), nil
	}

	relType, err := s.relationshipTypeRepository.GetByCode(ctx, relationshipType)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRelationshipType) {
			return false, fmt.Sprintf("unknown relationship type %q", relationshipType), nil
		}
		return false, "", err
	}
	if !relType.IsActive {
		return false, fmt.Sprintf("relationship type %q is inactive", relationshipType), nil
	}
	if !relType.AllowsPairing(sourceType, targetType) {
		return false, fmt.Sprintf("%s -> %s is not an allowed pairing for %q", sourceType, targetType, relationshipType), nil
	}

	return true, "", nil
}
