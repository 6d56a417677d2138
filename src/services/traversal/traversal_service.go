package traversal

import (
	"context"
	"fmt"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

const (
	// defaultBudget bounds the total number of edge expansions a single
	// traversal may perform, independent of depth limits.
	defaultBudget = 100_000

	defaultMaxDepth = 3
	defaultMaxPaths = 100
	maxDepthCeiling = 10
)

// EdgeSnapshotter serves the per-project active edge snapshot that every
// traversal operates on. In production this is the cached edge repository.
type EdgeSnapshotter interface {
	ListByProject(ctx context.Context, projectID string) ([]entities.Edge, error)
}

// TraversalService answers graph questions against a point-in-time snapshot
// of a project's active edges. All algorithms run in memory; nothing here
// writes to storage.
type TraversalService struct {
	snapshots EdgeSnapshotter
}

func NewTraversalService(snapshots EdgeSnapshotter) *TraversalService {
	return &TraversalService{snapshots: snapshots}
}

func (s *TraversalService) load(ctx context.Context, projectID string) (*adjacency, []entities.Edge, error) {
	edges, err := s.snapshots.ListByProject(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("TraversalService - loading edges of project %s: %w", projectID, err)
	}
	return buildAdjacency(edges), edges, nil
}

func clampDepth(depth int) int {
	if depth <= 0 {
		return defaultMaxDepth
	}
	if depth > maxDepthCeiling {
		return maxDepthCeiling
	}
	return depth
}

// GetRelated lists the one-hop neighborhood of an entity, optionally filtered
// by relationship type and by the side of the edge the entity occupies. An
// empty direction means both sides.
func (s *TraversalService) GetRelated(ctx context.Context, projectID string, root domain.EntityRef, relationshipType string, direction entities.EdgeDirection) ([]domain.RelatedEntity, error) {
	switch direction {
	case "":
		direction = entities.DirectionBoth
	case entities.DirectionOutgoing, entities.DirectionIncoming, entities.DirectionBoth:
	default:
		return nil, fmt.Errorf("TraversalService - unknown direction %q", direction)
	}

	adj, _, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return relatedEntities(adj, root, relationshipType, direction), nil
}

// GetSubgraph expands breadth-first from root up to maxDepth hops and then
// closes the result over every active edge between included nodes.
func (s *TraversalService) GetSubgraph(ctx context.Context, projectID string, root domain.EntityRef, maxDepth int) (*domain.Subgraph, error) {
	adj, edges, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	sub := subgraphBFS(adj, root, clampDepth(maxDepth), defaultBudget)

	included := make(map[domain.EntityRef]struct{}, len(sub.Nodes))
	for _, n := range sub.Nodes {
		included[n.Entity] = struct{}{}
	}
	sub.Edges = edgesBetween(edges, included)

	return &sub, nil
}

// FindPath returns one shortest path between two entities, or nil when they
// are not connected within maxDepth hops.
func (s *TraversalService) FindPath(ctx context.Context, projectID string, source, target domain.EntityRef, maxDepth int) (*domain.Path, error) {
	adj, _, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return shortestPath(adj, source, target, clampDepth(maxDepth), defaultBudget), nil
}

// FindAllPaths enumerates simple paths between two entities up to maxDepth
// hops, capped at maxPaths results.
func (s *TraversalService) FindAllPaths(ctx context.Context, projectID string, source, target domain.EntityRef, maxDepth, maxPaths int) ([]domain.Path, error) {
	adj, _, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if maxPaths <= 0 || maxPaths > defaultMaxPaths {
		maxPaths = defaultMaxPaths
	}
	paths, _ := allPaths(adj, source, target, clampDepth(maxDepth), maxPaths, defaultBudget)
	return paths, nil
}

// DetectCycles reports a representative set of cycles in the project graph.
func (s *TraversalService) DetectCycles(ctx context.Context, projectID string) ([]domain.Cycle, error) {
	adj, _, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cycles, _ := detectCycles(adj, defaultBudget)
	return cycles, nil
}

// ConnectionCounts returns the degree of every node, sorted by entity.
func (s *TraversalService) ConnectionCounts(ctx context.Context, projectID string) ([]domain.ConnectionCount, error) {
	adj, _, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return connectionCounts(adj), nil
}

// MostConnected ranks nodes by total degree, descending.
func (s *TraversalService) MostConnected(ctx context.Context, projectID string, limit int) ([]domain.ConnectionCount, error) {
	adj, _, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return topConnected(connectionCounts(adj), limit, true), nil
}

// LeastConnected ranks nodes by total degree, ascending. Nodes with zero
// remaining edges do not appear in the snapshot and therefore never rank.
func (s *TraversalService) LeastConnected(ctx context.Context, projectID string, limit int) ([]domain.ConnectionCount, error) {
	adj, _, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return topConnected(connectionCounts(adj), limit, false), nil
}

// RelationshipSummary aggregates the project's active edges by type.
func (s *TraversalService) RelationshipSummary(ctx context.Context, projectID string) (*domain.GraphSummary, error) {
	adj, edges, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	summary := summarize(projectID, edges, adj)
	return &summary, nil
}
