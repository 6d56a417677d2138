package traversal

import (
	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

// hop is one traversable step out of a node. A directed edge yields a single
// forward hop; a bidirectional edge yields a hop from each endpoint.
type hop struct {
	edge     entities.Edge
	neighbor domain.EntityRef
}

// adjacency indexes an edge snapshot for constant-time neighbor lookups.
// Forward follows edge direction (plus both ways for bidirectional edges),
// reverse holds the incoming view used by degree counts.
type adjacency struct {
	forward map[domain.EntityRef][]hop
	reverse map[domain.EntityRef][]hop
	nodes   map[domain.EntityRef]struct{}
}

func sourceRef(e entities.Edge) domain.EntityRef {
	return domain.EntityRef{EntityType: e.SourceType, EntityID: e.SourceID}
}

func targetRef(e entities.Edge) domain.EntityRef {
	return domain.EntityRef{EntityType: e.TargetType, EntityID: e.TargetID}
}

func buildAdjacency(edges []entities.Edge) *adjacency {
	adj := &adjacency{
		forward: make(map[domain.EntityRef][]hop),
		reverse: make(map[domain.EntityRef][]hop),
		nodes:   make(map[domain.EntityRef]struct{}),
	}

	for _, e := range edges {
		if !e.IsActive {
			continue
		}

		src, tgt := sourceRef(e), targetRef(e)
		adj.nodes[src] = struct{}{}
		adj.nodes[tgt] = struct{}{}

		adj.forward[src] = append(adj.forward[src], hop{edge: e, neighbor: tgt})
		adj.reverse[tgt] = append(adj.reverse[tgt], hop{edge: e, neighbor: src})

		if e.IsBidirectional {
			adj.forward[tgt] = append(adj.forward[tgt], hop{edge: e, neighbor: src})
			adj.reverse[src] = append(adj.reverse[src], hop{edge: e, neighbor: tgt})
		}
	}

	return adj
}

// neighbors returns the hops reachable from ref, optionally restricted to a
// relationship type.
func (a *adjacency) neighbors(ref domain.EntityRef, relationshipType string) []hop {
	hops := a.forward[ref]
	if relationshipType == "" {
		return hops
	}

	filtered := make([]hop, 0, len(hops))
	for _, h := range hops {
		if h.edge.RelationshipType == relationshipType {
			filtered = append(filtered, h)
		}
	}
	return filtered
}
