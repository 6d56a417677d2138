package traversal

import (
	"sort"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

func sortedRefs(set map[domain.EntityRef]struct{}) []domain.EntityRef {
	refs := make([]domain.EntityRef, 0, len(set))
	for ref := range set {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].EntityType != refs[j].EntityType {
			return refs[i].EntityType < refs[j].EntityType
		}
		return refs[i].EntityID < refs[j].EntityID
	})
	return refs
}

// connectionCounts tallies in and out degree per node. A bidirectional edge
// counts once toward each degree at both endpoints.
func connectionCounts(adj *adjacency) []domain.ConnectionCount {
	counts := make([]domain.ConnectionCount, 0, len(adj.nodes))
	for _, ref := range sortedRefs(adj.nodes) {
		out := len(adj.forward[ref])
		in := len(adj.reverse[ref])
		counts = append(counts, domain.ConnectionCount{
			Entity:    ref,
			InDegree:  in,
			OutDegree: out,
			Total:     in + out,
		})
	}
	return counts
}

func topConnected(counts []domain.ConnectionCount, limit int, most bool) []domain.ConnectionCount {
	ranked := append([]domain.ConnectionCount(nil), counts...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if most {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].Total < ranked[j].Total
	})
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}

// density is the ratio of active edges to possible ordered pairs, n*(n-1).
// Graphs with fewer than two nodes have no possible pairs and report zero.
func density(nodeCount, edgeCount int) float64 {
	if nodeCount <= 1 {
		return 0
	}
	return float64(edgeCount) / float64(nodeCount*(nodeCount-1))
}

type typeAccumulator struct {
	edges         int
	bidirectional int
	strengthSum   float64
	strengthCount int
}

func summarize(projectID string, edges []entities.Edge, adj *adjacency) domain.GraphSummary {
	byType := make(map[string]*typeAccumulator)
	active := 0

	for _, e := range edges {
		if !e.IsActive {
			continue
		}
		active++

		acc, ok := byType[e.RelationshipType]
		if !ok {
			acc = &typeAccumulator{}
			byType[e.RelationshipType] = acc
		}
		acc.edges++
		if e.IsBidirectional {
			acc.bidirectional++
		}
		if e.Strength != nil {
			acc.strengthSum += *e.Strength
			acc.strengthCount++
		}
	}

	summaries := make([]domain.RelationshipTypeSummary, 0, len(byType))
	for relType, acc := range byType {
		s := domain.RelationshipTypeSummary{
			RelationshipType:   relType,
			EdgeCount:          acc.edges,
			BidirectionalRatio: float64(acc.bidirectional) / float64(acc.edges),
		}
		if acc.strengthCount > 0 {
			s.AverageStrength = acc.strengthSum / float64(acc.strengthCount)
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].RelationshipType < summaries[j].RelationshipType
	})

	return domain.GraphSummary{
		ProjectID: projectID,
		NodeCount: len(adj.nodes),
		EdgeCount: active,
		ByType:    summaries,
		Density:   density(len(adj.nodes), active),
	}
}
