package traversal

import (
	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

// relatedEntities lists the entities one hop away from root, optionally
// restricted to a relationship type. direction selects which side of the
// edges root must occupy; bidirectional edges count for every direction and
// appear once even when both adjacency views hold them.
func relatedEntities(adj *adjacency, root domain.EntityRef, relationshipType string, direction entities.EdgeDirection) []domain.RelatedEntity {
	var related []domain.RelatedEntity
	seen := make(map[int64]bool)

	collect := func(hops []hop) {
		for _, h := range hops {
			if relationshipType != "" && h.edge.RelationshipType != relationshipType {
				continue
			}
			if seen[h.edge.ID] {
				continue
			}
			seen[h.edge.ID] = true

			label := "incoming"
			if sourceRef(h.edge) == root {
				label = "outgoing"
			}
			related = append(related, domain.RelatedEntity{
				Entity:    h.neighbor,
				Edge:      h.edge,
				Direction: label,
			})
		}
	}

	if direction == entities.DirectionOutgoing || direction == entities.DirectionBoth {
		collect(adj.forward[root])
	}
	if direction == entities.DirectionIncoming || direction == entities.DirectionBoth {
		collect(adj.reverse[root])
	}

	return related
}

// subgraphBFS expands breadth-first from root up to maxDepth hops. Each node
// is recorded at its first-discovery depth, which under BFS is its minimal
// depth. budget caps total edge expansions; when it runs out the result is
// marked truncated rather than failed.
func subgraphBFS(adj *adjacency, root domain.EntityRef, maxDepth int, budget int) domain.Subgraph {
	result := domain.Subgraph{Root: root}

	visited := map[domain.EntityRef]bool{root: true}
	result.Nodes = append(result.Nodes, domain.SubgraphNode{Entity: root, Depth: 0})

	seenEdges := make(map[int64]bool)
	frontier := []domain.EntityRef{root}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []domain.EntityRef

		for _, node := range frontier {
			for _, h := range adj.neighbors(node, "") {
				if budget <= 0 {
					result.Truncated = true
					return result
				}
				budget--

				if !seenEdges[h.edge.ID] {
					seenEdges[h.edge.ID] = true
					result.Edges = append(result.Edges, h.edge)
				}

				if visited[h.neighbor] {
					continue
				}
				visited[h.neighbor] = true
				result.Nodes = append(result.Nodes, domain.SubgraphNode{Entity: h.neighbor, Depth: depth})
				next = append(next, h.neighbor)
			}
		}

		frontier = next
	}

	return result
}

// edgesBetween returns the active edges whose endpoints both fall inside the
// given node set. Used to close a subgraph over its induced edges.
func edgesBetween(edges []entities.Edge, nodes map[domain.EntityRef]struct{}) []entities.Edge {
	var inside []entities.Edge
	for _, e := range edges {
		if !e.IsActive {
			continue
		}
		if _, ok := nodes[sourceRef(e)]; !ok {
			continue
		}
		if _, ok := nodes[targetRef(e)]; !ok {
			continue
		}
		inside = append(inside, e)
	}
	return inside
}
