package traversal

import (
	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

// crumb remembers how BFS first reached a node, for path reconstruction.
type crumb struct {
	prev domain.EntityRef
	via  entities.Edge
}

// shortestPath runs BFS from source and reconstructs the first path that
// reaches target. BFS discovery order guarantees minimal hop count. Returns
// nil when no path exists within maxDepth hops and the budget.
func shortestPath(adj *adjacency, source, target domain.EntityRef, maxDepth, budget int) *domain.Path {
	if source == target {
		return &domain.Path{Source: source, Target: target}
	}

	trail := make(map[domain.EntityRef]crumb)
	visited := map[domain.EntityRef]bool{source: true}
	frontier := []domain.EntityRef{source}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []domain.EntityRef
		for _, node := range frontier {
			for _, h := range adj.neighbors(node, "") {
				if budget <= 0 {
					return nil
				}
				budget--

				if visited[h.neighbor] {
					continue
				}
				visited[h.neighbor] = true
				trail[h.neighbor] = crumb{prev: node, via: h.edge}

				if h.neighbor == target {
					return reconstruct(source, target, trail)
				}
				next = append(next, h.neighbor)
			}
		}
		frontier = next
	}

	return nil
}

func reconstruct(source, target domain.EntityRef, trail map[domain.EntityRef]crumb) *domain.Path {
	var edges []entities.Edge
	for at := target; at != source; {
		c := trail[at]
		edges = append(edges, c.via)
		at = c.prev
	}

	// Reverse into source-to-target order.
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	return &domain.Path{Source: source, Target: target, Edges: edges}
}

// allPaths enumerates every simple path from source to target up to maxDepth
// hops, DFS with a per-branch copy of the visited set so that separate
// branches may reuse the same intermediate nodes. Capped at maxPaths results
// and a total expansion budget.
func allPaths(adj *adjacency, source, target domain.EntityRef, maxDepth, maxPaths int, budget int) ([]domain.Path, bool) {
	var paths []domain.Path
	truncated := false

	var walk func(node domain.EntityRef, visited map[domain.EntityRef]bool, edges []entities.Edge)
	walk = func(node domain.EntityRef, visited map[domain.EntityRef]bool, edges []entities.Edge) {
		if len(paths) >= maxPaths || truncated {
			return
		}
		if node == target {
			path := domain.Path{Source: source, Target: target, Edges: append([]entities.Edge(nil), edges...)}
			paths = append(paths, path)
			return
		}
		if len(edges) >= maxDepth {
			return
		}

		for _, h := range adj.neighbors(node, "") {
			if budget <= 0 {
				truncated = true
				return
			}
			budget--

			if visited[h.neighbor] {
				continue
			}

			branch := make(map[domain.EntityRef]bool, len(visited)+1)
			for k := range visited {
				branch[k] = true
			}
			branch[h.neighbor] = true

			walk(h.neighbor, branch, append(edges, h.edge))
		}
	}

	walk(source, map[domain.EntityRef]bool{source: true}, nil)
	return paths, truncated
}
