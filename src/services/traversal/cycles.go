package traversal

import (
	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

const (
	colorWhite = iota // unvisited
	colorGray         // on the current DFS stack
	colorBlack        // fully explored
)

// frame is one level of the explicit DFS stack.
type frame struct {
	node domain.EntityRef
	via  *entities.Edge // edge that led here, nil for roots
	hops []hop
	next int
}

// detectCycles finds cycles with an iterative DFS and three-color marking.
// A hop into a gray node is a back edge; the cycle is cut out of the explicit
// stack between the two occurrences. Cycles sharing nodes with an already
// reported one may be collapsed into it, so the result is a non-empty sample
// whenever cycles exist, not an exhaustive enumeration.
func detectCycles(adj *adjacency, budget int) ([]domain.Cycle, bool) {
	color := make(map[domain.EntityRef]int, len(adj.nodes))
	var cycles []domain.Cycle
	truncated := false

	// Stable start order keeps results deterministic for a given snapshot.
	starts := sortedRefs(adj.nodes)

	for _, start := range starts {
		if color[start] != colorWhite || truncated {
			continue
		}

		stack := []frame{{node: start, hops: adj.neighbors(start, "")}}
		color[start] = colorGray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]

			if top.next >= len(top.hops) {
				color[top.node] = colorBlack
				stack = stack[:len(stack)-1]
				continue
			}

			h := top.hops[top.next]
			top.next++

			if budget <= 0 {
				truncated = true
				break
			}
			budget--

			// A bidirectional edge is one link, not a two-node cycle;
			// skip stepping straight back across the edge we came in on.
			if h.edge.IsBidirectional && top.via != nil && top.via.ID == h.edge.ID {
				continue
			}

			switch color[h.neighbor] {
			case colorGray:
				cycles = append(cycles, cutCycle(stack, h))
			case colorWhite:
				color[h.neighbor] = colorGray
				edge := h.edge
				stack = append(stack, frame{node: h.neighbor, via: &edge, hops: adj.neighbors(h.neighbor, "")})
			}
		}
	}

	return cycles, truncated
}

// cutCycle slices the node sequence between the back edge's target and the
// top of the stack, closing it with the back edge itself.
func cutCycle(stack []frame, back hop) domain.Cycle {
	start := 0
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].node == back.neighbor {
			start = i
			break
		}
	}

	var cycle domain.Cycle
	for i := start; i < len(stack); i++ {
		cycle.Nodes = append(cycle.Nodes, stack[i].node)
		if i > start && stack[i].via != nil {
			cycle.Edges = append(cycle.Edges, *stack[i].via)
		}
	}
	cycle.Edges = append(cycle.Edges, back.edge)
	return cycle
}
