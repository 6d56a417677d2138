package traversal_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/services/traversal"
	"github.com/Rtoony/survey-data-system-sub001/src/test_artefacts/stubs"
)

type fakeEdgeSnapshot struct {
	edges   map[string][]entities.Edge
	failure error
}

func (f *fakeEdgeSnapshot) ListByProject(_ context.Context, projectID string) ([]entities.Edge, error) {
	if f.failure != nil {
		return nil, f.failure
	}
	return f.edges[projectID], nil
}

func pipe(id string) domain.EntityRef {
	return domain.EntityRef{EntityType: "gravity_pipe", EntityID: id}
}

func structure(id string) domain.EntityRef {
	return domain.EntityRef{EntityType: "gravity_structure", EntityID: id}
}

var _ = Describe("TraversalService", func() {
	var (
		ctx      context.Context
		snapshot *fakeEdgeSnapshot
		service  *traversal.TraversalService
	)

	const projectID = "PRJ-0042"

	connectsTo := func(id int64, source, target domain.EntityRef) entities.Edge {
		return stubs.NewEdgeStub().
			WithID(id).
			WithProjectID(projectID).
			WithSource(source.EntityType, source.EntityID).
			WithTarget(target.EntityType, target.EntityID).
			WithRelationshipType("connects_to").
			Get()
	}

	BeforeEach(func() {
		ctx = context.Background()
		snapshot = &fakeEdgeSnapshot{edges: map[string][]entities.Edge{}}
		service = traversal.NewTraversalService(snapshot)
	})

	Context("when a pipe connects two structures", func() {
		// P1 -> S1 and P1 -> S2, both directed.
		BeforeEach(func() {
			snapshot.edges[projectID] = []entities.Edge{
				connectsTo(1, pipe("P1"), structure("S1")),
				connectsTo(2, pipe("P1"), structure("S2")),
			}
		})

		It("lists both structures as outgoing neighbors of the pipe", func() {
			// ACT
			related, err := service.GetRelated(ctx, projectID, pipe("P1"), "", entities.DirectionBoth)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(related).To(HaveLen(2))
			for _, r := range related {
				Expect(r.Direction).To(Equal("outgoing"))
				Expect(r.Entity.EntityType).To(Equal("gravity_structure"))
			}
		})

		It("lists the pipe as an incoming neighbor of each structure", func() {
			related, err := service.GetRelated(ctx, projectID, structure("S1"), "", entities.DirectionBoth)

			Expect(err).NotTo(HaveOccurred())
			Expect(related).To(HaveLen(1))
			Expect(related[0].Direction).To(Equal("incoming"))
			Expect(related[0].Entity).To(Equal(pipe("P1")))
		})

		It("restricts the neighborhood to the requested side", func() {
			outgoing, err := service.GetRelated(ctx, projectID, structure("S1"), "", entities.DirectionOutgoing)
			Expect(err).NotTo(HaveOccurred())
			Expect(outgoing).To(BeEmpty())

			incoming, err := service.GetRelated(ctx, projectID, structure("S1"), "", entities.DirectionIncoming)
			Expect(err).NotTo(HaveOccurred())
			Expect(incoming).To(HaveLen(1))
			Expect(incoming[0].Entity).To(Equal(pipe("P1")))

			upstream, err := service.GetRelated(ctx, projectID, pipe("P1"), "", entities.DirectionIncoming)
			Expect(err).NotTo(HaveOccurred())
			Expect(upstream).To(BeEmpty())
		})

		It("treats an empty direction as both sides", func() {
			related, err := service.GetRelated(ctx, projectID, structure("S1"), "", "")

			Expect(err).NotTo(HaveOccurred())
			Expect(related).To(HaveLen(1))
			Expect(related[0].Direction).To(Equal("incoming"))
		})

		It("rejects an unknown direction", func() {
			_, err := service.GetRelated(ctx, projectID, pipe("P1"), "", "sideways")

			Expect(err).To(MatchError(ContainSubstring("unknown direction")))
		})

		It("filters neighbors by relationship type", func() {
			related, err := service.GetRelated(ctx, projectID, pipe("P1"), "drains_to", entities.DirectionBoth)

			Expect(err).NotTo(HaveOccurred())
			Expect(related).To(BeEmpty())
		})

		It("returns the full three-node subgraph at depth 1 from the pipe", func() {
			sub, err := service.GetSubgraph(ctx, projectID, pipe("P1"), 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(sub.Root).To(Equal(pipe("P1")))
			Expect(sub.Nodes).To(HaveLen(3))
			Expect(sub.Edges).To(HaveLen(2))
			Expect(sub.Truncated).To(BeFalse())
		})

		It("finds no path between the two structures", func() {
			// Both edges point away from the pipe, so S1 cannot reach S2.
			path, err := service.FindPath(ctx, projectID, structure("S1"), structure("S2"), 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(BeNil())
		})

		It("finds the one-hop path from the pipe to a structure", func() {
			path, err := service.FindPath(ctx, projectID, pipe("P1"), structure("S2"), 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(path).NotTo(BeNil())
			Expect(path.Length()).To(Equal(1))
			Expect(path.Edges[0].ID).To(Equal(int64(2)))
		})

		It("returns a zero-length path from a node to itself", func() {
			path, err := service.FindPath(ctx, projectID, pipe("P1"), pipe("P1"), 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(path).NotTo(BeNil())
			Expect(path.Length()).To(Equal(0))
		})
	})

	Context("when edges are inactive", func() {
		It("never traverses them", func() {
			// ARRANGE
			inactive := stubs.NewEdgeStub().
				WithID(7).
				WithProjectID(projectID).
				WithSource("gravity_pipe", "P1").
				WithTarget("gravity_structure", "S1").
				Inactive().
				Get()
			snapshot.edges[projectID] = []entities.Edge{inactive}

			// ACT
			related, err := service.GetRelated(ctx, projectID, pipe("P1"), "", entities.DirectionBoth)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(related).To(BeEmpty())
		})
	})

	Context("when a bidirectional edge links two entities", func() {
		BeforeEach(func() {
			crossing := stubs.NewEdgeStub().
				WithID(9).
				WithProjectID(projectID).
				WithSource("gravity_pipe", "P1").
				WithTarget("pressure_pipe", "W1").
				WithRelationshipType("crosses").
				Bidirectional().
				Get()
			snapshot.edges[projectID] = []entities.Edge{crossing}
		})

		It("traverses it in both directions", func() {
			forward, err := service.FindPath(ctx, projectID, pipe("P1"), domain.EntityRef{EntityType: "pressure_pipe", EntityID: "W1"}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(forward).NotTo(BeNil())

			backward, err := service.FindPath(ctx, projectID, domain.EntityRef{EntityType: "pressure_pipe", EntityID: "W1"}, pipe("P1"), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(backward).NotTo(BeNil())
		})

		It("reports the neighbor once for either endpoint regardless of direction", func() {
			for _, direction := range []entities.EdgeDirection{entities.DirectionOutgoing, entities.DirectionIncoming, entities.DirectionBoth} {
				related, err := service.GetRelated(ctx, projectID, pipe("P1"), "", direction)
				Expect(err).NotTo(HaveOccurred())
				Expect(related).To(HaveLen(1))
				Expect(related[0].Entity).To(Equal(domain.EntityRef{EntityType: "pressure_pipe", EntityID: "W1"}))
				Expect(related[0].Direction).To(Equal("outgoing"))
			}
		})

		It("does not report the edge alone as a cycle", func() {
			cycles, err := service.DetectCycles(ctx, projectID)

			Expect(err).NotTo(HaveOccurred())
			Expect(cycles).To(BeEmpty())
		})
	})

	Context("when finding paths in a diamond graph", func() {
		// S1 -> S2 -> S4 and S1 -> S3 -> S4, plus a direct S1 -> S4 shortcut.
		BeforeEach(func() {
			snapshot.edges[projectID] = []entities.Edge{
				connectsTo(1, structure("S1"), structure("S2")),
				connectsTo(2, structure("S2"), structure("S4")),
				connectsTo(3, structure("S1"), structure("S3")),
				connectsTo(4, structure("S3"), structure("S4")),
				connectsTo(5, structure("S1"), structure("S4")),
			}
		})

		It("prefers the shortest route", func() {
			path, err := service.FindPath(ctx, projectID, structure("S1"), structure("S4"), 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(path.Length()).To(Equal(1))
			Expect(path.Edges[0].ID).To(Equal(int64(5)))
		})

		It("finds no path when the target sits beyond the depth bound", func() {
			// Dropping the direct shortcut leaves only two-hop routes.
			snapshot.edges[projectID] = snapshot.edges[projectID][:4]

			blocked, err := service.FindPath(ctx, projectID, structure("S1"), structure("S4"), 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(blocked).To(BeNil())

			path, err := service.FindPath(ctx, projectID, structure("S1"), structure("S4"), 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).NotTo(BeNil())
			Expect(path.Length()).To(Equal(2))
		})

		It("enumerates every simple path within the depth bound", func() {
			paths, err := service.FindAllPaths(ctx, projectID, structure("S1"), structure("S4"), 3, 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(paths).To(HaveLen(3))
		})

		It("caps the number of returned paths", func() {
			paths, err := service.FindAllPaths(ctx, projectID, structure("S1"), structure("S4"), 3, 2)

			Expect(err).NotTo(HaveOccurred())
			Expect(paths).To(HaveLen(2))
		})

		It("excludes paths longer than the depth bound", func() {
			paths, err := service.FindAllPaths(ctx, projectID, structure("S1"), structure("S4"), 1, 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(paths).To(HaveLen(1))
			Expect(paths[0].Length()).To(Equal(1))
		})
	})

	Context("when the drainage network loops back on itself", func() {
		BeforeEach(func() {
			snapshot.edges[projectID] = []entities.Edge{
				connectsTo(1, structure("S1"), structure("S2")),
				connectsTo(2, structure("S2"), structure("S3")),
				connectsTo(3, structure("S3"), structure("S1")),
				connectsTo(4, structure("S3"), structure("S4")),
			}
		})

		It("detects the directed cycle", func() {
			cycles, err := service.DetectCycles(ctx, projectID)

			Expect(err).NotTo(HaveOccurred())
			Expect(cycles).To(HaveLen(1))
			Expect(cycles[0].Edges).To(HaveLen(3))
			Expect(cycles[0].Nodes).To(ContainElements(structure("S1"), structure("S2"), structure("S3")))
		})

		It("reports no cycles once the loop edge is gone", func() {
			snapshot.edges[projectID] = snapshot.edges[projectID][:2]

			cycles, err := service.DetectCycles(ctx, projectID)

			Expect(err).NotTo(HaveOccurred())
			Expect(cycles).To(BeEmpty())
		})
	})

	Context("when summarizing connectivity", func() {
		BeforeEach(func() {
			strength := func(id int64, source, target domain.EntityRef, s float64) entities.Edge {
				return stubs.NewEdgeStub().
					WithID(id).
					WithProjectID(projectID).
					WithSource(source.EntityType, source.EntityID).
					WithTarget(target.EntityType, target.EntityID).
					WithRelationshipType("connects_to").
					WithStrength(s).
					Get()
			}
			snapshot.edges[projectID] = []entities.Edge{
				strength(1, pipe("P1"), structure("S1"), 0.5),
				strength(2, pipe("P1"), structure("S2"), 1.0),
				connectsTo(3, pipe("P2"), structure("S1")),
			}
		})

		It("ranks the hub first among most connected", func() {
			counts, err := service.MostConnected(ctx, projectID, 2)

			Expect(err).NotTo(HaveOccurred())
			Expect(counts).To(HaveLen(2))
			Expect(counts[0].Total).To(BeNumerically(">=", counts[1].Total))
			Expect(counts[0].Entity).To(Or(Equal(pipe("P1")), Equal(structure("S1"))))
		})

		It("computes in and out degree separately", func() {
			counts, err := service.ConnectionCounts(ctx, projectID)

			Expect(err).NotTo(HaveOccurred())
			byEntity := map[domain.EntityRef]domain.ConnectionCount{}
			for _, c := range counts {
				byEntity[c.Entity] = c
			}
			Expect(byEntity[pipe("P1")].OutDegree).To(Equal(2))
			Expect(byEntity[pipe("P1")].InDegree).To(Equal(0))
			Expect(byEntity[structure("S1")].InDegree).To(Equal(2))
		})

		It("aggregates per relationship type with average strength", func() {
			summary, err := service.RelationshipSummary(ctx, projectID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.EdgeCount).To(Equal(3))
			Expect(summary.NodeCount).To(Equal(4))
			Expect(summary.ByType).To(HaveLen(1))
			Expect(summary.ByType[0].RelationshipType).To(Equal("connects_to"))
			Expect(summary.ByType[0].EdgeCount).To(Equal(3))
			Expect(summary.ByType[0].AverageStrength).To(BeNumerically("~", 0.75, 1e-9))
			Expect(summary.Density).To(BeNumerically("~", 3.0/12.0, 1e-9))
		})
	})

	Context("when the graph is empty", func() {
		It("reports an empty summary with zero density", func() {
			summary, err := service.RelationshipSummary(ctx, projectID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.EdgeCount).To(Equal(0))
			Expect(summary.NodeCount).To(Equal(0))
			Expect(summary.Density).To(BeZero())
		})
	})

	Context("when the snapshot cannot be loaded", func() {
		It("propagates the failure", func() {
			snapshot.failure = errors.New("connection refused")

			_, err := service.GetRelated(ctx, projectID, pipe("P1"), "", entities.DirectionBoth)

			Expect(err).To(HaveOccurred())
		})
	})
})
