package edges_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/registry"
	"github.com/Rtoony/survey-data-system-sub001/src/helper/env"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/postgres"
	"github.com/Rtoony/survey-data-system-sub001/src/repositories"
	"github.com/Rtoony/survey-data-system-sub001/src/services/edges"
	"github.com/Rtoony/survey-data-system-sub001/src/test_artefacts/comparer"
	"github.com/Rtoony/survey-data-system-sub001/src/test_artefacts/test_seeder"
)

var _ = Describe("EdgeService", func() {
	var (
		pool        *pgxpool.Pool
		testSeeder  test_seeder.TestSeeder
		edgeService *edges.EdgeService
		ctx         context.Context
		err         error
	)

	dbHost := env.MustGetString("TEST_DB_HOST")
	dbPort := env.GetString("TEST_DB_PORT", "5432")
	dbName := env.MustGetString("TEST_DB_NAME")
	dbUser := env.MustGetString("TEST_DB_USER")
	dbPassword := env.MustGetString("TEST_DB_PASSWORD")
	maxConnections := env.GetInt("TEST_DB_MAX_POOL_CONNECTIONS", 25)

	const projectID = "PRJ-TEST"

	pipeToStructure := func(sourceID, targetID string) domain.CreateEdgeRequest {
		return domain.CreateEdgeRequest{
			Source:           domain.EntityRef{EntityType: "gravity_pipe", EntityID: sourceID},
			Target:           domain.EntityRef{EntityType: "gravity_structure", EntityID: targetID},
			RelationshipType: "connects_to",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()

		pool, err = postgres.NewPostgresClient(dbHost, dbPort, dbName, dbUser, dbPassword, maxConnections)
		if err != nil {
			panic(err)
		}

		edgeQueryRepository := repositories.NewEdgeQueryRepository(pool)
		cachedEdgeRepository := repositories.NewCachedEdgeRepository(edgeQueryRepository, nil)
		edgeWriteRepository := repositories.NewEdgeWriteRepository(pool, cachedEdgeRepository)
		relationshipTypeRepository := repositories.NewRelationshipTypeRepository(pool)
		edgeService = edges.NewEdgeService(registry.NewDefault(), relationshipTypeRepository, edgeWriteRepository, edgeQueryRepository)
		testSeeder = test_seeder.New(pool)

		testSeeder.TruncateTables(ctx)
		testSeeder.InsertRelationshipType(ctx, &entities.RelationshipType{
			Code:               "connects_to",
			Category:           "physical",
			AllowedSourceTypes: []string{"gravity_pipe", "gravity_structure"},
			AllowedTargetTypes: []string{"gravity_pipe", "gravity_structure"},
			IsActive:           true,
		})
	})

	AfterEach(func() {
		pool.Close()
	})

	Context("when creating an edge", func() {
		It("persists it with manual provenance by default", func() {
			// ACT
			created, err := edgeService.CreateEdge(ctx, projectID, pipeToStructure("P1", "S1"))

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(BeNumerically(">", 0))
			Expect(created.IsActive).To(BeTrue())
			Expect(created.Status).To(Equal(entities.EdgeStatusActive))
			Expect(created.Source).To(Equal(entities.EdgeSourceManual))

			stored, err := testSeeder.SelectEdgesByProject(ctx, projectID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(1))
			Expect(stored[0]).To(BeComparableTo(*created,
				comparer.TimeWithinTolerance(200),
				comparer.JSONRawMessage(),
			))
		})

		It("rejects an active duplicate", func() {
			_, err = edgeService.CreateEdge(ctx, projectID, pipeToStructure("P1", "S1"))
			Expect(err).NotTo(HaveOccurred())

			_, err = edgeService.CreateEdge(ctx, projectID, pipeToStructure("P1", "S1"))

			Expect(errors.Is(err, domain.ErrDuplicateEdge)).To(BeTrue())
		})

		It("rejects an unregistered entity type", func() {
			request := pipeToStructure("P1", "S1")
			request.Source.EntityType = "water_main"

			_, err = edgeService.CreateEdge(ctx, projectID, request)

			Expect(errors.Is(err, domain.ErrInvalidEntityType)).To(BeTrue())
		})

		It("rejects a pairing outside the relationship type's constraints", func() {
			request := pipeToStructure("P1", "S1")
			request.Target.EntityType = "parcel"

			_, err = edgeService.CreateEdge(ctx, projectID, request)

			Expect(errors.Is(err, domain.ErrInvalidPairing)).To(BeTrue())
		})

		It("rejects an unknown relationship type code", func() {
			request := pipeToStructure("P1", "S1")
			request.RelationshipType = "teleports_to"

			_, err = edgeService.CreateEdge(ctx, projectID, request)

			Expect(errors.Is(err, domain.ErrInvalidRelationshipType)).To(BeTrue())
		})
	})

	Context("when recreating a soft-deleted edge", func() {
		It("resurrects the original row instead of inserting a new one", func() {
			// ARRANGE
			created, err := edgeService.CreateEdge(ctx, projectID, pipeToStructure("P1", "S1"))
			Expect(err).NotTo(HaveOccurred())

			Expect(edgeService.DeleteEdge(ctx, created.ID, domain.DeleteSoft)).To(Succeed())

			// ACT
			revived, err := edgeService.CreateEdge(ctx, projectID, pipeToStructure("P1", "S1"))

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(revived.ID).To(Equal(created.ID))
			Expect(revived.IsActive).To(BeTrue())
			Expect(revived.Status).To(Equal(entities.EdgeStatusActive))
		})

		It("leaves a hard-deleted edge gone for good", func() {
			created, err := edgeService.CreateEdge(ctx, projectID, pipeToStructure("P1", "S1"))
			Expect(err).NotTo(HaveOccurred())

			Expect(edgeService.DeleteEdge(ctx, created.ID, domain.DeleteHard)).To(Succeed())

			recreated, err := edgeService.CreateEdge(ctx, projectID, pipeToStructure("P1", "S1"))

			Expect(err).NotTo(HaveOccurred())
			Expect(recreated.ID).NotTo(Equal(created.ID))
		})
	})

	Context("when creating edges in batch", func() {
		It("inserts every edge of a valid batch", func() {
			requests := []domain.CreateEdgeRequest{
				pipeToStructure("P1", "S1"),
				pipeToStructure("P1", "S2"),
				pipeToStructure("P2", "S1"),
			}

			created, err := edgeService.CreateEdgesBatch(ctx, projectID, requests)

			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(HaveLen(3))

			stored, err := testSeeder.SelectEdgesByProject(ctx, projectID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(3))
		})

		It("aborts the whole batch on the first invalid request", func() {
			bad := pipeToStructure("P2", "S2")
			bad.Source.EntityType = "water_main"
			requests := []domain.CreateEdgeRequest{pipeToStructure("P1", "S1"), bad}

			_, err := edgeService.CreateEdgesBatch(ctx, projectID, requests)

			Expect(err).To(HaveOccurred())
			stored, err := testSeeder.SelectEdgesByProject(ctx, projectID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeEmpty())
		})
	})

	Context("when listing edges", func() {
		BeforeEach(func() {
			_, err = edgeService.CreateEdge(ctx, projectID, pipeToStructure("P1", "S1"))
			Expect(err).NotTo(HaveOccurred())
			created, createErr := edgeService.CreateEdge(ctx, projectID, pipeToStructure("P2", "S1"))
			Expect(createErr).NotTo(HaveOccurred())
			Expect(edgeService.DeleteEdge(ctx, created.ID, domain.DeleteSoft)).To(Succeed())
		})

		It("hides soft-deleted edges by default", func() {
			listed, err := edgeService.GetEdges(ctx, domain.EdgeFilters{ProjectID: projectID}, 0, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(HaveLen(1))
			Expect(listed[0].SourceID).To(Equal("P1"))
		})

		It("includes them when asked", func() {
			listed, err := edgeService.GetEdges(ctx, domain.EdgeFilters{ProjectID: projectID, IncludeInactive: true}, 0, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(HaveLen(2))
		})
	})

	Context("when listing edges touching an entity", func() {
		structureRef := domain.EntityRef{EntityType: "gravity_structure", EntityID: "S1"}

		BeforeEach(func() {
			// P1 -> S1, P2 -> S1 and S1 -> S2, all directed.
			_, err = edgeService.CreateEdge(ctx, projectID, pipeToStructure("P1", "S1"))
			Expect(err).NotTo(HaveOccurred())
			_, err = edgeService.CreateEdge(ctx, projectID, pipeToStructure("P2", "S1"))
			Expect(err).NotTo(HaveOccurred())
			_, err = edgeService.CreateEdge(ctx, projectID, domain.CreateEdgeRequest{
				Source:           domain.EntityRef{EntityType: "gravity_structure", EntityID: "S1"},
				Target:           domain.EntityRef{EntityType: "gravity_structure", EntityID: "S2"},
				RelationshipType: "connects_to",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("splits the edges by the side the entity occupies", func() {
			incoming, err := edgeService.ListEdgesTouching(ctx, structureRef, projectID, "", entities.DirectionIncoming)
			Expect(err).NotTo(HaveOccurred())
			Expect(incoming).To(HaveLen(2))
			for _, e := range incoming {
				Expect(e.TargetID).To(Equal("S1"))
			}

			outgoing, err := edgeService.ListEdgesTouching(ctx, structureRef, projectID, "", entities.DirectionOutgoing)
			Expect(err).NotTo(HaveOccurred())
			Expect(outgoing).To(HaveLen(1))
			Expect(outgoing[0].TargetID).To(Equal("S2"))

			both, err := edgeService.ListEdgesTouching(ctx, structureRef, projectID, "", entities.DirectionBoth)
			Expect(err).NotTo(HaveOccurred())
			Expect(both).To(HaveLen(3))
		})

		It("omits soft-deleted edges", func() {
			listed, err := edgeService.ListEdgesTouching(ctx, structureRef, projectID, "", entities.DirectionBoth)
			Expect(err).NotTo(HaveOccurred())
			Expect(edgeService.DeleteEdge(ctx, listed[0].ID, domain.DeleteSoft)).To(Succeed())

			remaining, err := edgeService.ListEdgesTouching(ctx, structureRef, projectID, "", entities.DirectionBoth)
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(HaveLen(2))
		})

		It("rejects an unregistered entity type", func() {
			_, err := edgeService.ListEdgesTouching(ctx, domain.EntityRef{EntityType: "water_main", EntityID: "W1"}, projectID, "", entities.DirectionBoth)

			Expect(errors.Is(err, domain.ErrInvalidEntityType)).To(BeTrue())
		})
	})

	Context("when pre-validating edge data", func() {
		It("accepts a valid combination", func() {
			ok, reason, err := edgeService.ValidateEdgeData(ctx, "gravity_pipe", "gravity_structure", "connects_to")

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(reason).To(BeEmpty())
		})

		It("explains a disallowed pairing without erroring", func() {
			ok, reason, err := edgeService.ValidateEdgeData(ctx, "gravity_pipe", "parcel", "connects_to")

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(reason).To(ContainSubstring("not an allowed pairing"))
		})
	})
})
