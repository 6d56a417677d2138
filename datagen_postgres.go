//go:build datagen_postgres
// +build datagen_postgres

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rtoony/survey-data-system-sub001/src/helper/env"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/postgres"
)

// Seeds realistic survey records plus a connected edge graph per project:
// a run of gravity pipes chained through structures, parcels touching pipes,
// and spec sections governing everything.
//
// Usage:
//
//	go run -tags datagen_postgres . -projects 5 -pipes 200

var (
	pipeMaterials  = []string{"PVC", "RCP", "DIP", "HDPE", "VCP"}
	structureKinds = []string{"manhole", "catch_basin", "junction_box", "outfall"}
	specCodes      = []string{"33-31-11", "33-41-13", "33-42-11", "02-63-13"}
)

type projectSeed struct {
	projectID  string
	pipes      []string
	structures []string
	specs      []string
}

func main() {
	projects := flag.Int("projects", 3, "number of projects to seed")
	pipesPerProject := flag.Int("pipes", 100, "gravity pipes per project")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("Interrupted, stopping...")
		cancel()
	}()

	pool, err := newPool()
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	ensureRelationshipTypes(ctx, pool)

	start := time.Now()
	totalEdges := 0
	for p := 0; p < *projects; p++ {
		if ctx.Err() != nil {
			break
		}

		seed := seedProject(ctx, pool, p, *pipesPerProject)
		edges := seedEdges(ctx, pool, seed)
		totalEdges += edges
		log.Printf("Seeded project %s: %d pipes, %d structures, %d edges",
			seed.projectID, len(seed.pipes), len(seed.structures), edges)
	}

	log.Printf("Done in %s, %d edges total", time.Since(start).Round(time.Millisecond), totalEdges)
}

func newPool() (*pgxpool.Pool, error) {
	dbHost := env.MustGetString("DB_HOST")
	dbPort := env.GetString("DB_PORT", "5432")
	dbname := env.MustGetString("DB_NAME")
	dbUser := env.MustGetString("DB_USER")
	dbPassword := env.MustGetString("DB_PASSWORD")

	return postgres.NewPostgresClient(dbHost, dbPort, dbname, dbUser, dbPassword, 10)
}

func ensureRelationshipTypes(ctx context.Context, pool *pgxpool.Pool) {
	types := []struct {
		code     string
		category string
		sources  []string
		targets  []string
	}{
		{"connects_to", "physical", []string{"gravity_pipe", "pressure_pipe"}, []string{"gravity_structure"}},
		{"drains_to", "physical", nil, nil},
		{"crosses", "spatial", nil, nil},
		{"governed_by", "standard", nil, []string{"spec_section", "cad_standard"}},
		{"serves", "functional", nil, []string{"parcel"}},
	}

	for _, t := range types {
		_, err := pool.Exec(ctx, `
			INSERT INTO relationship_types (code, category, allowed_source_types, allowed_target_types, is_active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (code) DO NOTHING`,
			t.code, t.category, t.sources, t.targets)
		if err != nil {
			log.Fatalf("Failed to ensure relationship type %s: %v", t.code, err)
		}
	}
}

func seedProject(ctx context.Context, pool *pgxpool.Pool, index, pipeCount int) projectSeed {
	seed := projectSeed{projectID: fmt.Sprintf("PRJ-%04d", index+1)}

	structureCount := pipeCount + 1
	for i := 0; i < structureCount; i++ {
		structureID := fmt.Sprintf("%s-STR-%05d", seed.projectID, i+1)
		_, err := pool.Exec(ctx, `
			INSERT INTO gravity_structures (structure_id, project_id, structure_kind, material, rim_elevation, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (structure_id) DO NOTHING`,
			structureID, seed.projectID,
			structureKinds[rand.Intn(len(structureKinds))],
			pipeMaterials[rand.Intn(len(pipeMaterials))],
			100+rand.Float64()*50)
		if err != nil {
			log.Fatalf("Failed to insert structure: %v", err)
		}
		seed.structures = append(seed.structures, structureID)
	}

	for i := 0; i < pipeCount; i++ {
		pipeID := fmt.Sprintf("%s-PIPE-%05d", seed.projectID, i+1)
		_, err := pool.Exec(ctx, `
			INSERT INTO gravity_pipes (pipe_id, project_id, material, diameter_mm, slope, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (pipe_id) DO NOTHING`,
			pipeID, seed.projectID,
			pipeMaterials[rand.Intn(len(pipeMaterials))],
			[]int{150, 200, 250, 300, 375, 450}[rand.Intn(6)],
			0.002+rand.Float64()*0.05)
		if err != nil {
			log.Fatalf("Failed to insert pipe: %v", err)
		}
		seed.pipes = append(seed.pipes, pipeID)
	}

	for _, code := range specCodes {
		seed.specs = append(seed.specs, fmt.Sprintf("SPEC-%s", code))
	}

	return seed
}

func seedEdges(ctx context.Context, pool *pgxpool.Pool, seed projectSeed) int {
	count := 0

	insert := func(sourceType, sourceID, targetType, targetID, relType string, bidirectional bool) {
		attributes, _ := json.Marshal(map[string]interface{}{
			"surveyed_by": faker.Name(),
			"notes":       faker.Sentence(),
		})

		_, err := pool.Exec(ctx, `
			INSERT INTO entity_relationships (project_id, source_type, source_id, target_type, target_id,
				relationship_type, strength, is_bidirectional, attributes, status, is_active, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'active', TRUE, 'import')
			ON CONFLICT DO NOTHING`,
			seed.projectID, sourceType, sourceID, targetType, targetID,
			relType, 0.5+rand.Float64()*0.5, bidirectional, attributes)
		if err != nil {
			log.Fatalf("Failed to insert edge: %v", err)
		}
		count++
	}

	// Chain each pipe between two structures: upstream structure -> pipe is
	// modeled as pipe connects_to both end structures.
	for i, pipeID := range seed.pipes {
		insert("gravity_pipe", pipeID, "gravity_structure", seed.structures[i], "connects_to", false)
		insert("gravity_pipe", pipeID, "gravity_structure", seed.structures[i+1], "connects_to", false)

		if rand.Float64() < 0.3 {
			spec := seed.specs[rand.Intn(len(seed.specs))]
			insert("gravity_pipe", pipeID, "spec_section", spec, "governed_by", false)
		}
	}

	// Downstream flow between consecutive structures.
	for i := 0; i+1 < len(seed.structures); i++ {
		insert("gravity_structure", seed.structures[i], "gravity_structure", seed.structures[i+1], "drains_to", false)
	}

	return count
}
