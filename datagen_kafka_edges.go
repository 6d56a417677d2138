//go:build datagen_kafka_edges
// +build datagen_kafka_edges

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

	"github.com/brianvoe/gofakeit/v6"

	"github.com/Rtoony/survey-data-system-sub001/src/helper/env"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/kafka"
)

// Produces edge-import messages for the edge import consumer.
//
// Usage:
//
//	go run -tags datagen_kafka_edges . -count 5000 -batch 100

// EdgeImportMessage mirrors the consumer's wire schema.
type EdgeImportMessage struct {
	ProjectID        string          `json:"project_id"`
	SourceType       string          `json:"source_type"`
	SourceID         string          `json:"source_id"`
	TargetType       string          `json:"target_type"`
	TargetID         string          `json:"target_id"`
	RelationshipType string          `json:"relationship_type"`
	Strength         *float64        `json:"strength,omitempty"`
	IsBidirectional  bool            `json:"is_bidirectional,omitempty"`
	Attributes       json.RawMessage `json:"attributes,omitempty"`
	ConfidenceScore  *float64        `json:"confidence_score,omitempty"`
}

var pairings = []struct {
	sourceType string
	targetType string
	relType    string
}{
	{"gravity_pipe", "gravity_structure", "connects_to"},
	{"gravity_structure", "gravity_structure", "drains_to"},
	{"gravity_pipe", "spec_section", "governed_by"},
	{"gravity_pipe", "parcel", "serves"},
	{"alignment", "survey_point", "crosses"},
}

func generateMessage(projectID string) EdgeImportMessage {
	pairing := pairings[rand.Intn(len(pairings))]
	strength := 0.4 + rand.Float64()*0.6
	confidence := 0.7 + rand.Float64()*0.3

	attributes, _ := json.Marshal(map[string]interface{}{
		"import_batch": gofakeit.UUID(),
		"station":      fmt.Sprintf("%d+%02d", gofakeit.Number(0, 120), gofakeit.Number(0, 99)),
	})

	return EdgeImportMessage{
		ProjectID:        projectID,
		SourceType:       pairing.sourceType,
		SourceID:         fmt.Sprintf("%s-%s", projectID, gofakeit.UUID()),
		TargetType:       pairing.targetType,
		TargetID:         fmt.Sprintf("%s-%s", projectID, gofakeit.UUID()),
		RelationshipType: pairing.relType,
		Strength:         &strength,
		IsBidirectional:  pairing.relType == "crosses",
		Attributes:       attributes,
		ConfidenceScore:  &confidence,
	}
}

func main() {
	count := flag.Int("count", 1000, "total messages to produce")
	batchSize := flag.Int("batch", 100, "messages per produce call")
	projects := flag.Int("projects", 3, "number of distinct projects")
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

	brokers := env.MustGetString("KAFKA_BROKERS")
	topic := env.MustGetString("KAFKA_EDGE_IMPORT_TOPIC")

	client, err := kafka.NewKafkaClient(brokers, "datagen-edges", *batchSize)
	if err != nil {
		log.Fatalf("Failed to create kafka client: %v", err)
	}
	defer client.Close()

	start := time.Now()
	produced := 0

	for produced < *count && ctx.Err() == nil {
		size := *batchSize
		if remaining := *count - produced; remaining < size {
			size = remaining
		}

		messages := make([]kafka.Message, 0, size)
		for i := 0; i < size; i++ {
			projectID := fmt.Sprintf("PRJ-%04d", rand.Intn(*projects)+1)
			msg := generateMessage(projectID)

			value, err := json.Marshal(msg)
			if err != nil {
				log.Fatalf("Failed to marshal message: %v", err)
			}

			messages = append(messages, kafka.Message{
				Key:   msg.ProjectID,
				Value: value,
			})
		}

		if err := client.Producer(messages, topic); err != nil {
			log.Fatalf("Failed to produce batch: %v", err)
		}
		produced += size

		if produced%1000 == 0 {
			log.Printf("Produced %d/%d messages", produced, *count)
		}
	}

	log.Printf("Produced %d messages in %s", produced, time.Since(start).Round(time.Millisecond))
}
