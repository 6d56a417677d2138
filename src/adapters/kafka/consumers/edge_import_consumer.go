package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/kafka"
	"github.com/Rtoony/survey-data-system-sub001/src/services/edges"
)

// EdgeImportMessage is the wire schema of one imported edge.
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

// EdgeImportConsumer ingests edges produced by external import pipelines
// (CAD extractors, survey post-processing). Everything it creates carries
// provenance "import". Poison messages are logged and dropped so one bad
// record cannot wedge the partition.
type EdgeImportConsumer struct {
	logger      *slog.Logger
	edgeService *edges.EdgeService
}

func NewEdgeImportConsumer(logger *slog.Logger, edgeService *edges.EdgeService) *EdgeImportConsumer {
	return &EdgeImportConsumer{
		logger:      logger,
		edgeService: edgeService,
	}
}

func (c *EdgeImportConsumer) Start(ctx context.Context, kafkaClient *kafka.KafkaClient, topic string) error {
	c.logger.Info("Starting edge import consumer", "topic", topic)

	handler := func(messages []kafka.Message) error {
		return c.handleMessages(ctx, messages)
	}

	return kafkaClient.Consumer(ctx, handler, topic)
}

func (c *EdgeImportConsumer) handleMessages(ctx context.Context, messages []kafka.Message) error {
	if len(messages) == 0 {
		return nil
	}

	c.logger.Info("Processing messages batch", "count", len(messages))

	// Edges are grouped per project so each group can go through the
	// transactional batch path.
	byProject := make(map[string][]domain.CreateEdgeRequest)

	for _, msg := range messages {
		var imported EdgeImportMessage
		if err := json.Unmarshal(msg.Value, &imported); err != nil {
			c.logger.Error("Dropping malformed message",
				"error", err,
				"key", msg.Key)
			continue
		}

		if imported.ProjectID == "" || imported.SourceID == "" || imported.TargetID == "" || imported.RelationshipType == "" {
			c.logger.Warn("Dropping message with missing required fields",
				"key", msg.Key,
				"project", imported.ProjectID,
				"relationshipType", imported.RelationshipType)
			continue
		}

		byProject[imported.ProjectID] = append(byProject[imported.ProjectID], domain.CreateEdgeRequest{
			Source:           domain.EntityRef{EntityType: imported.SourceType, EntityID: imported.SourceID},
			Target:           domain.EntityRef{EntityType: imported.TargetType, EntityID: imported.TargetID},
			RelationshipType: imported.RelationshipType,
			Strength:         imported.Strength,
			IsBidirectional:  imported.IsBidirectional,
			Attributes:       imported.Attributes,
			ConfidenceScore:  imported.ConfidenceScore,
			Origin:           entities.EdgeSourceImport,
		})
	}

	for projectID, requests := range byProject {
		created, err := c.edgeService.CreateEdgesBatch(ctx, projectID, requests)
		if err == nil {
			c.logger.Info("Imported edge batch", "project", projectID, "count", len(created))
			continue
		}

		// A batch with one bad edge rolls back whole; retry the rest one by
		// one so valid edges still land. Duplicates are an expected outcome
		// of replayed imports, not a failure.
		c.logger.Warn("Batch import failed, retrying edges individually",
			"project", projectID, "error", err)

		for _, req := range requests {
			if _, err := c.edgeService.CreateEdge(ctx, projectID, req); err != nil {
				if errors.Is(err, domain.ErrDuplicateEdge) {
					continue
				}
				c.logger.Error("Dropping unimportable edge",
					"project", projectID,
					"source", req.Source.EntityID,
					"target", req.Target.EntityID,
					"relationshipType", req.RelationshipType,
					"error", err)
			}
		}
	}

	return nil
}
