package stubs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

type EdgeStub struct {
	edge entities.Edge
}

func NewEdgeStub() EdgeStub {
	now := time.Now().UTC()

	attributes, _ := json.Marshal(map[string]interface{}{})

	edge := entities.Edge{
		ID:               gofakeit.Int64(),
		ProjectID:        fmt.Sprintf("PRJ-%04d", gofakeit.Number(1, 9999)),
		SourceType:       "gravity_pipe",
		SourceID:         gofakeit.UUID(),
		TargetType:       "gravity_structure",
		TargetID:         gofakeit.UUID(),
		RelationshipType: "connects_to",
		Attributes:       attributes,
		Status:           entities.EdgeStatusActive,
		IsActive:         true,
		Source:           entities.EdgeSourceManual,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	return EdgeStub{edge: edge}
}

func (es EdgeStub) WithID(id int64) EdgeStub {
	es.edge.ID = id
	return es
}

func (es EdgeStub) WithProjectID(projectID string) EdgeStub {
	es.edge.ProjectID = projectID
	return es
}

func (es EdgeStub) WithSource(entityType, entityID string) EdgeStub {
	es.edge.SourceType = entityType
	es.edge.SourceID = entityID
	return es
}

func (es EdgeStub) WithTarget(entityType, entityID string) EdgeStub {
	es.edge.TargetType = entityType
	es.edge.TargetID = entityID
	return es
}

func (es EdgeStub) WithRelationshipType(relationshipType string) EdgeStub {
	es.edge.RelationshipType = relationshipType
	return es
}

func (es EdgeStub) WithStrength(strength float64) EdgeStub {
	es.edge.Strength = &strength
	return es
}

func (es EdgeStub) Bidirectional() EdgeStub {
	es.edge.IsBidirectional = true
	return es
}

func (es EdgeStub) Inactive() EdgeStub {
	es.edge.IsActive = false
	es.edge.Status = entities.EdgeStatusDeleted
	return es
}

func (es EdgeStub) WithAttributes(attributes map[string]interface{}) EdgeStub {
	attrJSON, _ := json.Marshal(attributes)
	es.edge.Attributes = attrJSON
	return es
}

func (es EdgeStub) WithOrigin(origin entities.EdgeSource) EdgeStub {
	es.edge.Source = origin
	return es
}

func (es EdgeStub) Get() entities.Edge {
	return es.edge
}
