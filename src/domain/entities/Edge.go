package entities

import (
	"encoding/json"
	"time"
)

// Provenance of an edge: how it entered the graph.
type EdgeSource string

const (
	EdgeSourceManual    EdgeSource = "manual"
	EdgeSourceImport    EdgeSource = "import"
	EdgeSourceInference EdgeSource = "inference"
	EdgeSourceTemplate  EdgeSource = "template"
)

func (s EdgeSource) IsValid() bool {
	switch s {
	case EdgeSourceManual, EdgeSourceImport, EdgeSourceInference, EdgeSourceTemplate:
		return true
	default:
		return false
	}
}

const (
	EdgeStatusActive  = "active"
	EdgeStatusDeleted = "deleted"
)

// Edge is a typed, directed (optionally bidirectional) relationship between two
// entity references. The engine never materializes the referenced rows.
type Edge struct {
	ID               int64    `json:"id"`
	ProjectID        string   `json:"project_id"`
	SourceType       string   `json:"source_type"`
	SourceID         string   `json:"source_id"`
	TargetType       string   `json:"target_type"`
	TargetID         string   `json:"target_id"`
	RelationshipType string   `json:"relationship_type"`
	Strength         *float64 `json:"strength,omitempty"`
	IsBidirectional  bool     `json:"is_bidirectional"`
	// Metadata about the relationship itself (e.g. invert elevation at a pipe connection).
	Attributes      json.RawMessage `json:"attributes,omitempty"`
	Status          string          `json:"status"`
	IsActive        bool            `json:"is_active"`
	Source          EdgeSource      `json:"source"`
	ConfidenceScore *float64        `json:"confidence_score,omitempty"`
	ValidFrom       *time.Time      `json:"valid_from,omitempty"`
	ValidTo         *time.Time      `json:"valid_to,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
