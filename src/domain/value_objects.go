package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

var (
	ErrInvalidEntityType       = errors.New("invalid entity type")
	ErrInvalidRelationshipType = errors.New("invalid relationship type")
	ErrInvalidPairing          = errors.New("source/target types not allowed for relationship type")
	ErrDuplicateEdge           = errors.New("an active identical edge already exists")
	ErrEdgeNotFound            = errors.New("edge not found")
	ErrInvalidFilterColumn     = errors.New("filter column not present in target table")
	ErrSetNotFound             = errors.New("relationship set not found")
	ErrRuleNotFound            = errors.New("validation rule not found")
	ErrEntityNotFound          = errors.New("entity not found")

	ErrUnavailableServer = errors.New("Oops, something unexpected happened. Please try again later.")
)

// EntityRef points into externally-owned data. The engine never resolves the
// row itself; it only records and checks the reference.
type EntityRef struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
}

// ############################################################
// ################# EDGE WRITE PROCESS #######################
// ############################################################

// CreateEdgeRequest carries everything createEdge needs beyond the pairing itself.
type CreateEdgeRequest struct {
	Source           EntityRef
	Target           EntityRef
	RelationshipType string
	Strength         *float64
	IsBidirectional  bool
	Attributes       json.RawMessage
	Origin           entities.EdgeSource
	ConfidenceScore  *float64
	ValidFrom        *time.Time
	ValidTo          *time.Time
}

// UpdateEdgeFields lists the recognized mutable edge fields. Nil pointers are
// left untouched; a request with nothing recognized is a no-op.
type UpdateEdgeFields struct {
	Strength        *float64        `json:"strength,omitempty"`
	IsBidirectional *bool           `json:"is_bidirectional,omitempty"`
	Attributes      json.RawMessage `json:"attributes,omitempty"`
	Status          *string         `json:"status,omitempty"`
	ValidFrom       *time.Time      `json:"valid_from,omitempty"`
	ValidTo         *time.Time      `json:"valid_to,omitempty"`
	IsActive        *bool           `json:"is_active,omitempty"`
}

// IsEmpty reports whether the update carries no recognized field.
func (u UpdateEdgeFields) IsEmpty() bool {
	return u.Strength == nil && u.IsBidirectional == nil && u.Attributes == nil &&
		u.Status == nil && u.ValidFrom == nil && u.ValidTo == nil && u.IsActive == nil
}

// EdgeFilters narrows getEdges listings. Zero values mean "no filter";
// ActiveOnly defaults to listing only active edges.
type EdgeFilters struct {
	ProjectID        string
	SourceType       string
	SourceID         string
	TargetType       string
	TargetID         string
	RelationshipType string
	IncludeInactive  bool
}

type DeleteMode string

const (
	DeleteSoft DeleteMode = "soft"
	DeleteHard DeleteMode = "hard"
)
