package entities

import (
	"encoding/json"
	"time"
)

// RuleKind is the closed set of validation rule kinds. Dispatch happens in a
// single switch per kind so an unhandled kind is a visible gap, not a silent
// string mismatch.
type RuleKind string

const (
	RuleKindCardinality RuleKind = "cardinality"
	RuleKindRequired    RuleKind = "required"
	RuleKindForbidden   RuleKind = "forbidden"
	RuleKindConditional RuleKind = "conditional"
)

func (k RuleKind) IsValid() bool {
	switch k {
	case RuleKindCardinality, RuleKindRequired, RuleKindForbidden, RuleKindConditional:
		return true
	default:
		return false
	}
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// EdgeDirection selects which side of an edge a node must occupy.
type EdgeDirection string

const (
	DirectionOutgoing EdgeDirection = "outgoing"
	DirectionIncoming EdgeDirection = "incoming"
	DirectionBoth     EdgeDirection = "both"
)

// ValidationRule is a declarative constraint over the edge store. A rule with
// an empty ProjectID is global and applies to every project.
type ValidationRule struct {
	ID               int64    `json:"id"`
	ProjectID        string   `json:"project_id,omitempty"`
	Name             string   `json:"name"`
	RuleKind         RuleKind `json:"rule_kind"`
	SourceType       string   `json:"source_type,omitempty"`
	TargetType       string   `json:"target_type,omitempty"`
	RelationshipType string   `json:"relationship_type,omitempty"`
	// Kind-specific configuration, decoded per kind (see CardinalityConfig).
	Config    json.RawMessage `json:"config,omitempty"`
	Severity  Severity        `json:"severity"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CardinalityConfig bounds the number of matching edges per node.
// A nil Max means unbounded above.
type CardinalityConfig struct {
	Min       int           `json:"min"`
	Max       *int          `json:"max,omitempty"`
	Direction EdgeDirection `json:"direction,omitempty"`
}

func (r ValidationRule) CardinalityConfig() (CardinalityConfig, error) {
	cfg := CardinalityConfig{Direction: DirectionBoth}
	if len(r.Config) == 0 {
		return cfg, nil
	}
	err := json.Unmarshal(r.Config, &cfg)
	if cfg.Direction == "" {
		cfg.Direction = DirectionBoth
	}
	return cfg, err
}
