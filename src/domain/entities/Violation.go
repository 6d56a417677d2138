package entities

import (
	"encoding/json"
	"time"
)

const (
	ViolationStatusOpen         = "open"
	ViolationStatusAcknowledged = "acknowledged"
	ViolationStatusResolved     = "resolved"
)

const ViolationTypeCardinality = "cardinality_violation"
const ViolationTypeRequired = "required_relationship_missing"
const ViolationTypeForbidden = "forbidden_relationship_present"

// ValidationViolation is the persisted outcome of evaluating one rule against
// a snapshot of the edge store. Violations are data, not errors: an
// inconsistent graph is a normal, queryable state.
type ValidationViolation struct {
	ID            int64           `json:"id"`
	PublicID      string          `json:"public_id"`
	RuleID        int64           `json:"rule_id"`
	ProjectID     string          `json:"project_id"`
	ViolationType string          `json:"violation_type"`
	Severity      Severity        `json:"severity"`
	EntityType    string          `json:"entity_type,omitempty"`
	EntityID      string          `json:"entity_id,omitempty"`
	EdgeID        *int64          `json:"edge_id,omitempty"`
	Message       string          `json:"message"`
	Details       json.RawMessage `json:"details,omitempty"`
	Status        string          `json:"status"`
	ResolvedBy    string          `json:"resolved_by,omitempty"`
	ResolvedNotes string          `json:"resolved_notes,omitempty"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
