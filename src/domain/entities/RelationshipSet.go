package entities

import (
	"encoding/json"
	"time"
)

// RelationshipSet is a named bundle of heterogeneous entity references checked
// as a unit (e.g. a pipe plus its two structures plus the governing spec).
// A template (IsTemplate=true, empty ProjectID) is a reusable blueprint.
type RelationshipSet struct {
	ID                 int64     `json:"id"`
	PublicID           string    `json:"public_id"`
	ProjectID          string    `json:"project_id,omitempty"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	Category           string    `json:"category,omitempty"`
	Tags               []string  `json:"tags,omitempty"`
	IsTemplate         bool      `json:"is_template"`
	RequiresAllMembers bool      `json:"requires_all_members"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// SetMember binds either an explicit entity id or a dynamic filter query to a
// set. FilterConditions keys are column names (optionally suffixed with a
// comparison operator) validated against the live schema before use.
type SetMember struct {
	ID               int64           `json:"id"`
	SetID            int64           `json:"set_id"`
	EntityType       string          `json:"entity_type"`
	EntityTable      string          `json:"entity_table"`
	EntityID         string          `json:"entity_id,omitempty"`
	FilterConditions json.RawMessage `json:"filter_conditions,omitempty"`
	IsRequired       bool            `json:"is_required"`
	DisplayOrder     int             `json:"display_order"`
	LastKnownExists  bool            `json:"last_known_exists"`
	AttachedAt       time.Time       `json:"attached_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// MatchKind is the closed set of metadata-consistency comparison modes.
type MatchKind string

const (
	// MatchEquals compares every member's attribute against a literal.
	MatchEquals MatchKind = "equals"
	// MatchAll requires members to agree with each other; the value itself is unconstrained.
	MatchAll MatchKind = "all_match"
)

func (m MatchKind) IsValid() bool {
	return m == MatchEquals || m == MatchAll
}

const SetRuleKindMetadataConsistency = "metadata_consistency"

// SetRule declares a per-set metadata consistency check.
type SetRule struct {
	ID            int64           `json:"id"`
	SetID         int64           `json:"set_id"`
	RuleKind      string          `json:"rule_kind"`
	AttributeName string          `json:"attribute_name"`
	MatchKind     MatchKind       `json:"match_kind"`
	ExpectedValue json.RawMessage `json:"expected_value,omitempty"`
	Severity      Severity        `json:"severity"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Check kinds reported by the sync checker.
const (
	SetViolationMissingElement   = "missing_element"
	SetViolationBrokenLink       = "broken_link"
	SetViolationMetadataMismatch = "metadata_mismatch"
	SetViolationCheckError       = "check_error"
)

// SetViolation is one drift finding from a sync-check run. Violations for a
// set are replaced wholesale by each RunAllChecks, never diffed.
type SetViolation struct {
	ID            int64           `json:"id"`
	PublicID      string          `json:"public_id"`
	SetID         int64           `json:"set_id"`
	MemberID      *int64          `json:"member_id,omitempty"`
	ViolationType string          `json:"violation_type"`
	Severity      Severity        `json:"severity"`
	Message       string          `json:"message"`
	Details       json.RawMessage `json:"details,omitempty"`
	Status        string          `json:"status"`
	ResolvedBy    string          `json:"resolved_by,omitempty"`
	ResolvedNotes string          `json:"resolved_notes,omitempty"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
