package domain

import (
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

// ############################################################
// ############### GRAPH READ PROCESS #########################
// ############################################################

// RelatedEntity is one one-hop neighbor plus the edge that reached it.
type RelatedEntity struct {
	Entity    EntityRef     `json:"entity"`
	Edge      entities.Edge `json:"edge"`
	Direction string        `json:"direction"` // outgoing | incoming
}

// SubgraphNode tags a node with the depth at which BFS first discovered it.
type SubgraphNode struct {
	Entity EntityRef `json:"entity"`
	Depth  int       `json:"depth"`
}

type Subgraph struct {
	Root  EntityRef       `json:"root"`
	Nodes []SubgraphNode  `json:"nodes"`
	Edges []entities.Edge `json:"edges"`
	// Truncated is set when the traversal work budget was exhausted
	// before the depth bound.
	Truncated bool `json:"truncated,omitempty"`
}

// Path is an ordered edge sequence from source to target. A zero-length path
// means source == target.
type Path struct {
	Source EntityRef       `json:"source"`
	Target EntityRef       `json:"target"`
	Edges  []entities.Edge `json:"edges"`
}

func (p Path) Length() int { return len(p.Edges) }

// Cycle is one representative edge sequence per detected cycle. With
// overlapping cycles the reconstructed boundary may merge them; see the
// traversal service notes.
type Cycle struct {
	Nodes []EntityRef     `json:"nodes"`
	Edges []entities.Edge `json:"edges"`
}

// ConnectionCount is the degree record for one node.
type ConnectionCount struct {
	Entity    EntityRef `json:"entity"`
	InDegree  int       `json:"in_degree"`
	OutDegree int       `json:"out_degree"`
	Total     int       `json:"total"`
}

// RelationshipTypeSummary aggregates edges of one relationship type.
type RelationshipTypeSummary struct {
	RelationshipType   string  `json:"relationship_type"`
	EdgeCount          int     `json:"edge_count"`
	AverageStrength    float64 `json:"average_strength"`
	BidirectionalRatio float64 `json:"bidirectional_ratio"`
}

type GraphSummary struct {
	ProjectID string                    `json:"project_id"`
	EdgeCount int                       `json:"edge_count"`
	NodeCount int                       `json:"node_count"`
	Density   float64                   `json:"density"`
	ByType    []RelationshipTypeSummary `json:"by_type"`
}

// ############################################################
// ############ VALIDATION / SYNC READ MODELS #################
// ############################################################

// ComplianceResult is the synchronous, non-persisted outcome of checking one
// entity against cardinality-style rules.
type ComplianceResult struct {
	Entity     EntityRef                      `json:"entity"`
	Compliant  bool                           `json:"compliant"`
	Violations []entities.ValidationViolation `json:"violations"`
}

// ValidationRunSummary reports one validateProject run.
type ValidationRunSummary struct {
	ProjectID      string         `json:"project_id"`
	RulesEvaluated int            `json:"rules_evaluated"`
	RulesSkipped   int            `json:"rules_skipped"`
	ViolationCount int            `json:"violation_count"`
	BySeverity     map[string]int `json:"by_severity"`
}

// CheckSummary reports one runAllChecks run over a relationship set.
type CheckSummary struct {
	SetID          int64          `json:"set_id"`
	ViolationCount int            `json:"violation_count"`
	ByCheckType    map[string]int `json:"by_check_type"`
	BySeverity     map[string]int `json:"by_severity"`
}

// ############################################################
// #################### ANALYTICS #############################
// ############################################################

type HealthReport struct {
	ProjectID       string   `json:"project_id"`
	Score           int      `json:"score"`
	Grade           string   `json:"grade"`
	Density         float64  `json:"density"`
	OpenViolations  int      `json:"open_violations"`
	CriticalCount   int      `json:"critical_count"`
	ErrorCount      int      `json:"error_count"`
	Recommendations []string `json:"recommendations"`
}
