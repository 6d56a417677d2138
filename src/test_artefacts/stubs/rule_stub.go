package stubs

import (
	"encoding/json"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

type RuleStub struct {
	rule entities.ValidationRule
}

func NewRuleStub() RuleStub {
	now := time.Now().UTC()

	rule := entities.ValidationRule{
		ID:               gofakeit.Int64(),
		Name:             gofakeit.AppName(),
		RuleKind:         entities.RuleKindCardinality,
		SourceType:       "gravity_pipe",
		RelationshipType: "connects_to",
		Severity:         entities.SeverityWarning,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	return RuleStub{rule: rule}
}

func (rs RuleStub) WithKind(kind entities.RuleKind) RuleStub {
	rs.rule.RuleKind = kind
	return rs
}

func (rs RuleStub) WithProjectID(projectID string) RuleStub {
	rs.rule.ProjectID = projectID
	return rs
}

func (rs RuleStub) WithSourceType(sourceType string) RuleStub {
	rs.rule.SourceType = sourceType
	return rs
}

func (rs RuleStub) WithTargetType(targetType string) RuleStub {
	rs.rule.TargetType = targetType
	return rs
}

func (rs RuleStub) WithRelationshipType(relationshipType string) RuleStub {
	rs.rule.RelationshipType = relationshipType
	return rs
}

func (rs RuleStub) WithSeverity(severity entities.Severity) RuleStub {
	rs.rule.Severity = severity
	return rs
}

// WithCardinality sets the kind-specific config; pass a nil max for an
// unbounded upper limit.
func (rs RuleStub) WithCardinality(min int, max *int, direction entities.EdgeDirection) RuleStub {
	cfg := entities.CardinalityConfig{Min: min, Max: max, Direction: direction}
	raw, _ := json.Marshal(cfg)
	rs.rule.Config = raw
	return rs
}

func (rs RuleStub) Get() entities.ValidationRule {
	return rs.rule
}
