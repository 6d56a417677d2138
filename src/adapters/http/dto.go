package http

import (
	"encoding/json"
	"time"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

type EdgeRequestDTO struct {
	SourceType       string          `json:"source_type"`
	SourceID         string          `json:"source_id"`
	TargetType       string          `json:"target_type"`
	TargetID         string          `json:"target_id"`
	RelationshipType string          `json:"relationship_type"`
	Strength         *float64        `json:"strength,omitempty"`
	IsBidirectional  bool            `json:"is_bidirectional,omitempty"`
	Attributes       json.RawMessage `json:"attributes,omitempty"`
	Source           string          `json:"source,omitempty"`
	ConfidenceScore  *float64        `json:"confidence_score,omitempty"`
	ValidFrom        *time.Time      `json:"valid_from,omitempty"`
	ValidTo          *time.Time      `json:"valid_to,omitempty"`
}

func (dto EdgeRequestDTO) toDomain() domain.CreateEdgeRequest {
	return domain.CreateEdgeRequest{
		Source:           domain.EntityRef{EntityType: dto.SourceType, EntityID: dto.SourceID},
		Target:           domain.EntityRef{EntityType: dto.TargetType, EntityID: dto.TargetID},
		RelationshipType: dto.RelationshipType,
		Strength:         dto.Strength,
		IsBidirectional:  dto.IsBidirectional,
		Attributes:       dto.Attributes,
		Origin:           entities.EdgeSource(dto.Source),
		ConfidenceScore:  dto.ConfidenceScore,
		ValidFrom:        dto.ValidFrom,
		ValidTo:          dto.ValidTo,
	}
}

type BatchEdgeRequestDTO struct {
	Edges []EdgeRequestDTO `json:"edges"`
}

type BatchDeleteRequestDTO struct {
	EdgeIDs []int64 `json:"edge_ids"`
	Mode    string  `json:"mode,omitempty"`
}

type BatchDeleteResponseDTO struct {
	Deleted int64 `json:"deleted"`
}

type ValidateEdgeRequestDTO struct {
	SourceType       string `json:"source_type"`
	TargetType       string `json:"target_type"`
	RelationshipType string `json:"relationship_type"`
}

type ValidateEdgeResponseDTO struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type ResolveRequestDTO struct {
	ResolvedBy string `json:"resolved_by"`
	Notes      string `json:"notes,omitempty"`
}

type ApplyTemplateRequestDTO struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name,omitempty"`
}

type RuleRequestDTO struct {
	ProjectID        string          `json:"project_id,omitempty"`
	Name             string          `json:"name"`
	RuleKind         string          `json:"rule_kind"`
	SourceType       string          `json:"source_type,omitempty"`
	TargetType       string          `json:"target_type,omitempty"`
	RelationshipType string          `json:"relationship_type,omitempty"`
	Config           json.RawMessage `json:"config,omitempty"`
	Severity         string          `json:"severity,omitempty"`
}

func (dto RuleRequestDTO) toDomain() entities.ValidationRule {
	return entities.ValidationRule{
		ProjectID:        dto.ProjectID,
		Name:             dto.Name,
		RuleKind:         entities.RuleKind(dto.RuleKind),
		SourceType:       dto.SourceType,
		TargetType:       dto.TargetType,
		RelationshipType: dto.RelationshipType,
		Config:           dto.Config,
		Severity:         entities.Severity(dto.Severity),
		IsActive:         true,
	}
}

type SetRequestDTO struct {
	ProjectID          string   `json:"project_id,omitempty"`
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	Category           string   `json:"category,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	IsTemplate         bool     `json:"is_template,omitempty"`
	RequiresAllMembers bool     `json:"requires_all_members,omitempty"`
}

func (dto SetRequestDTO) toDomain() entities.RelationshipSet {
	return entities.RelationshipSet{
		ProjectID:          dto.ProjectID,
		Name:               dto.Name,
		Description:        dto.Description,
		Category:           dto.Category,
		Tags:               dto.Tags,
		IsTemplate:         dto.IsTemplate,
		RequiresAllMembers: dto.RequiresAllMembers,
	}
}

type MemberRequestDTO struct {
	EntityType       string          `json:"entity_type"`
	EntityTable      string          `json:"entity_table,omitempty"`
	EntityID         string          `json:"entity_id,omitempty"`
	FilterConditions json.RawMessage `json:"filter_conditions,omitempty"`
	IsRequired       bool            `json:"is_required,omitempty"`
	DisplayOrder     int             `json:"display_order,omitempty"`
}

func (dto MemberRequestDTO) toDomain(setID int64) entities.SetMember {
	return entities.SetMember{
		SetID:            setID,
		EntityType:       dto.EntityType,
		EntityTable:      dto.EntityTable,
		EntityID:         dto.EntityID,
		FilterConditions: dto.FilterConditions,
		IsRequired:       dto.IsRequired,
		DisplayOrder:     dto.DisplayOrder,
	}
}

type SetRuleRequestDTO struct {
	RuleKind      string          `json:"rule_kind"`
	AttributeName string          `json:"attribute_name"`
	MatchKind     string          `json:"match_kind"`
	ExpectedValue json.RawMessage `json:"expected_value,omitempty"`
	Severity      string          `json:"severity,omitempty"`
}

func (dto SetRuleRequestDTO) toDomain(setID int64) entities.SetRule {
	return entities.SetRule{
		SetID:         setID,
		RuleKind:      dto.RuleKind,
		AttributeName: dto.AttributeName,
		MatchKind:     entities.MatchKind(dto.MatchKind),
		ExpectedValue: dto.ExpectedValue,
		Severity:      entities.Severity(dto.Severity),
	}
}
