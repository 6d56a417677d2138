package entities

import "time"

// RelationshipType is a registered relationship code and its optional
// source/target type constraints. Owned by the relationship type registry
// table; only read by this engine.
type RelationshipType struct {
	ID                 int64     `json:"id"`
	Code               string    `json:"code"`
	Category           string    `json:"category"`
	AllowedSourceTypes []string  `json:"allowed_source_types,omitempty"`
	AllowedTargetTypes []string  `json:"allowed_target_types,omitempty"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// AllowsPairing reports whether the given source/target entity types satisfy
// the declared constraints. An empty constraint set allows everything.
func (rt RelationshipType) AllowsPairing(sourceType, targetType string) bool {
	if len(rt.AllowedSourceTypes) > 0 && !contains(rt.AllowedSourceTypes, sourceType) {
		return false
	}
	if len(rt.AllowedTargetTypes) > 0 && !contains(rt.AllowedTargetTypes, targetType) {
		return false
	}
	return true
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
