package stubs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

type SetStub struct {
	set entities.RelationshipSet
}

func NewSetStub() SetStub {
	now := time.Now().UTC()

	set := entities.RelationshipSet{
		ID:        gofakeit.Int64(),
		PublicID:  uuid.NewString(),
		ProjectID: fmt.Sprintf("PRJ-%04d", gofakeit.Number(1, 9999)),
		Name:      gofakeit.AppName(),
		Category:  "drainage",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return SetStub{set: set}
}

func (ss SetStub) WithProjectID(projectID string) SetStub {
	ss.set.ProjectID = projectID
	return ss
}

func (ss SetStub) WithName(name string) SetStub {
	ss.set.Name = name
	return ss
}

func (ss SetStub) WithCategory(category string) SetStub {
	ss.set.Category = category
	return ss
}

func (ss SetStub) AsTemplate() SetStub {
	ss.set.IsTemplate = true
	ss.set.ProjectID = ""
	return ss
}

func (ss SetStub) RequiringAllMembers() SetStub {
	ss.set.RequiresAllMembers = true
	return ss
}

func (ss SetStub) Get() entities.RelationshipSet {
	return ss.set
}

type MemberStub struct {
	member entities.SetMember
}

func NewMemberStub(setID int64) MemberStub {
	now := time.Now().UTC()

	member := entities.SetMember{
		ID:              gofakeit.Int64(),
		SetID:           setID,
		EntityType:      "gravity_pipe",
		EntityTable:     "gravity_pipes",
		EntityID:        gofakeit.UUID(),
		IsRequired:      true,
		LastKnownExists: true,
		AttachedAt:      now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	return MemberStub{member: member}
}

func (ms MemberStub) WithEntity(entityType, entityTable, entityID string) MemberStub {
	ms.member.EntityType = entityType
	ms.member.EntityTable = entityTable
	ms.member.EntityID = entityID
	return ms
}

func (ms MemberStub) WithFilterConditions(conditions map[string]interface{}) MemberStub {
	raw, _ := json.Marshal(conditions)
	ms.member.FilterConditions = raw
	ms.member.EntityID = ""
	return ms
}

func (ms MemberStub) Optional() MemberStub {
	ms.member.IsRequired = false
	return ms
}

func (ms MemberStub) AttachedAt(at time.Time) MemberStub {
	ms.member.AttachedAt = at
	return ms
}

func (ms MemberStub) Get() entities.SetMember {
	return ms.member
}
