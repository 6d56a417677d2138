package sets_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/repositories"
	"github.com/Rtoony/survey-data-system-sub001/src/services/sets"
	"github.com/Rtoony/survey-data-system-sub001/src/test_artefacts/stubs"
)

type fakeSetStore struct {
	set       *entities.RelationshipSet
	members   []entities.SetMember
	rules     []entities.SetRule
	existence map[int64]bool
	replaced  []entities.SetViolation
}

func (f *fakeSetStore) GetSet(_ context.Context, id int64) (*entities.RelationshipSet, error) {
	if f.set == nil || f.set.ID != id {
		return nil, domain.ErrSetNotFound
	}
	return f.set, nil
}

func (f *fakeSetStore) ListMembers(_ context.Context, _ int64) ([]entities.SetMember, error) {
	return f.members, nil
}

func (f *fakeSetStore) ListRules(_ context.Context, _ int64) ([]entities.SetRule, error) {
	return f.rules, nil
}

func (f *fakeSetStore) UpdateMemberExistence(_ context.Context, memberID int64, exists bool) error {
	if f.existence == nil {
		f.existence = make(map[int64]bool)
	}
	f.existence[memberID] = exists
	return nil
}

func (f *fakeSetStore) ReplaceViolations(_ context.Context, _ int64, violations []entities.SetViolation) error {
	f.replaced = violations
	return nil
}

type fakeEntityStore struct {
	rows         map[string]map[string]interface{} // "type:id" -> attributes
	countResult  int
	queryIDs     []string
	createdAfter []string
	existsErr    error
	fetchErr     error
}

func key(entityType, entityID string) string {
	return entityType + ":" + entityID
}

func (f *fakeEntityStore) Exists(_ context.Context, entityType, entityID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.rows[key(entityType, entityID)]
	return ok, nil
}

func (f *fakeEntityStore) FetchAttribute(_ context.Context, entityType, entityID, column string) (interface{}, bool, error) {
	if f.fetchErr != nil {
		return nil, false, f.fetchErr
	}
	attrs, ok := f.rows[key(entityType, entityID)]
	if !ok {
		return nil, false, nil
	}
	v, ok := attrs[column]
	return v, ok, nil
}

func (f *fakeEntityStore) CountByConditions(_ context.Context, _ string, _ []repositories.FindCondition) (int, error) {
	return f.countResult, nil
}

func (f *fakeEntityStore) QueryIDs(_ context.Context, _ string, _ []repositories.FindCondition, limit int) ([]string, error) {
	if len(f.queryIDs) > limit {
		return f.queryIDs[:limit], nil
	}
	return f.queryIDs, nil
}

func (f *fakeEntityStore) FindCreatedAfter(_ context.Context, _ string, _ time.Time, limit int) ([]string, error) {
	if len(f.createdAfter) > limit {
		return f.createdAfter[:limit], nil
	}
	return f.createdAfter, nil
}

type staticSchemaSource struct {
	columns map[string][]string
}

func (s staticSchemaSource) TableColumns(_ context.Context, table string) ([]string, error) {
	cols, ok := s.columns[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %s", table)
	}
	return cols, nil
}

var _ = Describe("SyncChecker", func() {
	var (
		ctx         context.Context
		setStore    *fakeSetStore
		entityStore *fakeEntityStore
		checker     *sets.SyncChecker
	)

	const setID = int64(11)

	addRow := func(entityType, entityID string, attrs map[string]interface{}) {
		if entityStore.rows == nil {
			entityStore.rows = make(map[string]map[string]interface{})
		}
		if attrs == nil {
			attrs = map[string]interface{}{}
		}
		entityStore.rows[key(entityType, entityID)] = attrs
	}

	metadataRule := func(attribute string, match entities.MatchKind, expected string) entities.SetRule {
		var raw json.RawMessage
		if expected != "" {
			raw, _ = json.Marshal(expected)
		}
		return entities.SetRule{
			ID:            1,
			SetID:         setID,
			RuleKind:      entities.SetRuleKindMetadataConsistency,
			AttributeName: attribute,
			MatchKind:     match,
			ExpectedValue: raw,
			Severity:      entities.SeverityWarning,
			IsActive:      true,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()

		set := stubs.NewSetStub().Get()
		set.ID = setID

		setStore = &fakeSetStore{set: &set}
		entityStore = &fakeEntityStore{}

		schemaCache := repositories.NewSchemaCache(staticSchemaSource{columns: map[string][]string{
			"gravity_pipes": {"pipe_id", "project_id", "material", "diameter_mm"},
		}})

		checker = sets.NewSyncChecker(setStore, entityStore, schemaCache)
	})

	Context("when every member resolves", func() {
		BeforeEach(func() {
			m1 := stubs.NewMemberStub(setID).WithEntity("gravity_pipe", "gravity_pipes", "P1").Get()
			m2 := stubs.NewMemberStub(setID).WithEntity("gravity_structure", "gravity_structures", "S1").Get()
			setStore.members = []entities.SetMember{m1, m2}
			addRow("gravity_pipe", "P1", nil)
			addRow("gravity_structure", "S1", nil)
		})

		It("records no violations and refreshes the existence markers", func() {
			// ACT
			summary, err := checker.RunAllChecks(ctx, setID)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(BeZero())
			Expect(setStore.replaced).To(BeEmpty())
			Expect(setStore.existence).To(HaveLen(2))
			for _, exists := range setStore.existence {
				Expect(exists).To(BeTrue())
			}
		})
	})

	Context("when a required member's row was deleted", func() {
		var member entities.SetMember

		BeforeEach(func() {
			member = stubs.NewMemberStub(setID).WithEntity("gravity_pipe", "gravity_pipes", "P-GONE").Get()
			setStore.members = []entities.SetMember{member}
		})

		It("reports a missing element error plus an unreplaced broken link", func() {
			// ACT
			summary, err := checker.RunAllChecks(ctx, setID)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(Equal(2))
			Expect(summary.ByCheckType).To(HaveKeyWithValue(entities.SetViolationMissingElement, 1))
			Expect(summary.ByCheckType).To(HaveKeyWithValue(entities.SetViolationBrokenLink, 1))
			Expect(summary.BySeverity).To(HaveKeyWithValue("error", 2))

			Expect(setStore.existence[member.ID]).To(BeFalse())

			for _, v := range setStore.replaced {
				Expect(v.SetID).To(Equal(setID))
				Expect(v.PublicID).NotTo(BeEmpty())
				Expect(v.Status).To(Equal(entities.ViolationStatusOpen))
				Expect(v.MemberID).NotTo(BeNil())
				Expect(*v.MemberID).To(Equal(member.ID))
			}
		})

		It("reports the same findings when run twice", func() {
			first, err := checker.RunAllChecks(ctx, setID)
			Expect(err).NotTo(HaveOccurred())

			second, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			Expect(second.ViolationCount).To(Equal(first.ViolationCount))
			Expect(second.ByCheckType).To(Equal(first.ByCheckType))
			Expect(second.BySeverity).To(Equal(first.BySeverity))
			Expect(setStore.replaced).To(HaveLen(first.ViolationCount))
		})

		It("downgrades to warnings when replacement candidates exist", func() {
			entityStore.createdAfter = []string{"P-NEW-1", "P-NEW-2"}
			optional := stubs.NewMemberStub(setID).WithEntity("gravity_pipe", "gravity_pipes", "P-GONE").Optional().Get()
			setStore.members = []entities.SetMember{optional}

			summary, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(Equal(2))
			Expect(summary.BySeverity).To(HaveKeyWithValue("warning", 2))

			var linkMessage string
			for _, v := range setStore.replaced {
				if v.ViolationType == entities.SetViolationBrokenLink {
					linkMessage = v.Message
				}
			}
			Expect(linkMessage).To(ContainSubstring("branched or rebuilt"))
			Expect(linkMessage).To(ContainSubstring("2 candidate(s)"))
		})
	})

	Context("when a member is bound by filter conditions", func() {
		It("exists while the filter matches at least one row", func() {
			member := stubs.NewMemberStub(setID).WithFilterConditions(map[string]interface{}{"material": "PVC"}).Get()
			setStore.members = []entities.SetMember{member}
			entityStore.countResult = 3

			summary, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(BeZero())
			Expect(setStore.existence[member.ID]).To(BeTrue())
		})

		It("reports a missing element when the filter matches nothing", func() {
			member := stubs.NewMemberStub(setID).WithFilterConditions(map[string]interface{}{"material": "PVC"}).Get()
			setStore.members = []entities.SetMember{member}
			entityStore.countResult = 0

			summary, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			// Dynamic members never get a link integrity finding.
			Expect(summary.ViolationCount).To(Equal(1))
			Expect(summary.ByCheckType).To(HaveKeyWithValue(entities.SetViolationMissingElement, 1))
			Expect(setStore.replaced[0].Message).To(ContainSubstring("filter conditions"))
		})

		It("turns a hostile filter key into a check error", func() {
			member := stubs.NewMemberStub(setID).
				WithFilterConditions(map[string]interface{}{"material; DROP TABLE gravity_pipes": "x"}).
				Get()
			setStore.members = []entities.SetMember{member}

			summary, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ByCheckType).To(HaveKeyWithValue(entities.SetViolationCheckError, 1))
			// A failed member must not be reported as missing on top.
			Expect(summary.ByCheckType).NotTo(HaveKey(entities.SetViolationMissingElement))
		})
	})

	Context("when a metadata consistency rule expects a literal", func() {
		BeforeEach(func() {
			m1 := stubs.NewMemberStub(setID).WithEntity("gravity_pipe", "gravity_pipes", "P1").Get()
			m2 := stubs.NewMemberStub(setID).WithEntity("gravity_pipe", "gravity_pipes", "P2").Get()
			setStore.members = []entities.SetMember{m1, m2}
			setStore.rules = []entities.SetRule{metadataRule("material", entities.MatchEquals, "PVC")}
		})

		It("flags only the members that disagree", func() {
			addRow("gravity_pipe", "P1", map[string]interface{}{"material": "PVC"})
			addRow("gravity_pipe", "P2", map[string]interface{}{"material": "HDPE"})

			summary, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(Equal(1))
			Expect(setStore.replaced[0].ViolationType).To(Equal(entities.SetViolationMetadataMismatch))
			Expect(setStore.replaced[0].Message).To(ContainSubstring(`material="HDPE", expected "PVC"`))
		})

		It("passes when every member agrees", func() {
			addRow("gravity_pipe", "P1", map[string]interface{}{"material": "PVC"})
			addRow("gravity_pipe", "P2", map[string]interface{}{"material": "PVC"})

			summary, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(BeZero())
		})

		It("skips the rule when fewer than two members resolve a value", func() {
			addRow("gravity_pipe", "P1", map[string]interface{}{"material": "HDPE"})
			// P2 exists but carries no material attribute.
			addRow("gravity_pipe", "P2", nil)

			summary, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(BeZero())
		})

		It("treats equal numbers as equal across scan types", func() {
			setStore.rules = []entities.SetRule{
				{
					ID:            2,
					SetID:         setID,
					RuleKind:      entities.SetRuleKindMetadataConsistency,
					AttributeName: "diameter_mm",
					MatchKind:     entities.MatchEquals,
					ExpectedValue: json.RawMessage("300"),
					Severity:      entities.SeverityWarning,
					IsActive:      true,
				},
			}
			addRow("gravity_pipe", "P1", map[string]interface{}{"diameter_mm": int64(300)})
			addRow("gravity_pipe", "P2", map[string]interface{}{"diameter_mm": float64(300)})

			summary, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(BeZero())
		})
	})

	Context("when a dynamic member joins a metadata rule", func() {
		BeforeEach(func() {
			explicit := stubs.NewMemberStub(setID).WithEntity("gravity_pipe", "gravity_pipes", "P1").Get()
			dynamic := stubs.NewMemberStub(setID).WithFilterConditions(map[string]interface{}{"material": "PVC"}).Get()
			setStore.members = []entities.SetMember{explicit, dynamic}
			setStore.rules = []entities.SetRule{metadataRule("material", entities.MatchEquals, "PVC")}

			entityStore.countResult = 2
			entityStore.queryIDs = []string{"P2", "P3"}
			addRow("gravity_pipe", "P1", map[string]interface{}{"material": "PVC"})
			addRow("gravity_pipe", "P2", map[string]interface{}{"material": "PVC"})
			addRow("gravity_pipe", "P3", map[string]interface{}{"material": "HDPE"})
		})

		It("compares every row the filter matches and names the offender", func() {
			// ACT
			summary, err := checker.RunAllChecks(ctx, setID)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(Equal(1))
			Expect(setStore.replaced[0].ViolationType).To(Equal(entities.SetViolationMetadataMismatch))
			Expect(setStore.replaced[0].Message).To(ContainSubstring("gravity_pipe P3"))
		})

		It("passes when the matched rows agree with the literal", func() {
			addRow("gravity_pipe", "P3", map[string]interface{}{"material": "PVC"})

			summary, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(BeZero())
		})
	})

	Context("when a metadata rule only requires agreement", func() {
		BeforeEach(func() {
			m1 := stubs.NewMemberStub(setID).WithEntity("gravity_pipe", "gravity_pipes", "P1").Get()
			m2 := stubs.NewMemberStub(setID).WithEntity("gravity_pipe", "gravity_pipes", "P2").Get()
			m3 := stubs.NewMemberStub(setID).WithEntity("gravity_pipe", "gravity_pipes", "P3").Get()
			setStore.members = []entities.SetMember{m1, m2, m3}
			setStore.rules = []entities.SetRule{metadataRule("material", entities.MatchAll, "")}
		})

		It("flags members that diverge from the first resolved value", func() {
			addRow("gravity_pipe", "P1", map[string]interface{}{"material": "PVC"})
			addRow("gravity_pipe", "P2", map[string]interface{}{"material": "PVC"})
			addRow("gravity_pipe", "P3", map[string]interface{}{"material": "DIP"})

			summary, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(Equal(1))
			Expect(setStore.replaced[0].Message).To(ContainSubstring("gravity_pipe P3"))
		})
	})

	Context("when a rule is inactive", func() {
		It("never evaluates it", func() {
			m1 := stubs.NewMemberStub(setID).WithEntity("gravity_pipe", "gravity_pipes", "P1").Get()
			m2 := stubs.NewMemberStub(setID).WithEntity("gravity_pipe", "gravity_pipes", "P2").Get()
			setStore.members = []entities.SetMember{m1, m2}
			rule := metadataRule("material", entities.MatchEquals, "PVC")
			rule.IsActive = false
			setStore.rules = []entities.SetRule{rule}
			addRow("gravity_pipe", "P1", map[string]interface{}{"material": "HDPE"})
			addRow("gravity_pipe", "P2", map[string]interface{}{"material": "DIP"})

			summary, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(BeZero())
		})
	})

	Context("when the entity store is unreachable", func() {
		It("records check errors instead of failing the run", func() {
			member := stubs.NewMemberStub(setID).WithEntity("gravity_pipe", "gravity_pipes", "P1").Get()
			setStore.members = []entities.SetMember{member}
			entityStore.existsErr = errors.New("connection refused")

			summary, err := checker.RunAllChecks(ctx, setID)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(Equal(1))
			Expect(summary.ByCheckType).To(HaveKeyWithValue(entities.SetViolationCheckError, 1))
			Expect(summary.BySeverity).To(HaveKeyWithValue("warning", 1))
		})
	})

	Context("when the set does not exist", func() {
		It("propagates the not-found error", func() {
			_, err := checker.RunAllChecks(ctx, setID+1)

			Expect(errors.Is(err, domain.ErrSetNotFound)).To(BeTrue())
		})
	})
})
