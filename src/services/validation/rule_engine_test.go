package validation_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/repositories"
	"github.com/Rtoony/survey-data-system-sub001/src/services/validation"
	"github.com/Rtoony/survey-data-system-sub001/src/test_artefacts/stubs"
)

type fakeRuleStore struct {
	rules   []entities.ValidationRule
	created []entities.ValidationRule
}

func (f *fakeRuleStore) Create(_ context.Context, rule entities.ValidationRule) (*entities.ValidationRule, error) {
	rule.ID = int64(len(f.created) + 1)
	f.created = append(f.created, rule)
	return &rule, nil
}

func (f *fakeRuleStore) GetByID(_ context.Context, id int64) (*entities.ValidationRule, error) {
	for _, r := range f.rules {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, domain.ErrRuleNotFound
}

func (f *fakeRuleStore) Deactivate(_ context.Context, id int64) error {
	return nil
}

func (f *fakeRuleStore) ListActiveForProject(_ context.Context, _ string, kinds []entities.RuleKind) ([]entities.ValidationRule, error) {
	if len(kinds) == 0 {
		return f.rules, nil
	}
	wanted := make(map[entities.RuleKind]struct{}, len(kinds))
	for _, k := range kinds {
		wanted[k] = struct{}{}
	}
	var out []entities.ValidationRule
	for _, r := range f.rules {
		if _, ok := wanted[r.RuleKind]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeViolationStore struct {
	replaced     []entities.ValidationViolation
	replaceCalls int
}

func (f *fakeViolationStore) ReplaceForProject(_ context.Context, _ string, _ []entities.RuleKind, violations []entities.ValidationViolation) error {
	f.replaceCalls++
	f.replaced = violations
	return nil
}

func (f *fakeViolationStore) List(_ context.Context, _ repositories.ViolationFilters, _, _ int) ([]entities.ValidationViolation, error) {
	return f.replaced, nil
}

func (f *fakeViolationStore) Resolve(_ context.Context, _, _, _ string) (*entities.ValidationViolation, error) {
	return nil, domain.ErrRuleNotFound
}

type fakeValidationSnapshot struct {
	edges []entities.Edge
}

func (f *fakeValidationSnapshot) ListByProject(_ context.Context, _ string) ([]entities.Edge, error) {
	return f.edges, nil
}

var _ = Describe("RuleEngine", func() {
	var (
		ctx        context.Context
		ruleStore  *fakeRuleStore
		violations *fakeViolationStore
		snapshot   *fakeValidationSnapshot
		engine     *validation.RuleEngine
	)

	const projectID = "PRJ-0042"

	BeforeEach(func() {
		ctx = context.Background()
		ruleStore = &fakeRuleStore{}
		violations = &fakeViolationStore{}
		snapshot = &fakeValidationSnapshot{}
		engine = validation.NewRuleEngine(ruleStore, violations, snapshot)
	})

	Context("when creating rules", func() {
		It("rejects an unknown rule kind", func() {
			rule := stubs.NewRuleStub().Get()
			rule.RuleKind = "proximity"

			_, err := engine.CreateRule(ctx, rule)

			Expect(err).To(HaveOccurred())
			Expect(ruleStore.created).To(BeEmpty())
		})

		It("defaults the severity to warning", func() {
			rule := stubs.NewRuleStub().Get()
			rule.Severity = ""

			created, err := engine.CreateRule(ctx, rule)

			Expect(err).NotTo(HaveOccurred())
			Expect(created.Severity).To(Equal(entities.SeverityWarning))
		})
	})

	Context("when a cardinality rule requires two connections", func() {
		BeforeEach(func() {
			// A gravity pipe must connect to at least two structures.
			ruleStore.rules = []entities.ValidationRule{
				stubs.NewRuleStub().
					WithKind(entities.RuleKindCardinality).
					WithSourceType("gravity_pipe").
					WithRelationshipType("connects_to").
					WithSeverity(entities.SeverityError).
					WithCardinality(2, nil, entities.DirectionOutgoing).
					Get(),
			}
		})

		It("flags a pipe with a single connection", func() {
			// ARRANGE
			snapshot.edges = []entities.Edge{
				stubs.NewEdgeStub().
					WithProjectID(projectID).
					WithSource("gravity_pipe", "P1").
					WithTarget("gravity_structure", "S1").
					Get(),
			}

			// ACT
			summary, err := engine.ValidateProject(ctx, projectID, nil)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.RulesEvaluated).To(Equal(1))
			Expect(summary.ViolationCount).To(Equal(1))
			Expect(summary.BySeverity).To(HaveKeyWithValue("error", 1))

			Expect(violations.replaced).To(HaveLen(1))
			v := violations.replaced[0]
			Expect(v.ViolationType).To(Equal(entities.ViolationTypeCardinality))
			Expect(v.EntityID).To(Equal("P1"))
			Expect(v.ProjectID).To(Equal(projectID))
			Expect(v.Status).To(Equal(entities.ViolationStatusOpen))
			Expect(v.PublicID).NotTo(BeEmpty())
		})

		It("passes a pipe with two connections", func() {
			snapshot.edges = []entities.Edge{
				stubs.NewEdgeStub().WithProjectID(projectID).WithSource("gravity_pipe", "P1").WithTarget("gravity_structure", "S1").Get(),
				stubs.NewEdgeStub().WithProjectID(projectID).WithSource("gravity_pipe", "P1").WithTarget("gravity_structure", "S2").Get(),
			}

			summary, err := engine.ValidateProject(ctx, projectID, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(BeZero())
			Expect(violations.replaceCalls).To(Equal(1))
			Expect(violations.replaced).To(BeEmpty())
		})

		It("ignores inactive edges when counting", func() {
			snapshot.edges = []entities.Edge{
				stubs.NewEdgeStub().WithProjectID(projectID).WithSource("gravity_pipe", "P1").WithTarget("gravity_structure", "S1").Get(),
				stubs.NewEdgeStub().WithProjectID(projectID).WithSource("gravity_pipe", "P1").WithTarget("gravity_structure", "S2").Inactive().Get(),
			}

			summary, err := engine.ValidateProject(ctx, projectID, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(Equal(1))
		})
	})

	Context("when a required rule demands a governing spec", func() {
		BeforeEach(func() {
			ruleStore.rules = []entities.ValidationRule{
				stubs.NewRuleStub().
					WithKind(entities.RuleKindRequired).
					WithSourceType("gravity_pipe").
					WithTargetType("spec_section").
					WithRelationshipType("governed_by").
					Get(),
			}
		})

		It("flags pipes in the graph that lack the relationship", func() {
			// P1 is governed, P2 only connects to a structure.
			snapshot.edges = []entities.Edge{
				stubs.NewEdgeStub().WithProjectID(projectID).
					WithSource("gravity_pipe", "P1").
					WithTarget("spec_section", "SPEC-33-41").
					WithRelationshipType("governed_by").
					Get(),
				stubs.NewEdgeStub().WithProjectID(projectID).
					WithSource("gravity_pipe", "P2").
					WithTarget("gravity_structure", "S1").
					Get(),
			}

			summary, err := engine.ValidateProject(ctx, projectID, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(Equal(1))
			Expect(violations.replaced[0].ViolationType).To(Equal(entities.ViolationTypeRequired))
			Expect(violations.replaced[0].EntityID).To(Equal("P2"))
		})

		It("reports nothing when no source-typed entity participates", func() {
			snapshot.edges = []entities.Edge{
				stubs.NewEdgeStub().WithProjectID(projectID).
					WithSource("gravity_structure", "S1").
					WithTarget("gravity_structure", "S2").
					WithRelationshipType("drains_to").
					Get(),
			}

			summary, err := engine.ValidateProject(ctx, projectID, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(BeZero())
		})
	})

	Context("when a forbidden rule bans a relationship", func() {
		BeforeEach(func() {
			ruleStore.rules = []entities.ValidationRule{
				stubs.NewRuleStub().
					WithKind(entities.RuleKindForbidden).
					WithSourceType("gravity_pipe").
					WithTargetType("pressure_pipe").
					WithRelationshipType("connects_to").
					WithSeverity(entities.SeverityCritical).
					Get(),
			}
		})

		It("emits one violation per offending edge", func() {
			offending := stubs.NewEdgeStub().WithID(71).WithProjectID(projectID).
				WithSource("gravity_pipe", "P1").
				WithTarget("pressure_pipe", "W1").
				Get()
			snapshot.edges = []entities.Edge{
				offending,
				stubs.NewEdgeStub().WithProjectID(projectID).
					WithSource("gravity_pipe", "P1").
					WithTarget("gravity_structure", "S1").
					Get(),
			}

			summary, err := engine.ValidateProject(ctx, projectID, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ViolationCount).To(Equal(1))
			Expect(summary.BySeverity).To(HaveKeyWithValue("critical", 1))

			v := violations.replaced[0]
			Expect(v.ViolationType).To(Equal(entities.ViolationTypeForbidden))
			Expect(v.EdgeID).NotTo(BeNil())
			Expect(*v.EdgeID).To(Equal(int64(71)))
		})
	})

	Context("when a rule cannot be evaluated", func() {
		It("skips it without aborting the run", func() {
			broken := stubs.NewRuleStub().Get()
			broken.RuleKind = "proximity" // persisted before the kind was retired
			ruleStore.rules = []entities.ValidationRule{
				broken,
				stubs.NewRuleStub().
					WithKind(entities.RuleKindForbidden).
					WithSourceType("gravity_pipe").
					WithTargetType("pressure_pipe").
					WithRelationshipType("connects_to").
					Get(),
			}
			snapshot.edges = []entities.Edge{
				stubs.NewEdgeStub().WithProjectID(projectID).
					WithSource("gravity_pipe", "P1").
					WithTarget("pressure_pipe", "W1").
					Get(),
			}

			summary, err := engine.ValidateProject(ctx, projectID, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.RulesSkipped).To(Equal(1))
			Expect(summary.RulesEvaluated).To(Equal(1))
			Expect(summary.ViolationCount).To(Equal(1))
		})

		It("counts a conditional rule as evaluated with no findings", func() {
			ruleStore.rules = []entities.ValidationRule{
				stubs.NewRuleStub().WithKind(entities.RuleKindConditional).Get(),
			}

			summary, err := engine.ValidateProject(ctx, projectID, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.RulesEvaluated).To(Equal(1))
			Expect(summary.RulesSkipped).To(BeZero())
			Expect(summary.ViolationCount).To(BeZero())
		})
	})

	Context("when checking a single entity's compliance", func() {
		BeforeEach(func() {
			ruleStore.rules = []entities.ValidationRule{
				stubs.NewRuleStub().
					WithKind(entities.RuleKindCardinality).
					WithSourceType("gravity_pipe").
					WithRelationshipType("connects_to").
					WithCardinality(2, nil, entities.DirectionOutgoing).
					Get(),
			}
			snapshot.edges = []entities.Edge{
				stubs.NewEdgeStub().WithProjectID(projectID).WithSource("gravity_pipe", "P1").WithTarget("gravity_structure", "S1").Get(),
				stubs.NewEdgeStub().WithProjectID(projectID).WithSource("gravity_pipe", "P2").WithTarget("gravity_structure", "S1").Get(),
				stubs.NewEdgeStub().WithProjectID(projectID).WithSource("gravity_pipe", "P2").WithTarget("gravity_structure", "S2").Get(),
			}
		})

		It("returns only the asked entity's violations without persisting", func() {
			// ACT
			result, err := engine.CheckEntityCompliance(ctx, projectID, domain.EntityRef{EntityType: "gravity_pipe", EntityID: "P1"})

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Compliant).To(BeFalse())
			Expect(result.Violations).To(HaveLen(1))
			Expect(result.Violations[0].EntityID).To(Equal("P1"))
			Expect(violations.replaceCalls).To(BeZero())
		})

		It("reports a satisfied entity as compliant", func() {
			result, err := engine.CheckEntityCompliance(ctx, projectID, domain.EntityRef{EntityType: "gravity_pipe", EntityID: "P2"})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Compliant).To(BeTrue())
			Expect(result.Violations).To(BeEmpty())
		})
	})
})
