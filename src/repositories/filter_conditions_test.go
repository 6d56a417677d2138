package repositories_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/repositories"
)

type fakeSchemaSource struct {
	columns map[string][]string
	calls   int
	failure error
}

func (f *fakeSchemaSource) TableColumns(_ context.Context, table string) ([]string, error) {
	f.calls++
	if f.failure != nil {
		return nil, f.failure
	}
	cols, ok := f.columns[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %s", table)
	}
	return cols, nil
}

var _ = Describe("ParseFilterConditions", func() {
	var (
		ctx    context.Context
		source *fakeSchemaSource
		cache  *repositories.SchemaCache
	)

	BeforeEach(func() {
		ctx = context.Background()
		source = &fakeSchemaSource{
			columns: map[string][]string{
				"gravity_pipes": {"pipe_id", "project_id", "material", "diameter_mm", "slope"},
			},
		}
		cache = repositories.NewSchemaCache(source)
	})

	Context("when the filter uses valid columns", func() {
		It("produces equality conditions with bound values", func() {
			// ARRANGE
			raw := json.RawMessage(`{"material": "PVC", "project_id": "PRJ-0001"}`)

			// ACT
			conditions, err := repositories.ParseFilterConditions(ctx, cache, "gravity_pipes", raw)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(conditions).To(HaveLen(2))
			Expect(conditions[0].Field).To(Equal("material"))
			Expect(conditions[0].Operator).To(Equal("="))
			Expect(conditions[0].Value).To(Equal("PVC"))
			Expect(conditions[1].Field).To(Equal("project_id"))
		})

		It("strips comparison suffixes into operators", func() {
			raw := json.RawMessage(`{"diameter_mm>=": 300, "slope<": 0.01}`)

			conditions, err := repositories.ParseFilterConditions(ctx, cache, "gravity_pipes", raw)

			Expect(err).NotTo(HaveOccurred())
			Expect(conditions).To(HaveLen(2))
			Expect(conditions[0].Field).To(Equal("diameter_mm"))
			Expect(conditions[0].Operator).To(Equal(">="))
			Expect(conditions[1].Field).To(Equal("slope"))
			Expect(conditions[1].Operator).To(Equal("<"))
		})

		It("returns no conditions for an empty or null payload", func() {
			conditions, err := repositories.ParseFilterConditions(ctx, cache, "gravity_pipes", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(conditions).To(BeEmpty())

			conditions, err = repositories.ParseFilterConditions(ctx, cache, "gravity_pipes", json.RawMessage("null"))
			Expect(err).NotTo(HaveOccurred())
			Expect(conditions).To(BeEmpty())
		})
	})

	Context("when the filter carries a hostile or unknown key", func() {
		It("rejects keys that are not bare identifiers", func() {
			raw := json.RawMessage(`{"pipe_id; DROP TABLE gravity_pipes": "x"}`)

			conditions, err := repositories.ParseFilterConditions(ctx, cache, "gravity_pipes", raw)

			Expect(conditions).To(BeNil())
			Expect(errors.Is(err, domain.ErrInvalidFilterColumn)).To(BeTrue())
		})

		It("rejects columns absent from the live table", func() {
			raw := json.RawMessage(`{"owner_name": "x"}`)

			conditions, err := repositories.ParseFilterConditions(ctx, cache, "gravity_pipes", raw)

			Expect(conditions).To(BeNil())
			Expect(errors.Is(err, domain.ErrInvalidFilterColumn)).To(BeTrue())
		})

		It("rejects the whole filter when any single key is bad", func() {
			raw := json.RawMessage(`{"material": "PVC", "bogus_column": 1}`)

			conditions, err := repositories.ParseFilterConditions(ctx, cache, "gravity_pipes", raw)

			Expect(conditions).To(BeNil())
			Expect(err).To(HaveOccurred())
		})

		It("fails on malformed JSON", func() {
			raw := json.RawMessage(`{"material": `)

			_, err := repositories.ParseFilterConditions(ctx, cache, "gravity_pipes", raw)

			Expect(err).To(HaveOccurred())
		})
	})

	Context("when the schema cache is warm", func() {
		It("consults the source once per table", func() {
			raw := json.RawMessage(`{"material": "PVC"}`)

			_, err := repositories.ParseFilterConditions(ctx, cache, "gravity_pipes", raw)
			Expect(err).NotTo(HaveOccurred())
			_, err = repositories.ParseFilterConditions(ctx, cache, "gravity_pipes", raw)
			Expect(err).NotTo(HaveOccurred())

			Expect(source.calls).To(Equal(1))
		})

		It("reloads after Forget", func() {
			raw := json.RawMessage(`{"material": "PVC"}`)

			_, err := repositories.ParseFilterConditions(ctx, cache, "gravity_pipes", raw)
			Expect(err).NotTo(HaveOccurred())

			cache.Forget("gravity_pipes")

			_, err = repositories.ParseFilterConditions(ctx, cache, "gravity_pipes", raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(source.calls).To(Equal(2))
		})
	})
})
