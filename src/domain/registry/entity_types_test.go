package registry_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Rtoony/survey-data-system-sub001/src/domain/registry"
)

var _ = Describe("EntityTypeRegistry", func() {
	var typeRegistry *registry.EntityTypeRegistry

	BeforeEach(func() {
		typeRegistry = registry.NewDefault()
	})

	Context("when looking up registered types", func() {
		It("resolves the table binding for a known type", func() {
			// ACT
			binding, ok := typeRegistry.Lookup("gravity_pipe")

			// ASSERT
			Expect(ok).To(BeTrue())
			Expect(binding.Table).To(Equal("gravity_pipes"))
			Expect(binding.PrimaryKey).To(Equal("pipe_id"))
		})

		It("rejects an unregistered type", func() {
			_, ok := typeRegistry.Lookup("water_main")

			Expect(ok).To(BeFalse())
			Expect(typeRegistry.IsValidType("water_main")).To(BeFalse())
		})

		It("never accepts a table name as a type code", func() {
			Expect(typeRegistry.IsValidType("gravity_pipes")).To(BeFalse())
			Expect(typeRegistry.IsValidTable("gravity_pipes")).To(BeTrue())
		})

		It("rejects SQL fragments outright", func() {
			Expect(typeRegistry.IsValidType("gravity_pipes; DROP TABLE gravity_pipes")).To(BeFalse())
			Expect(typeRegistry.IsValidTable("gravity_pipes; --")).To(BeFalse())
		})
	})

	Context("when enumerating the registry", func() {
		It("returns types sorted and stable", func() {
			types := typeRegistry.Types()

			Expect(types).To(ContainElements("gravity_pipe", "gravity_structure", "parcel", "survey_point"))
			Expect(types).To(Equal(typeRegistry.Types()))
		})
	})

	Context("when constructed from custom bindings", func() {
		It("does not observe later mutation of the input map", func() {
			// ARRANGE
			bindings := map[string]registry.TableBinding{
				"manhole": {Table: "manholes", PrimaryKey: "manhole_id"},
			}
			custom := registry.New(bindings)

			// ACT
			bindings["injected"] = registry.TableBinding{Table: "injected", PrimaryKey: "id"}

			// ASSERT
			Expect(custom.IsValidType("manhole")).To(BeTrue())
			Expect(custom.IsValidType("injected")).To(BeFalse())
		})
	})
})
