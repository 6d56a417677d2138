// Package registry holds the static whitelist of entity types the engine may
// reference. Every component consults it before any caller-supplied type or
// table name is used to build a query; it is the sole anti-injection choke
// point for identifiers.
package registry

import "sort"

// TableBinding is the relational home of one entity type.
type TableBinding struct {
	Table      string
	PrimaryKey string
}

// EntityTypeRegistry is immutable after construction and safe for concurrent
// reads. Lookups are O(1) and never fail with an error; absence is a boolean.
type EntityTypeRegistry struct {
	byType  map[string]TableBinding
	byTable map[string]struct{}
}

// Default is the product's registered entity surface: survey, CAD and GIS
// record families plus the standards that govern them.
var defaultBindings = map[string]TableBinding{
	"gravity_pipe":      {Table: "gravity_pipes", PrimaryKey: "pipe_id"},
	"gravity_structure": {Table: "gravity_structures", PrimaryKey: "structure_id"},
	"pressure_pipe":     {Table: "pressure_pipes", PrimaryKey: "pipe_id"},
	"parcel":            {Table: "parcels", PrimaryKey: "parcel_id"},
	"survey_point":      {Table: "survey_points", PrimaryKey: "point_id"},
	"alignment":         {Table: "alignments", PrimaryKey: "alignment_id"},
	"cad_standard":      {Table: "cad_standards", PrimaryKey: "standard_id"},
	"spec_section":      {Table: "spec_sections", PrimaryKey: "section_id"},
	"drawing":           {Table: "drawings", PrimaryKey: "drawing_id"},
	"project_document":  {Table: "project_documents", PrimaryKey: "document_id"},
}

func NewDefault() *EntityTypeRegistry {
	return New(defaultBindings)
}

// New copies the bindings so the registry cannot be mutated through the input map.
func New(bindings map[string]TableBinding) *EntityTypeRegistry {
	r := &EntityTypeRegistry{
		byType:  make(map[string]TableBinding, len(bindings)),
		byTable: make(map[string]struct{}, len(bindings)),
	}
	for code, binding := range bindings {
		r.byType[code] = binding
		r.byTable[binding.Table] = struct{}{}
	}
	return r
}

// Lookup returns the table binding for a type code.
func (r *EntityTypeRegistry) Lookup(entityType string) (TableBinding, bool) {
	binding, ok := r.byType[entityType]
	return binding, ok
}

func (r *EntityTypeRegistry) IsValidType(entityType string) bool {
	_, ok := r.byType[entityType]
	return ok
}

// IsValidTable reports whether table is the table component of some registered
// type. Used to validate caller-supplied table names before they are ever
// interpolated into SQL.
func (r *EntityTypeRegistry) IsValidTable(table string) bool {
	_, ok := r.byTable[table]
	return ok
}

func (r *EntityTypeRegistry) Types() []string {
	types := make([]string, 0, len(r.byType))
	for code := range r.byType {
		types = append(types, code)
	}
	sort.Strings(types)
	return types
}

func (r *EntityTypeRegistry) Tables() []string {
	tables := make([]string, 0, len(r.byTable))
	for table := range r.byTable {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables
}
