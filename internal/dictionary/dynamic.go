package dictionary

import (
	"fmt"
	"sort"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/condition"
	"keyvalidator/internal/layout"
)

// Dynamic derives the dictionary contract from a Document. File types must
// still belong to the catalog; their layouts and relations come from the
// document.
type Dynamic struct {
	layouts map[catalog.FileType]*layout.KeyLayout
	fields  map[catalog.FileType][]string
	order   []catalog.FileType
}

// NewDynamic compiles doc. Unknown file types or fields, malformed
// conditions and cyclic relations are errors.
func NewDynamic(doc *Document) (*Dynamic, error) {
	schemas := make(map[catalog.FileType]FileSchema, len(doc.Files))
	for _, fs := range doc.Files {
		ft, err := catalog.ParseFileType(fs.Name)
		if err != nil {
			return nil, err
		}
		if _, dup := schemas[ft]; dup {
			return nil, fmt.Errorf("dictionary: file %q declared twice", fs.Name)
		}
		schemas[ft] = fs
	}

	d := &Dynamic{
		layouts: make(map[catalog.FileType]*layout.KeyLayout, len(schemas)),
		fields:  make(map[catalog.FileType][]string, len(schemas)),
	}
	for ft, fs := range schemas {
		kl, err := compileSchema(ft, fs, schemas)
		if err != nil {
			return nil, err
		}
		d.layouts[ft] = kl
		d.fields[ft] = fs.Fields
	}

	order, err := topoSort(d.layouts)
	if err != nil {
		return nil, err
	}
	d.order = order
	return d, nil
}

func compileSchema(ft catalog.FileType, fs FileSchema, all map[catalog.FileType]FileSchema) (*layout.KeyLayout, error) {
	pos := make(map[string]int, len(fs.Fields))
	for i, f := range fs.Fields {
		pos[f] = i
	}
	lookup := func(names []string) ([]int, error) {
		ix := make([]int, len(names))
		for i, n := range names {
			p, ok := pos[n]
			if !ok {
				return nil, fmt.Errorf("dictionary %s: unknown field %q", ft, n)
			}
			ix[i] = p
		}
		return ix, nil
	}

	spec := layout.Spec{
		FileType:        ft,
		FieldNames:      fs.Fields,
		RowChecks:       !ft.IsSystem(),
		CheckUniqueness: !ft.IsSystem(),
	}
	if fs.RowChecks != nil {
		spec.RowChecks = *fs.RowChecks
	}
	if len(fs.UniqueFields) > 0 {
		pk, err := lookup(fs.UniqueFields)
		if err != nil {
			return nil, err
		}
		spec.PK = pk
	}

	for _, rs := range fs.Relations {
		other, err := catalog.ParseFileType(rs.Other)
		if err != nil {
			return nil, fmt.Errorf("dictionary %s: %w", ft, err)
		}
		parent, ok := all[other]
		if !ok {
			return nil, fmt.Errorf("dictionary %s: relation to undeclared file %q", ft, rs.Other)
		}
		if len(rs.Fields) != len(rs.OtherFields) {
			return nil, fmt.Errorf("dictionary %s: relation to %s has %d fields but %d other_fields", ft, other, len(rs.Fields), len(rs.OtherFields))
		}
		// Reorder the child columns to follow the parent's key order so that
		// child and parent keys compare as equal tuples.
		childOf := make(map[string]string, len(rs.OtherFields))
		for i, of := range rs.OtherFields {
			childOf[of] = rs.Fields[i]
		}
		if len(parent.UniqueFields) != len(rs.OtherFields) {
			return nil, fmt.Errorf("dictionary %s: relation to %s must cover its unique fields %v", ft, other, parent.UniqueFields)
		}
		names := make([]string, len(parent.UniqueFields))
		for i, uf := range parent.UniqueFields {
			c, ok := childOf[uf]
			if !ok {
				return nil, fmt.Errorf("dictionary %s: relation to %s does not cover %q", ft, other, uf)
			}
			names[i] = c
		}
		ix, err := lookup(names)
		if err != nil {
			return nil, err
		}

		r := layout.Relation{Role: catalog.FK, Parent: other, Indices: ix, Fields: names, Surjective: rs.Bidirectional}
		switch {
		case rs.Condition != "":
			ev, err := condition.Compile(rs.Condition, fs.Fields)
			if err != nil {
				return nil, fmt.Errorf("dictionary %s: %w", ft, err)
			}
			r.Role, r.Condition = catalog.ConditionalFK, ev
		case rs.Optional:
			r.Role = catalog.OptionalFK
		}
		spec.Relations = append(spec.Relations, r)
	}
	return layout.Compile(spec)
}

// topoSort orders file types with Kahn's algorithm. Among types that are
// ready at the same time the one declared first in the catalog goes first.
func topoSort(layouts map[catalog.FileType]*layout.KeyLayout) ([]catalog.FileType, error) {
	indegree := make(map[catalog.FileType]int, len(layouts))
	graph := make(map[catalog.FileType][]catalog.FileType, len(layouts))
	for ft, kl := range layouts {
		indegree[ft] += 0
		seen := map[catalog.FileType]bool{}
		for _, r := range kl.Relations() {
			if seen[r.Parent] {
				continue
			}
			seen[r.Parent] = true
			indegree[ft]++
			graph[r.Parent] = append(graph[r.Parent], ft)
		}
	}

	byCatalog := func(q []catalog.FileType) {
		sort.Slice(q, func(i, j int) bool { return q[i].Ordinal() < q[j].Ordinal() })
	}

	queue := make([]catalog.FileType, 0, len(layouts))
	for ft := range layouts {
		if indegree[ft] == 0 {
			queue = append(queue, ft)
		}
	}
	byCatalog(queue)

	order := make([]catalog.FileType, 0, len(layouts))
	for len(queue) > 0 {
		ft := queue[0]
		queue = queue[1:]
		order = append(order, ft)
		for _, to := range graph[ft] {
			indegree[to]--
			if indegree[to] == 0 {
				queue = append(queue, to)
			}
		}
		byCatalog(queue)
	}

	if len(order) != len(layouts) {
		var stuck []catalog.FileType
		for ft, n := range indegree {
			if n > 0 {
				stuck = append(stuck, ft)
			}
		}
		byCatalog(stuck)
		return nil, fmt.Errorf("%w: %v", ErrCycle, stuck)
	}
	return order, nil
}

func (d *Dynamic) get(ft catalog.FileType) (*layout.KeyLayout, error) {
	kl, ok := d.layouts[ft]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFileType, ft)
	}
	return kl, nil
}

// ClinicalFileTypes returns the clinical file types, core before supplemental.
func (d *Dynamic) ClinicalFileTypes() []catalog.FileType {
	var out []catalog.FileType
	for _, ft := range d.order {
		if ft.IsClinical() {
			out = append(out, ft)
		}
	}
	return out
}

// ExperimentalDataTypes returns the experimental data types in processing order.
func (d *Dynamic) ExperimentalDataTypes() []catalog.DataType {
	var out []catalog.DataType
	for _, dt := range catalog.DataTypes() {
		if len(d.ExperimentalFileTypes(dt)) > 0 {
			out = append(out, dt)
		}
	}
	return out
}

// ExperimentalFileTypes returns the file types of dt: meta, system, primary, secondary.
func (d *Dynamic) ExperimentalFileTypes(dt catalog.DataType) []catalog.FileType {
	if dt == catalog.Clinical {
		return nil
	}
	var out []catalog.FileType
	for _, ft := range d.order {
		if ft.DataType() == dt {
			out = append(out, ft)
		}
	}
	return out
}

// PresenceIndicator returns the file type whose files mark dt as submitted.
func (d *Dynamic) PresenceIndicator(dt catalog.DataType) (catalog.FileType, error) {
	chain := d.ExperimentalFileTypes(dt)
	for _, ft := range chain {
		if ft.SubType() == catalog.SubMeta {
			return ft, nil
		}
	}
	if len(chain) > 0 {
		return chain[0], nil
	}
	return "", fmt.Errorf("dictionary: no presence indicator for data type %q", dt)
}

// KeyLayout returns the compiled key layout of ft.
func (d *Dynamic) KeyLayout(ft catalog.FileType) (*layout.KeyLayout, error) { return d.get(ft) }

// Parent returns ft's primary parent, if any.
func (d *Dynamic) Parent(ft catalog.FileType) (catalog.FileType, bool) {
	return parentOf(d.get, ft, false)
}

// SecondaryParent returns ft's secondary parent, if any.
func (d *Dynamic) SecondaryParent(ft catalog.FileType) (catalog.FileType, bool) {
	return parentOf(d.get, ft, true)
}

// Parents returns every type ft references, primary parent first.
func (d *Dynamic) Parents(ft catalog.FileType) []catalog.FileType { return parentsOf(d.get, ft) }

// SurjectiveReferencedTypes returns the parents whose keys ft must all reference.
func (d *Dynamic) SurjectiveReferencedTypes(ft catalog.FileType) []catalog.FileType {
	return surjectiveOf(d.get, ft)
}

// HasOutgoingSurjectiveRelation reports whether ft has at least one surjective relation.
func (d *Dynamic) HasOutgoingSurjectiveRelation(ft catalog.FileType) bool {
	return len(d.SurjectiveReferencedTypes(ft)) > 0
}

// FieldNames returns the declared columns of ft.
func (d *Dynamic) FieldNames(ft catalog.FileType) []string { return d.fields[ft] }

// PrimaryKeyNames returns the names of ft's primary key columns.
func (d *Dynamic) PrimaryKeyNames(ft catalog.FileType) []string {
	kl, err := d.get(ft)
	if err != nil {
		return nil
	}
	return kl.PKFields()
}

// SurjectionForeignKeyNames returns the names of the columns ft uses to reference its surjective parent.
func (d *Dynamic) SurjectionForeignKeyNames(ft catalog.FileType) []string {
	return surjectionFKNames(d.get, ft)
}

// ErrorFieldNames returns the columns an error of kind on ft toward referenced is about.
func (d *Dynamic) ErrorFieldNames(ft catalog.FileType, kind catalog.ErrorKind, referenced catalog.FileType) []string {
	return errorFieldNames(d.get, ft, kind, referenced)
}

// ReferencingFileType returns the single type referencing ft.
func (d *Dynamic) ReferencingFileType(ft catalog.FileType) (catalog.FileType, error) {
	return referencingOf(d.get, d.order, ft)
}

// TopologicallyOrderedFileTypes returns every file type with parents before children.
func (d *Dynamic) TopologicallyOrderedFileTypes() ([]catalog.FileType, error) {
	return append([]catalog.FileType(nil), d.order...), nil
}
