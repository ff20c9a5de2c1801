package dictionary

import (
	"fmt"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/layout"
)

type cachedType struct {
	layout         *layout.KeyLayout
	parent         catalog.FileType
	hasParent      bool
	secondary      catalog.FileType
	hasSecondary   bool
	parents        []catalog.FileType
	surjective     []catalog.FileType
	fields         []string
	pkNames        []string
	surjectionFKs  []string
	referencing    catalog.FileType
	referencingErr error
}

// Cached precomputes every per-type answer of an underlying Dictionary once,
// so row processing never recompiles layouts. It is immutable after
// construction and safe for concurrent use.
type Cached struct {
	inner         Dictionary
	types         map[catalog.FileType]*cachedType
	clinical      []catalog.FileType
	dataTypes     []catalog.DataType
	chains        map[catalog.DataType][]catalog.FileType
	indicators    map[catalog.DataType]catalog.FileType
	ordered       []catalog.FileType
	errorNameMemo map[errorNameKey][]string
}

type errorNameKey struct {
	ft   catalog.FileType
	kind catalog.ErrorKind
	ref  catalog.FileType
}

// NewCached builds the cache. Any layout that fails to compile is returned as
// an error here rather than at row time.
func NewCached(inner Dictionary) (*Cached, error) {
	ordered, err := inner.TopologicallyOrderedFileTypes()
	if err != nil {
		return nil, err
	}
	c := &Cached{
		inner:         inner,
		types:         make(map[catalog.FileType]*cachedType, len(ordered)),
		clinical:      inner.ClinicalFileTypes(),
		dataTypes:     inner.ExperimentalDataTypes(),
		chains:        map[catalog.DataType][]catalog.FileType{},
		indicators:    map[catalog.DataType]catalog.FileType{},
		ordered:       ordered,
		errorNameMemo: map[errorNameKey][]string{},
	}
	for _, dt := range c.dataTypes {
		c.chains[dt] = inner.ExperimentalFileTypes(dt)
		ind, err := inner.PresenceIndicator(dt)
		if err != nil {
			return nil, err
		}
		c.indicators[dt] = ind
	}
	for _, ft := range ordered {
		kl, err := inner.KeyLayout(ft)
		if err != nil {
			return nil, fmt.Errorf("dictionary cache: %w", err)
		}
		ct := &cachedType{
			layout:        kl,
			parents:       inner.Parents(ft),
			surjective:    inner.SurjectiveReferencedTypes(ft),
			fields:        inner.FieldNames(ft),
			pkNames:       inner.PrimaryKeyNames(ft),
			surjectionFKs: inner.SurjectionForeignKeyNames(ft),
		}
		ct.parent, ct.hasParent = inner.Parent(ft)
		ct.secondary, ct.hasSecondary = inner.SecondaryParent(ft)
		ct.referencing, ct.referencingErr = inner.ReferencingFileType(ft)
		c.types[ft] = ct

		for _, r := range kl.Relations() {
			for _, kind := range []catalog.ErrorKind{catalog.ErrorKindFor(r.Role), catalog.SurjectionError} {
				k := errorNameKey{ft, kind, r.Parent}
				c.errorNameMemo[k] = inner.ErrorFieldNames(ft, kind, r.Parent)
			}
		}
		c.errorNameMemo[errorNameKey{ft, catalog.Uniqueness, ""}] = inner.ErrorFieldNames(ft, catalog.Uniqueness, "")
	}
	return c, nil
}

func (c *Cached) get(ft catalog.FileType) *cachedType {
	if ct, ok := c.types[ft]; ok {
		return ct
	}
	return &cachedType{referencingErr: fmt.Errorf("%w: %q", ErrUnknownFileType, ft)}
}

// ClinicalFileTypes returns the clinical file types, core before supplemental.
func (c *Cached) ClinicalFileTypes() []catalog.FileType { return c.clinical }

// ExperimentalDataTypes returns the experimental data types in processing order.
func (c *Cached) ExperimentalDataTypes() []catalog.DataType { return c.dataTypes }

// ExperimentalFileTypes returns the file types of dt: meta, system, primary, secondary.
func (c *Cached) ExperimentalFileTypes(dt catalog.DataType) []catalog.FileType {
	return c.chains[dt]
}

// PresenceIndicator returns the file type whose files mark dt as submitted.
func (c *Cached) PresenceIndicator(dt catalog.DataType) (catalog.FileType, error) {
	ft, ok := c.indicators[dt]
	if !ok {
		return "", fmt.Errorf("dictionary: no presence indicator for data type %q", dt)
	}
	return ft, nil
}

// KeyLayout returns the compiled key layout of ft.
func (c *Cached) KeyLayout(ft catalog.FileType) (*layout.KeyLayout, error) {
	ct, ok := c.types[ft]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFileType, ft)
	}
	return ct.layout, nil
}

// Parent returns ft's primary parent, if any.
func (c *Cached) Parent(ft catalog.FileType) (catalog.FileType, bool) {
	ct := c.get(ft)
	return ct.parent, ct.hasParent
}

// SecondaryParent returns ft's secondary parent, if any.
func (c *Cached) SecondaryParent(ft catalog.FileType) (catalog.FileType, bool) {
	ct := c.get(ft)
	return ct.secondary, ct.hasSecondary
}

// Parents returns every type ft references, primary parent first.
func (c *Cached) Parents(ft catalog.FileType) []catalog.FileType { return c.get(ft).parents }

// SurjectiveReferencedTypes returns the parents whose keys ft must all reference.
func (c *Cached) SurjectiveReferencedTypes(ft catalog.FileType) []catalog.FileType {
	return c.get(ft).surjective
}

// HasOutgoingSurjectiveRelation reports whether ft has at least one surjective relation.
func (c *Cached) HasOutgoingSurjectiveRelation(ft catalog.FileType) bool {
	return len(c.get(ft).surjective) > 0
}

// FieldNames returns the declared columns of ft.
func (c *Cached) FieldNames(ft catalog.FileType) []string { return c.get(ft).fields }

// PrimaryKeyNames returns the names of ft's primary key columns.
func (c *Cached) PrimaryKeyNames(ft catalog.FileType) []string { return c.get(ft).pkNames }

// SurjectionForeignKeyNames returns the names of the columns ft uses to reference its surjective parent.
func (c *Cached) SurjectionForeignKeyNames(ft catalog.FileType) []string {
	return c.get(ft).surjectionFKs
}

// ErrorFieldNames returns the columns an error of kind on ft toward referenced is about.
func (c *Cached) ErrorFieldNames(ft catalog.FileType, kind catalog.ErrorKind, referenced catalog.FileType) []string {
	if kind == catalog.Uniqueness {
		referenced = ""
	}
	if names, ok := c.errorNameMemo[errorNameKey{ft, kind, referenced}]; ok {
		return names
	}
	return c.inner.ErrorFieldNames(ft, kind, referenced)
}

// ReferencingFileType returns the single type referencing ft.
func (c *Cached) ReferencingFileType(ft catalog.FileType) (catalog.FileType, error) {
	ct := c.get(ft)
	return ct.referencing, ct.referencingErr
}

// TopologicallyOrderedFileTypes returns every file type with parents before children.
func (c *Cached) TopologicallyOrderedFileTypes() ([]catalog.FileType, error) {
	return c.ordered, nil
}
