// Package layout compiles a file type's key declarations into column indices
// and extracts the keys of one row at a time.
package layout

import (
	"errors"
	"fmt"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/condition"
	"keyvalidator/internal/keys"
)

var (
	// ErrFieldCount marks a row whose width differs from the declared layout.
	ErrFieldCount = errors.New("layout: wrong number of fields")
	// ErrNoKeys marks a row that resolves neither a primary key nor its
	// mandatory foreign key.
	ErrNoKeys = errors.New("layout: row resolves neither primary key nor mandatory foreign key")
)

// Relation is one outgoing reference of a file type.
type Relation struct {
	Role   catalog.KeyRole // FK, OptionalFK or ConditionalFK
	Parent catalog.FileType
	// Indices are the child's column positions, aligned with the parent's
	// primary key columns.
	Indices []int
	// Fields are the child's column names at Indices.
	Fields []string
	// Surjective marks that every parent key must be referenced by this type.
	Surjective bool
	// Condition gates a ConditionalFK relation; nil otherwise.
	Condition *condition.Evaluator
}

// Spec is the declarative input of Compile.
type Spec struct {
	FileType   catalog.FileType
	FieldNames []string
	// PK lists primary-key column positions; nil means the type declares no
	// primary key.
	PK        []int
	Relations []Relation
	// RowChecks asserts every row resolves a PK or its first mandatory FK.
	RowChecks bool
	// CheckUniqueness reports duplicate primary keys. System types collect
	// keys without reporting.
	CheckUniqueness bool
}

// KeyLayout is the compiled, immutable key layout of one file type.
type KeyLayout struct {
	fileType        catalog.FileType
	fieldNames      []string
	pk              []int
	relations       []*Relation
	fk1, fk2        *Relation
	rowChecks       bool
	checkUniqueness bool
}

// Compile validates spec and returns its KeyLayout.
func Compile(spec Spec) (*KeyLayout, error) {
	n := len(spec.FieldNames)
	if n == 0 {
		return nil, fmt.Errorf("layout %s: no fields declared", spec.FileType)
	}
	if err := checkIndices(spec.FileType, "pk", spec.PK, n, spec.PK != nil); err != nil {
		return nil, err
	}
	kl := &KeyLayout{
		fileType:        spec.FileType,
		fieldNames:      append([]string(nil), spec.FieldNames...),
		pk:              append([]int(nil), spec.PK...),
		rowChecks:       spec.RowChecks,
		checkUniqueness: spec.CheckUniqueness,
	}
	if spec.PK == nil {
		kl.pk = nil
	}
	for i := range spec.Relations {
		r := spec.Relations[i]
		if err := checkIndices(spec.FileType, "relation to "+string(r.Parent), r.Indices, n, true); err != nil {
			return nil, err
		}
		switch r.Role {
		case catalog.FK:
			if kl.fk1 == nil {
				kl.fk1 = &r
			} else if kl.fk2 == nil {
				kl.fk2 = &r
			} else {
				return nil, fmt.Errorf("layout %s: more than two mandatory foreign keys", spec.FileType)
			}
		case catalog.OptionalFK:
		case catalog.ConditionalFK:
			if r.Condition == nil {
				return nil, fmt.Errorf("layout %s: conditional relation to %s has no condition", spec.FileType, r.Parent)
			}
		default:
			return nil, fmt.Errorf("layout %s: relation to %s has role %s", spec.FileType, r.Parent, r.Role)
		}
		if r.Surjective && r.Role != catalog.FK {
			return nil, fmt.Errorf("layout %s: only mandatory relations can be surjective", spec.FileType)
		}
		if len(r.Fields) == 0 {
			r.Fields = make([]string, len(r.Indices))
			for j, ix := range r.Indices {
				r.Fields[j] = spec.FieldNames[ix]
			}
		}
		kl.relations = append(kl.relations, &r)
	}
	if kl.pk == nil && kl.fk1 == nil && spec.RowChecks {
		return nil, fmt.Errorf("layout %s: row checks enabled but no primary or mandatory foreign key declared", spec.FileType)
	}
	return kl, nil
}

func checkIndices(ft catalog.FileType, what string, ix []int, width int, required bool) error {
	if !required {
		return nil
	}
	if len(ix) == 0 || len(ix) > keys.MaxFields {
		return fmt.Errorf("layout %s: %s must have 1..%d columns, got %d", ft, what, keys.MaxFields, len(ix))
	}
	for _, i := range ix {
		if i < 0 || i >= width {
			return fmt.Errorf("layout %s: %s column %d out of range [0,%d)", ft, what, i, width)
		}
	}
	return nil
}

// FileType returns the file type the layout describes.
func (kl *KeyLayout) FileType() catalog.FileType { return kl.fileType }

// FieldNames returns the declared columns in order.
func (kl *KeyLayout) FieldNames() []string { return kl.fieldNames }

// FieldCount returns the number of declared columns.
func (kl *KeyLayout) FieldCount() int { return len(kl.fieldNames) }

// HasPK reports whether the type declares a primary key.
func (kl *KeyLayout) HasPK() bool { return kl.pk != nil }

// PKIndices returns the primary key column positions (nil without a PK).
func (kl *KeyLayout) PKIndices() []int { return kl.pk }

// PKFields returns the primary key column names.
func (kl *KeyLayout) PKFields() []string { return names(kl.fieldNames, kl.pk) }

// Relations returns the outgoing relations in declaration order.
func (kl *KeyLayout) Relations() []*Relation { return kl.relations }

// FK1 is the first mandatory relation (the primary parent), or nil.
func (kl *KeyLayout) FK1() *Relation { return kl.fk1 }

// FK2 is the second mandatory relation (the secondary parent), or nil.
func (kl *KeyLayout) FK2() *Relation { return kl.fk2 }

// RowChecks reports whether the no-key sanity check is enabled.
func (kl *KeyLayout) RowChecks() bool { return kl.rowChecks }

// CheckUniqueness reports whether duplicate primary keys are reported.
func (kl *KeyLayout) CheckUniqueness() bool { return kl.checkUniqueness }

// WithRowChecks returns a copy of kl with the sanity check toggled.
func (kl *KeyLayout) WithRowChecks(on bool) (*KeyLayout, error) {
	if on && kl.pk == nil && kl.fk1 == nil {
		return nil, fmt.Errorf("layout %s: row checks need a primary or mandatory foreign key", kl.fileType)
	}
	cp := *kl
	cp.rowChecks = on
	return &cp, nil
}

func names(all []string, ix []int) []string {
	if ix == nil {
		return nil
	}
	out := make([]string, len(ix))
	for i, j := range ix {
		out[i] = all[j]
	}
	return out
}
