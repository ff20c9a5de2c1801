// Package dictionary is the schema graph of a submission: which file types
// exist, how their keys are laid out, who references whom, and in which order
// they must be processed so that every parent is finalized before its
// children are read.
//
// Three realizations are provided. Hardcoded encodes the fixed catalog
// literally. Cached wraps any Dictionary and precomputes every per-type answer
// once. Dynamic derives the same contract from a schema Document.
package dictionary

import (
	"errors"
	"fmt"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/layout"
)

var (
	// ErrUnknownFileType is returned for types the dictionary does not declare.
	ErrUnknownFileType = errors.New("dictionary: unknown file type")
	// ErrMultipleChildren is returned by ReferencingFileType when more than
	// one type references the given type.
	ErrMultipleChildren = errors.New("dictionary: file type has several referencing types")
	// ErrNoChildren is returned by ReferencingFileType when nothing references
	// the given type.
	ErrNoChildren = errors.New("dictionary: file type is not referenced")
	// ErrCycle is returned when declared relations do not form a DAG.
	ErrCycle = errors.New("dictionary: relations contain a cycle")
)

// Dictionary answers schema questions by file type.
type Dictionary interface {
	// ClinicalFileTypes lists clinical core then supplemental types in
	// processing order.
	ClinicalFileTypes() []catalog.FileType
	// ExperimentalDataTypes lists experimental categories in processing order.
	ExperimentalDataTypes() []catalog.DataType
	// ExperimentalFileTypes lists a category's chain (meta, system, primary,
	// secondary) in processing order.
	ExperimentalFileTypes(dt catalog.DataType) []catalog.FileType
	// PresenceIndicator is the file type whose presence means dt was submitted.
	PresenceIndicator(dt catalog.DataType) (catalog.FileType, error)

	KeyLayout(ft catalog.FileType) (*layout.KeyLayout, error)

	// Parent is the type referenced by the first mandatory relation.
	Parent(ft catalog.FileType) (catalog.FileType, bool)
	// SecondaryParent is the type referenced by the second mandatory relation.
	SecondaryParent(ft catalog.FileType) (catalog.FileType, bool)
	// Parents lists every distinct referenced type, in relation order.
	Parents(ft catalog.FileType) []catalog.FileType

	SurjectiveReferencedTypes(ft catalog.FileType) []catalog.FileType
	HasOutgoingSurjectiveRelation(ft catalog.FileType) bool

	FieldNames(ft catalog.FileType) []string
	PrimaryKeyNames(ft catalog.FileType) []string
	// SurjectionForeignKeyNames are the child-side field names of ft's first
	// mandatory relation, used to describe SURJECTION errors.
	SurjectionForeignKeyNames(ft catalog.FileType) []string
	// ErrorFieldNames are the field names cited by an error of kind raised
	// while processing ft. referenced selects the relation for relation kinds.
	ErrorFieldNames(ft catalog.FileType, kind catalog.ErrorKind, referenced catalog.FileType) []string

	// ReferencingFileType is the single type referencing ft.
	ReferencingFileType(ft catalog.FileType) (catalog.FileType, error)

	TopologicallyOrderedFileTypes() ([]catalog.FileType, error)
}

// layoutFunc is the only primitive the derived lookups below need.
type layoutFunc func(catalog.FileType) (*layout.KeyLayout, error)

func parentOf(get layoutFunc, ft catalog.FileType, second bool) (catalog.FileType, bool) {
	kl, err := get(ft)
	if err != nil {
		return "", false
	}
	r := kl.FK1()
	if second {
		r = kl.FK2()
	}
	if r == nil {
		return "", false
	}
	return r.Parent, true
}

func parentsOf(get layoutFunc, ft catalog.FileType) []catalog.FileType {
	kl, err := get(ft)
	if err != nil {
		return nil
	}
	var out []catalog.FileType
	seen := map[catalog.FileType]bool{}
	for _, r := range kl.Relations() {
		if !seen[r.Parent] {
			seen[r.Parent] = true
			out = append(out, r.Parent)
		}
	}
	return out
}

func surjectiveOf(get layoutFunc, ft catalog.FileType) []catalog.FileType {
	kl, err := get(ft)
	if err != nil {
		return nil
	}
	var out []catalog.FileType
	for _, r := range kl.Relations() {
		if r.Surjective {
			out = append(out, r.Parent)
		}
	}
	return out
}

func errorFieldNames(get layoutFunc, ft catalog.FileType, kind catalog.ErrorKind, referenced catalog.FileType) []string {
	kl, err := get(ft)
	if err != nil {
		return nil
	}
	if kind == catalog.Uniqueness {
		return kl.PKFields()
	}
	for _, r := range kl.Relations() {
		if r.Parent != referenced {
			continue
		}
		if kind == catalog.SurjectionError || catalog.ErrorKindFor(r.Role) == kind {
			return r.Fields
		}
	}
	return nil
}

func surjectionFKNames(get layoutFunc, ft catalog.FileType) []string {
	kl, err := get(ft)
	if err != nil || kl.FK1() == nil {
		return nil
	}
	return kl.FK1().Fields
}

// referencingOf resolves the single child of ft among all. A unique
// surjective child wins; otherwise the unique child whose first mandatory
// relation targets ft.
func referencingOf(get layoutFunc, all []catalog.FileType, ft catalog.FileType) (catalog.FileType, error) {
	var surj, primary []catalog.FileType
	for _, c := range all {
		kl, err := get(c)
		if err != nil {
			return "", err
		}
		for _, r := range kl.Relations() {
			if r.Parent != ft {
				continue
			}
			if r.Surjective {
				surj = append(surj, c)
			}
			if r == kl.FK1() {
				primary = append(primary, c)
			}
		}
	}
	switch {
	case len(surj) == 1:
		return surj[0], nil
	case len(surj) > 1:
		return "", fmt.Errorf("%w: %s (%v)", ErrMultipleChildren, ft, surj)
	case len(primary) == 1:
		return primary[0], nil
	case len(primary) > 1:
		return "", fmt.Errorf("%w: %s (%v)", ErrMultipleChildren, ft, primary)
	}
	return "", fmt.Errorf("%w: %s", ErrNoChildren, ft)
}
