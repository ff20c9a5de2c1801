package keys

import "keyvalidator/internal/catalog"

// PrimaryKeys accumulates the primary keys of one file type across every
// physical file of that type in a run.
type PrimaryKeys struct {
	Type catalog.FileType
	set  *Set
}

// NewPrimaryKeys returns an empty primary-key set for ft.
func NewPrimaryKeys(ft catalog.FileType) *PrimaryKeys {
	return &PrimaryKeys{Type: ft, set: NewSet(0)}
}

// Add records k and reports whether it had already been seen.
func (p *PrimaryKeys) Add(k Key) (dup bool) { return p.set.Add(k) }

// Contains reports whether k has been recorded.
func (p *PrimaryKeys) Contains(k Key) bool { return p.set.Contains(k) }

// Len is the number of distinct primary keys.
func (p *PrimaryKeys) Len() int { return p.set.Len() }

// Keys returns the keys sorted by value tuple.
func (p *PrimaryKeys) Keys() []Key { return p.set.Keys() }

// ReferencedPrimaryKeys is the read-only view of a finalized parent's primary
// keys handed to children for foreign-key lookups.
type ReferencedPrimaryKeys struct {
	Type catalog.FileType
	pks  *PrimaryKeys
}

// Reference publishes pks as a read-only view. Callers must not Add to pks
// afterwards.
func Reference(pks *PrimaryKeys) *ReferencedPrimaryKeys {
	return &ReferencedPrimaryKeys{Type: pks.Type, pks: pks}
}

// Contains reports whether the parent declared k.
func (r *ReferencedPrimaryKeys) Contains(k Key) bool { return r.pks.Contains(k) }

// Len is the number of parent keys.
func (r *ReferencedPrimaryKeys) Len() int { return r.pks.Len() }

// EncounteredForeignKeys collects the foreign keys children used toward one
// parent type. It is consumed once by the surjectivity check.
type EncounteredForeignKeys struct {
	Child  catalog.FileType
	Parent catalog.FileType
	set    *Set
}

// NewEncounteredForeignKeys returns an empty accumulator for child -> parent.
func NewEncounteredForeignKeys(child, parent catalog.FileType) *EncounteredForeignKeys {
	return &EncounteredForeignKeys{Child: child, Parent: parent, set: NewSet(0)}
}

// Add records k. Repeats are ignored.
func (e *EncounteredForeignKeys) Add(k Key) { e.set.Add(k) }

// Contains reports whether a child referenced k.
func (e *EncounteredForeignKeys) Contains(k Key) bool { return e.set.Contains(k) }

// Len is the number of distinct keys referenced.
func (e *EncounteredForeignKeys) Len() int { return e.set.Len() }

// Orphans returns the keys of parent never referenced by a child, sorted.
func (e *EncounteredForeignKeys) Orphans(parent *PrimaryKeys) []Key {
	return parent.set.Missing(e.set)
}
