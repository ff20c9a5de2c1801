package layout

import (
	"fmt"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/keys"
)

// Ref is a foreign key extracted from a row for one relation.
type Ref struct {
	Relation *Relation
	Key      keys.Key
}

// RowKeys are the keys of a single row. They are transient: produced by
// Extract and consumed before the next row.
type RowKeys struct {
	PK    keys.Key
	HasPK bool
	refs  []Ref
}

// Refs returns the foreign keys present in the row, in relation order.
func (rk *RowKeys) Refs() []Ref { return rk.refs }

// Ref returns the key extracted for the relation toward parent.
func (rk *RowKeys) Ref(parent catalog.FileType) (keys.Key, bool) {
	for _, r := range rk.refs {
		if r.Relation.Parent == parent {
			return r.Key, true
		}
	}
	return "", false
}

// GetRow extracts the keys of one row.
func (kl *KeyLayout) GetRow(fields []string) (RowKeys, error) {
	var rk RowKeys
	err := kl.Extract(fields, &rk)
	return rk, err
}

// Extract is GetRow writing into rk so that callers can reuse its storage
// across rows.
func (kl *KeyLayout) Extract(fields []string, rk *RowKeys) error {
	if len(fields) != len(kl.fieldNames) {
		return fmt.Errorf("%w: %s has %d, got %d", ErrFieldCount, kl.fileType, len(kl.fieldNames), len(fields))
	}
	rk.refs = rk.refs[:0]
	rk.HasPK = false
	rk.PK = ""
	if kl.pk != nil {
		rk.PK = keys.FromFields(fields, kl.pk)
		rk.HasPK = true
	}
	for _, r := range kl.relations {
		switch r.Role {
		case catalog.OptionalFK:
			if notProvided(fields, r.Indices) {
				continue
			}
		case catalog.ConditionalFK:
			ok, err := r.Condition.Evaluate(fields)
			if err != nil {
				return fmt.Errorf("layout %s: condition for %s: %w", kl.fileType, r.Parent, err)
			}
			if !ok {
				continue
			}
		}
		rk.refs = append(rk.refs, Ref{Relation: r, Key: keys.FromFields(fields, r.Indices)})
	}
	if kl.rowChecks && !resolves(fields, kl.pk) && (kl.fk1 == nil || !resolves(fields, kl.fk1.Indices)) {
		return fmt.Errorf("%w (%s)", ErrNoKeys, kl.fileType)
	}
	return nil
}

// notProvided reports whether an optional reference is absent: every value
// empty, or any value carrying the not-applicable code.
func notProvided(fields []string, ix []int) bool {
	empty := true
	for _, i := range ix {
		switch fields[i] {
		case catalog.NotApplicable:
			return true
		case "":
		default:
			empty = false
		}
	}
	return empty
}

func resolves(fields []string, ix []int) bool {
	for _, i := range ix {
		if fields[i] != "" {
			return true
		}
	}
	return false
}
