// Package keys holds the running key sets of a validation run: the primary
// keys a file type asserts about itself, the read-only view children use for
// foreign-key lookups, and the foreign keys children have pointed at a parent.
//
// Sets store only key tuples, never rows.
package keys

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// MaxFields is the widest composite key supported.
const MaxFields = 8

// Key is an immutable composite key of 1..MaxFields string values. Each value
// is stored length-prefixed so that equality of two Keys is exactly equality
// of their value tuples; Key is comparable and usable as a map key.
type Key string

// NewKey encodes values into a Key. It panics on an empty or oversized tuple;
// layouts are validated at compile time so this indicates a programming error.
func NewKey(values ...string) Key {
	if len(values) == 0 || len(values) > MaxFields {
		panic(fmt.Sprintf("keys: composite key must have 1..%d values, got %d", MaxFields, len(values)))
	}
	n := 0
	for _, v := range values {
		n += binary.MaxVarintLen32 + len(v)
	}
	buf := make([]byte, 0, n)
	for _, v := range values {
		buf = binary.AppendUvarint(buf, uint64(len(v)))
		buf = append(buf, v...)
	}
	return Key(buf)
}

// FromFields builds a key from the values of fields at the given indices.
func FromFields(fields []string, indices []int) Key {
	var vals [MaxFields]string
	for i, ix := range indices {
		vals[i] = fields[ix]
	}
	return NewKey(vals[:len(indices)]...)
}

// Values decodes k back into its value tuple.
func (k Key) Values() []string {
	var out []string
	s := string(k)
	for len(s) > 0 {
		l, n := binary.Uvarint([]byte(s[:min(len(s), binary.MaxVarintLen64)]))
		if n <= 0 || int(l) > len(s)-n {
			break
		}
		s = s[n:]
		out = append(out, s[:l])
		s = s[l:]
	}
	return out
}

// Len is the number of values in k.
func (k Key) Len() int { return len(k.Values()) }

// String renders k the way it appears in error reports: values joined by ", "
// inside brackets.
func (k Key) String() string {
	return "[" + strings.Join(k.Values(), ", ") + "]"
}
