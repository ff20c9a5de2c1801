// Package surjectivity reports parent keys that no child row referenced.
package surjectivity

import (
	"fmt"
	"log"
	"time"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/dictionary"
	"keyvalidator/internal/keys"
	"keyvalidator/internal/report"
)

// Validator checks one child -> parent surjective relation at a time.
type Validator struct {
	Dictionary dictionary.Dictionary
	Reporter   report.Reporter
}

// Validate reports one SURJECTION error for every key of parentPKs absent
// from encountered, in key order. ft is the child type that collected
// encountered; parentType is the type whose keys went unreferenced. It
// returns the number of orphans.
func (v Validator) Validate(ft catalog.FileType, parentPKs *keys.PrimaryKeys, encountered *keys.EncounteredForeignKeys, parentType catalog.FileType) (int, error) {
	if parentPKs == nil || encountered == nil {
		return 0, fmt.Errorf("surjectivity %s -> %s: missing key set", ft, parentType)
	}
	start := time.Now()
	orphans := encountered.Orphans(parentPKs)

	fields := v.Dictionary.PrimaryKeyNames(parentType)
	childFields := v.Dictionary.SurjectionForeignKeyNames(ft)
	for _, k := range orphans {
		err := v.Reporter.Report(report.Error{
			Kind:       catalog.SurjectionError,
			FileType:   parentType,
			Line:       report.SurjectionLine,
			FieldNames: fields,
			Value:      k.Values(),
			Params:     report.Params{OtherType: ft, OtherFields: childFields},
		})
		if err != nil {
			return 0, fmt.Errorf("surjectivity %s -> %s: report: %w", ft, parentType, err)
		}
	}
	log.Printf("surjectivity: child=%s parent=%s parent_keys=%d referenced=%d orphans=%d elapsed=%s",
		ft, parentType, parentPKs.Len(), encountered.Len(), len(orphans), time.Since(start).Truncate(time.Millisecond))
	return len(orphans), nil
}
