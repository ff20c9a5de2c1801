package surjectivity

import (
	"errors"
	"testing"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/dictionary"
	"keyvalidator/internal/keys"
	"keyvalidator/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specimens(ids ...string) *keys.PrimaryKeys {
	pks := keys.NewPrimaryKeys(catalog.Specimen)
	for _, id := range ids {
		pks.Add(keys.NewKey(id))
	}
	return pks
}

func TestValidate_ReportsOrphansInKeyOrder(t *testing.T) {
	t.Parallel()

	var col report.Collector
	v := Validator{Dictionary: dictionary.NewHardcoded(), Reporter: &col}
	enc := keys.NewEncounteredForeignKeys(catalog.Sample, catalog.Specimen)
	enc.Add(keys.NewKey("sp2"))
	enc.Add(keys.NewKey("sp-unknown"))

	n, err := v.Validate(catalog.Sample, specimens("sp3", "sp2", "sp1"), enc, catalog.Specimen)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	errs := col.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, []string{"sp1"}, errs[0].Value)
	assert.Equal(t, []string{"sp3"}, errs[1].Value)
	assert.Equal(t, report.Error{
		Kind:       catalog.SurjectionError,
		FileType:   catalog.Specimen,
		Line:       report.SurjectionLine,
		FieldNames: []string{"specimen_id"},
		Value:      []string{"sp1"},
		Params:     report.Params{OtherType: catalog.Sample, OtherFields: []string{"specimen_id"}},
	}, errs[0])
}

func TestValidate_AllReferenced(t *testing.T) {
	t.Parallel()

	var col report.Collector
	v := Validator{Dictionary: dictionary.NewHardcoded(), Reporter: &col}
	enc := keys.NewEncounteredForeignKeys(catalog.Sample, catalog.Specimen)
	enc.Add(keys.NewKey("sp1"))

	n, err := v.Validate(catalog.Sample, specimens("sp1"), enc, catalog.Specimen)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, col.Len())
}

// A child type without files still owes every parent key a reference.
func TestValidate_EmptyChild(t *testing.T) {
	t.Parallel()

	var col report.Collector
	v := Validator{Dictionary: dictionary.NewHardcoded(), Reporter: &col}
	enc := keys.NewEncounteredForeignKeys(catalog.Sample, catalog.Specimen)

	n, err := v.Validate(catalog.Sample, specimens("sp1", "sp2"), enc, catalog.Specimen)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, col.Count(catalog.SurjectionError))
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	v := Validator{Dictionary: dictionary.NewHardcoded(), Reporter: &report.Collector{}}
	_, err := v.Validate(catalog.Sample, nil, keys.NewEncounteredForeignKeys(catalog.Sample, catalog.Specimen), catalog.Specimen)
	assert.Error(t, err)

	boom := errors.New("boom")
	v.Reporter = report.Func(func(report.Error) error { return boom })
	_, err = v.Validate(catalog.Sample, specimens("sp1"), keys.NewEncounteredForeignKeys(catalog.Sample, catalog.Specimen), catalog.Specimen)
	assert.ErrorIs(t, err, boom)
}
