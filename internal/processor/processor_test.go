package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/dictionary"
	"keyvalidator/internal/keys"
	"keyvalidator/internal/layout"
	"keyvalidator/internal/parser/tsv"
	"keyvalidator/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDict(t *testing.T) dictionary.Dictionary {
	t.Helper()
	d, err := dictionary.NewCached(dictionary.NewHardcoded())
	require.NoError(t, err)
	return d
}

// writeFile writes a TSV of type ft with a header of every declared field.
// Rows give values by field name; unset fields are empty.
func writeFile(t *testing.T, d dictionary.Dictionary, ft catalog.FileType, rows ...map[string]string) string {
	t.Helper()
	fields := d.FieldNames(ft)
	var b strings.Builder
	b.WriteString(strings.Join(fields, "\t"))
	b.WriteByte('\n')
	for _, r := range rows {
		vals := make([]string, len(fields))
		for i, f := range fields {
			vals[i] = r[f]
		}
		b.WriteString(strings.Join(vals, "\t"))
		b.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), string(ft)+".txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func finalized(ft catalog.FileType, values ...[]string) *keys.ReferencedPrimaryKeys {
	pks := keys.NewPrimaryKeys(ft)
	for _, v := range values {
		pks.Add(keys.NewKey(v...))
	}
	return keys.Reference(pks)
}

func newProcessor(d dictionary.Dictionary, r report.Reporter) *FileProcessor {
	return &FileProcessor{Dictionary: d, Rows: tsv.Source{}, Reporter: r, Job: "test"}
}

func TestProcessFile_Uniqueness(t *testing.T) {
	t.Parallel()
	d := newDict(t)
	path := writeFile(t, d, catalog.Donor,
		map[string]string{"donor_id": "d1"},
		map[string]string{"donor_id": "d2"},
		map[string]string{"donor_id": "d1"},
	)

	var col report.Collector
	pks := keys.NewPrimaryKeys(catalog.Donor)
	st, err := newProcessor(d, &col).ProcessFile(context.Background(), catalog.Donor, path, Inputs{PKs: pks})
	require.NoError(t, err)

	assert.Equal(t, int64(3), st.Rows)
	assert.Equal(t, int64(1), st.Errors[catalog.Uniqueness])
	assert.Equal(t, 2, pks.Len())
	require.Equal(t, 1, col.Len())
	assert.Equal(t, report.Error{
		Kind:       catalog.Uniqueness,
		FileType:   catalog.Donor,
		FileName:   "donor.txt",
		Line:       4,
		FieldNames: []string{"donor_id"},
		Value:      []string{"d1"},
	}, col.Errors()[0])
}

func TestProcessFile_RelationAndEncountered(t *testing.T) {
	t.Parallel()
	d := newDict(t)
	path := writeFile(t, d, catalog.Specimen,
		map[string]string{"donor_id": "d1", "specimen_id": "sp1"},
		map[string]string{"donor_id": "d9", "specimen_id": "sp2"},
	)

	var col report.Collector
	enc := keys.NewEncounteredForeignKeys(catalog.Specimen, catalog.Donor)
	in := Inputs{
		PKs:         keys.NewPrimaryKeys(catalog.Specimen),
		Refs:        map[catalog.FileType]*keys.ReferencedPrimaryKeys{catalog.Donor: finalized(catalog.Donor, []string{"d1"})},
		Encountered: map[catalog.FileType]*keys.EncounteredForeignKeys{catalog.Donor: enc},
	}
	st, err := newProcessor(d, &col).ProcessFile(context.Background(), catalog.Specimen, path, in)
	require.NoError(t, err)

	assert.Equal(t, int64(1), st.Errors[catalog.Relation])
	require.Equal(t, 1, col.Len())
	got := col.Errors()[0]
	assert.Equal(t, catalog.Relation, got.Kind)
	assert.Equal(t, int64(3), got.Line)
	assert.Equal(t, []string{"donor_id"}, got.FieldNames)
	assert.Equal(t, []string{"d9"}, got.Value)
	assert.Equal(t, report.Params{OtherType: catalog.Donor, OtherFields: []string{"donor_id"}}, got.Params)

	// Unresolved references still count as encountered.
	assert.Equal(t, 2, enc.Len())
	assert.True(t, enc.Contains(keys.NewKey("d9")))
	assert.Equal(t, 2, in.PKs.Len())
}

func TestProcessFile_OptionalRelation(t *testing.T) {
	t.Parallel()
	d := newDict(t)
	row := func(matched string) map[string]string {
		return map[string]string{"analysis_id": "a" + matched, "analyzed_sample_id": "s1", "matched_sample_id": matched}
	}
	path := writeFile(t, d, catalog.SSMM, row(""), row(catalog.NotApplicable), row("s1"), row("s9"))

	var col report.Collector
	in := Inputs{
		PKs:  keys.NewPrimaryKeys(catalog.SSMM),
		Refs: map[catalog.FileType]*keys.ReferencedPrimaryKeys{catalog.Sample: finalized(catalog.Sample, []string{"s1"})},
	}
	st, err := newProcessor(d, &col).ProcessFile(context.Background(), catalog.SSMM, path, in)
	require.NoError(t, err)

	assert.Equal(t, int64(4), st.Rows)
	require.Equal(t, 1, col.Len())
	got := col.Errors()[0]
	assert.Equal(t, catalog.OptionalRelation, got.Kind)
	assert.Equal(t, int64(5), got.Line)
	assert.Equal(t, []string{"matched_sample_id"}, got.FieldNames)
	assert.Equal(t, []string{"s9"}, got.Value)
	assert.Equal(t, catalog.Sample, got.Params.OtherType)
}

func TestProcessFile_ConditionalRelation(t *testing.T) {
	t.Parallel()
	d := newDict(t)
	path := writeFile(t, d, catalog.Surgery,
		map[string]string{"donor_id": "d1"},
		map[string]string{"donor_id": "d1", "specimen_id": "sp1"},
		map[string]string{"donor_id": "d1", "specimen_id": "sp9"},
	)

	var col report.Collector
	in := Inputs{
		PKs: keys.NewPrimaryKeys(catalog.Surgery),
		Refs: map[catalog.FileType]*keys.ReferencedPrimaryKeys{
			catalog.Donor:    finalized(catalog.Donor, []string{"d1"}),
			catalog.Specimen: finalized(catalog.Specimen, []string{"sp1"}),
		},
	}
	_, err := newProcessor(d, &col).ProcessFile(context.Background(), catalog.Surgery, path, in)
	require.NoError(t, err)

	require.Equal(t, 1, col.Len())
	got := col.Errors()[0]
	assert.Equal(t, catalog.ConditionalRelation, got.Kind)
	assert.Equal(t, []string{"sp9"}, got.Value)
	assert.Equal(t, []string{"specimen_id"}, got.Params.OtherFields)
}

func TestProcessFile_SystemTypeCollectsWithoutReporting(t *testing.T) {
	t.Parallel()
	d := newDict(t)
	probe := map[string]string{"array_platform": "p", "probe_id": "cg1"}
	path := writeFile(t, d, catalog.MethArrayProbes, probe, probe)

	var col report.Collector
	pks := keys.NewPrimaryKeys(catalog.MethArrayProbes)
	_, err := newProcessor(d, &col).ProcessFile(context.Background(), catalog.MethArrayProbes, path, Inputs{PKs: pks})
	require.NoError(t, err)
	assert.Zero(t, col.Len())
	assert.True(t, pks.Contains(keys.NewKey("p", "cg1")))
}

func TestProcessFile_SystemTypeSkipsRowChecks(t *testing.T) {
	t.Parallel()
	d := newDict(t)
	path := writeFile(t, d, catalog.MethArrayProbes,
		map[string]string{"array_platform": "p", "probe_id": "cg1"},
		map[string]string{"chromosome": "1"},
	)

	var col report.Collector
	pks := keys.NewPrimaryKeys(catalog.MethArrayProbes)
	st, err := newProcessor(d, &col).ProcessFile(context.Background(), catalog.MethArrayProbes, path, Inputs{PKs: pks})
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Rows)
	assert.Zero(t, col.Len())
}

func TestProcessFile_Structural(t *testing.T) {
	t.Parallel()
	d := newDict(t)
	donors := map[catalog.FileType]*keys.ReferencedPrimaryKeys{catalog.Donor: finalized(catalog.Donor, []string{"d1"})}
	encountered := func() map[catalog.FileType]*keys.EncounteredForeignKeys {
		return map[catalog.FileType]*keys.EncounteredForeignKeys{
			catalog.Donor: keys.NewEncounteredForeignKeys(catalog.Specimen, catalog.Donor),
		}
	}

	cases := []struct {
		name     string
		path     func(t *testing.T) string
		refs     map[catalog.FileType]*keys.ReferencedPrimaryKeys
		wantLine int64
		wantErr  error
	}{
		{
			name: "row without keys",
			path: func(t *testing.T) string {
				return writeFile(t, d, catalog.Specimen,
					map[string]string{"donor_id": "d1", "specimen_id": "sp1"},
					map[string]string{"specimen_type": "x"},
				)
			},
			refs:     donors,
			wantLine: 3,
			wantErr:  layout.ErrNoKeys,
		},
		{
			name: "parent not finalized",
			path: func(t *testing.T) string {
				return writeFile(t, d, catalog.Specimen, map[string]string{"donor_id": "d1", "specimen_id": "sp1"})
			},
		},
		{
			name: "missing column",
			path: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "specimen.txt")
				require.NoError(t, os.WriteFile(p, []byte("donor_id\td1\n"), 0o644))
				return p
			},
			refs:     donors,
			wantLine: 1,
			wantErr:  tsv.ErrMissingColumn,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := Inputs{PKs: keys.NewPrimaryKeys(catalog.Specimen), Refs: tc.refs, Encountered: encountered()}
			_, err := newProcessor(d, &report.Collector{}).ProcessFile(context.Background(), catalog.Specimen, tc.path(t), in)
			require.ErrorIs(t, err, ErrStructural)
			var se *StructuralError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, catalog.Specimen, se.FileType)
			assert.Equal(t, "specimen.txt", se.File)
			assert.Equal(t, tc.wantLine, se.Line)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestProcessFile_ReporterFailure(t *testing.T) {
	t.Parallel()
	d := newDict(t)
	path := writeFile(t, d, catalog.Donor, map[string]string{"donor_id": "d1"}, map[string]string{"donor_id": "d1"})

	boom := errors.New("disk full")
	r := report.Func(func(report.Error) error { return boom })
	_, err := newProcessor(d, r).ProcessFile(context.Background(), catalog.Donor, path, Inputs{PKs: keys.NewPrimaryKeys(catalog.Donor)})
	require.ErrorIs(t, err, ErrReporter)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrStructural)
}

func TestProcessFile_Canceled(t *testing.T) {
	t.Parallel()
	d := newDict(t)
	path := writeFile(t, d, catalog.Donor, map[string]string{"donor_id": "d1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newProcessor(d, &report.Collector{}).ProcessFile(ctx, catalog.Donor, path, Inputs{PKs: keys.NewPrimaryKeys(catalog.Donor)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStats_Add(t *testing.T) {
	var s Stats
	s.Add(Stats{Rows: 2, Errors: map[catalog.ErrorKind]int64{catalog.Relation: 1}})
	s.Add(Stats{Rows: 3, Errors: map[catalog.ErrorKind]int64{catalog.Relation: 2, catalog.Uniqueness: 1}})
	assert.Equal(t, int64(5), s.Rows)
	assert.Equal(t, int64(4), s.Total())
}
