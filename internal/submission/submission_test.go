package submission

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/datasource/file"
	"keyvalidator/internal/dictionary"
	"keyvalidator/internal/parser/tsv"
	"keyvalidator/internal/processor"
	"keyvalidator/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row map[string]string

// fixture is a submission directory plus the dictionary describing it.
type fixture struct {
	t    *testing.T
	dir  string
	dict dictionary.Dictionary
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d, err := dictionary.NewCached(dictionary.NewHardcoded())
	require.NoError(t, err)
	return &fixture{t: t, dir: t.TempDir(), dict: d}
}

// write creates <name> holding rows of type ft under every declared column.
func (f *fixture) write(ft catalog.FileType, name string, rows ...row) {
	f.t.Helper()
	fields := f.dict.FieldNames(ft)
	var b strings.Builder
	b.WriteString(strings.Join(fields, "\t") + "\n")
	for _, r := range rows {
		vals := make([]string, len(fields))
		for i, fn := range fields {
			vals[i] = r[fn]
		}
		b.WriteString(strings.Join(vals, "\t") + "\n")
	}
	require.NoError(f.t, os.WriteFile(filepath.Join(f.dir, name), []byte(b.String()), 0o644))
}

func (f *fixture) run(opt Options) (*Processor, *report.Collector, Result, error) {
	f.t.Helper()
	col := &report.Collector{}
	p := New(f.dict, file.Lister{SubmissionDir: f.dir, SystemDir: f.dir}, tsv.Source{}, col, opt)
	res, err := p.ProcessSubmission(context.Background())
	return p, col, res, err
}

// clinicalCore writes donors d1, specimens sp1 and samples s1, all linked.
func (f *fixture) clinicalCore() {
	f.write(catalog.Donor, "donor.txt", row{"donor_id": "d1"})
	f.write(catalog.Specimen, "specimen.txt", row{"donor_id": "d1", "specimen_id": "sp1"})
	f.write(catalog.Sample, "sample.txt", row{"analyzed_sample_id": "s1", "specimen_id": "sp1"})
}

func only(errs []report.Error, kind catalog.ErrorKind, ft catalog.FileType) []report.Error {
	var out []report.Error
	for _, e := range errs {
		if e.Kind == kind && e.FileType == ft {
			out = append(out, e)
		}
	}
	return out
}

func TestProcessSubmission_DonorSpecimen(t *testing.T) {
	f := newFixture(t)
	f.write(catalog.Donor, "donor.txt", row{"donor_id": "D1"}, row{"donor_id": "D2"})
	f.write(catalog.Specimen, "specimen.txt",
		row{"donor_id": "D1", "specimen_id": "sp1"},
		row{"donor_id": "D1", "specimen_id": "sp2"},
		row{"donor_id": "D3", "specimen_id": "sp3"},
	)

	_, col, res, err := f.run(Options{})
	require.NoError(t, err)
	assert.False(t, res.Failed)
	errs := col.Errors()

	assert.Empty(t, only(errs, catalog.Uniqueness, catalog.Donor))

	rel := only(errs, catalog.Relation, catalog.Specimen)
	require.Len(t, rel, 1)
	assert.Equal(t, []string{"D3"}, rel[0].Value)
	assert.Equal(t, int64(4), rel[0].Line)

	surj := only(errs, catalog.SurjectionError, catalog.Donor)
	require.Len(t, surj, 1)
	assert.Equal(t, []string{"D2"}, surj[0].Value)
	assert.Equal(t, report.SurjectionLine, surj[0].Line)
	assert.Equal(t, catalog.Specimen, surj[0].Params.OtherType)

	assert.Equal(t, 1, res.Types[catalog.Specimen].Orphans)
	assert.Equal(t, int64(3), res.Types[catalog.Specimen].Stats.Rows)
}

func TestProcessSubmission_SampleUniqueness(t *testing.T) {
	f := newFixture(t)
	f.write(catalog.Donor, "donor.txt", row{"donor_id": "d1"})
	f.write(catalog.Specimen, "specimen.txt", row{"donor_id": "d1", "specimen_id": "sp1"})
	f.write(catalog.Sample, "sample.txt",
		row{"analyzed_sample_id": "s1", "specimen_id": "sp1"},
		row{"analyzed_sample_id": "s1", "specimen_id": "sp1"},
	)

	_, col, _, err := f.run(Options{})
	require.NoError(t, err)
	dups := only(col.Errors(), catalog.Uniqueness, catalog.Sample)
	require.Len(t, dups, 1)
	assert.Equal(t, int64(3), dups[0].Line)
	assert.Equal(t, []string{"s1"}, dups[0].Value)
}

func TestProcessSubmission_ExperimentalChain(t *testing.T) {
	f := newFixture(t)
	f.clinicalCore()
	f.write(catalog.SSMM, "ssm_m.txt",
		row{"analysis_id": "a1", "analyzed_sample_id": "s1"},
		row{"analysis_id": "a2", "analyzed_sample_id": "s9"},
	)
	f.write(catalog.SSMP, "ssm_p.txt",
		row{"analysis_id": "a1", "analyzed_sample_id": "s1"},
		row{"analysis_id": "a2", "analyzed_sample_id": "s9"},
		row{"analysis_id": "a3", "analyzed_sample_id": "s1"},
	)

	p, col, res, err := f.run(Options{})
	require.NoError(t, err)
	assert.Equal(t, []catalog.DataType{catalog.SSM}, res.Categories)
	errs := col.Errors()

	meta := only(errs, catalog.Relation, catalog.SSMM)
	require.Len(t, meta, 1)
	assert.Equal(t, []string{"s9"}, meta[0].Value)
	assert.Equal(t, catalog.Sample, meta[0].Params.OtherType)

	// a2/s9 is a declared ssm_m key even though its sample is unknown.
	prim := only(errs, catalog.Relation, catalog.SSMP)
	require.Len(t, prim, 1)
	assert.Equal(t, []string{"a3", "s1"}, prim[0].Value)
	assert.Equal(t, []string{"analysis_id", "analyzed_sample_id"}, prim[0].Params.OtherFields)

	assert.Empty(t, only(errs, catalog.SurjectionError, catalog.SSMM))
	assert.Empty(t, p.Retained())
}

func TestProcessSubmission_ConditionalSurgery(t *testing.T) {
	f := newFixture(t)
	f.clinicalCore()
	f.write(catalog.Surgery, "surgery.txt",
		row{"donor_id": "d1"},
		row{"donor_id": "d1", "specimen_id": "sp1"},
		row{"donor_id": "d1", "specimen_id": "sp9"},
	)

	_, col, _, err := f.run(Options{})
	require.NoError(t, err)
	cond := only(col.Errors(), catalog.ConditionalRelation, catalog.Surgery)
	require.Len(t, cond, 1)
	assert.Equal(t, []string{"sp9"}, cond[0].Value)
	assert.Equal(t, int64(4), cond[0].Line)
	assert.Empty(t, only(col.Errors(), catalog.Relation, catalog.Surgery))
}

func TestProcessSubmission_KeyOnlyInLaterTypeDoesNotResolve(t *testing.T) {
	f := newFixture(t)
	f.write(catalog.Donor, "donor.txt", row{"donor_id": "d1"})
	f.write(catalog.Specimen, "specimen.txt", row{"donor_id": "d1", "specimen_id": "sp1"})
	f.write(catalog.Sample, "sample.txt",
		row{"analyzed_sample_id": "s1", "specimen_id": "sp1"},
		row{"analyzed_sample_id": "s2", "specimen_id": "sp2"},
	)
	// sp2 shows up only in files processed after sample.
	f.write(catalog.Biomarker, "biomarker.txt", row{"donor_id": "d1", "specimen_id": "sp2", "biomarker_name": "b"})
	f.write(catalog.Surgery, "surgery.txt", row{"donor_id": "d1", "specimen_id": "sp2"})

	_, col, _, err := f.run(Options{})
	require.NoError(t, err)
	rel := only(col.Errors(), catalog.Relation, catalog.Sample)
	require.Len(t, rel, 1)
	assert.Equal(t, []string{"sp2"}, rel[0].Value)
	assert.Equal(t, int64(3), rel[0].Line)
}

func TestProcessSubmission_NonUTF8KeysStayDistinct(t *testing.T) {
	f := newFixture(t)
	f.write(catalog.Donor, "donor.txt", row{"donor_id": "caf\xe9"}, row{"donor_id": "caf\xe8"})
	f.write(catalog.Specimen, "specimen.txt",
		row{"donor_id": "caf\xe9", "specimen_id": "sp1"},
		row{"donor_id": "caf\xe7", "specimen_id": "sp2"},
	)

	_, col, _, err := f.run(Options{})
	require.NoError(t, err)
	assert.Empty(t, only(col.Errors(), catalog.Uniqueness, catalog.Donor))
	rel := only(col.Errors(), catalog.Relation, catalog.Specimen)
	require.Len(t, rel, 1)
	assert.Equal(t, []string{"caf\xe7"}, rel[0].Value)
}

func TestProcessSubmission_OptionalMatchedSample(t *testing.T) {
	f := newFixture(t)
	f.clinicalCore()
	f.write(catalog.SSMM, "ssm_m.txt",
		row{"analysis_id": "a1", "analyzed_sample_id": "s1"},
		row{"analysis_id": "a2", "analyzed_sample_id": "s1", "matched_sample_id": "s1"},
		row{"analysis_id": "a3", "analyzed_sample_id": "s1", "matched_sample_id": "s9"},
	)

	_, col, _, err := f.run(Options{})
	require.NoError(t, err)
	opt := only(col.Errors(), catalog.OptionalRelation, catalog.SSMM)
	require.Len(t, opt, 1)
	assert.Equal(t, []string{"s9"}, opt[0].Value)
	assert.Equal(t, []string{"matched_sample_id"}, opt[0].FieldNames)
}

func TestProcessSubmission_DuplicatesAcrossFilesWithWorkers(t *testing.T) {
	f := newFixture(t)
	f.write(catalog.Donor, "donor.a.txt", row{"donor_id": "d1"}, row{"donor_id": "d2"})
	f.write(catalog.Donor, "donor.b.txt", row{"donor_id": "d3"}, row{"donor_id": "d1"})
	f.write(catalog.Donor, "donor.c.txt", row{"donor_id": "d2"})

	_, col, res, err := f.run(Options{FileWorkers: 4, CategoryWorkers: 2})
	require.NoError(t, err)
	assert.Len(t, only(col.Errors(), catalog.Uniqueness, catalog.Donor), 2)
	assert.Equal(t, 3, res.Types[catalog.Donor].Files)
	assert.Equal(t, int64(5), res.Types[catalog.Donor].Stats.Rows)
}

func TestProcessSubmission_Deterministic(t *testing.T) {
	f := newFixture(t)
	f.write(catalog.Donor, "donor.txt", row{"donor_id": "d1"}, row{"donor_id": "d2"}, row{"donor_id": "d3"})
	f.write(catalog.Specimen, "specimen.txt", row{"donor_id": "d4", "specimen_id": "sp1"})

	_, first, _, err := f.run(Options{})
	require.NoError(t, err)
	_, second, _, err := f.run(Options{})
	require.NoError(t, err)
	assert.Equal(t, first.Errors(), second.Errors())
	assert.NotEmpty(t, first.Errors())
}

func TestProcessSubmission_StructuralFailure(t *testing.T) {
	f := newFixture(t)
	f.write(catalog.Donor, "donor.txt", row{"donor_id": "d1"})
	f.write(catalog.Specimen, "specimen.txt", row{"specimen_type": "normal"})

	_, _, res, err := f.run(Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, processor.ErrStructural)
	assert.True(t, res.Failed)
	_, ranSample := res.Types[catalog.Sample]
	assert.False(t, ranSample)
}

func TestProcessSubmission_MissingDirectory(t *testing.T) {
	d, err := dictionary.NewCached(dictionary.NewHardcoded())
	require.NoError(t, err)
	missing := filepath.Join(t.TempDir(), "nope")
	p := New(d, file.Lister{SubmissionDir: missing, SystemDir: missing}, tsv.Source{}, &report.Collector{}, Options{})
	res, err := p.ProcessSubmission(context.Background())
	require.Error(t, err)
	assert.True(t, res.Failed)
}

func TestProcessFileType_WriteOnce(t *testing.T) {
	f := newFixture(t)
	f.write(catalog.Donor, "donor.txt", row{"donor_id": "d1"})
	p := New(f.dict, file.Lister{SubmissionDir: f.dir, SystemDir: f.dir}, tsv.Source{}, &report.Collector{}, Options{})

	require.NoError(t, p.ProcessFileType(context.Background(), catalog.Donor))
	assert.Equal(t, []catalog.FileType{catalog.Donor}, p.Retained())
	err := p.ProcessFileType(context.Background(), catalog.Donor)
	assert.ErrorContains(t, err, "already finalized")
}
