package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/config"
	"keyvalidator/internal/dictionary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeType writes a file of type ft under every declared column. Rows give
// values by column name.
func writeType(t *testing.T, dir string, ft catalog.FileType, rows ...map[string]string) {
	t.Helper()
	fields := dictionary.NewHardcoded().FieldNames(ft)
	var b strings.Builder
	b.WriteString(strings.Join(fields, "\t") + "\n")
	for _, r := range rows {
		vals := make([]string, len(fields))
		for i, f := range fields {
			vals[i] = r[f]
		}
		b.WriteString(strings.Join(vals, "\t") + "\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(ft)+".txt"), []byte(b.String()), 0o644))
}

// testJob returns a job over a submission with one orphan donor and one
// specimen pointing at an unknown donor.
func testJob(t *testing.T) config.Job {
	t.Helper()
	sub := t.TempDir()
	writeType(t, sub, catalog.Donor, map[string]string{"donor_id": "D1"}, map[string]string{"donor_id": "D2"})
	writeType(t, sub, catalog.Specimen,
		map[string]string{"donor_id": "D1", "specimen_id": "sp1"},
		map[string]string{"donor_id": "D3", "specimen_id": "sp2"},
	)
	job := config.Job{
		Job:    "test",
		Input:  config.Input{SubmissionDir: sub, SystemDir: sub},
		Report: config.Report{Path: filepath.Join(t.TempDir(), "out")},
	}
	job.ApplyDefaults()
	return job
}

func TestRun_WritesReports(t *testing.T) {
	job := testJob(t)
	dbPath := filepath.Join(t.TempDir(), "kv.db")
	job.Report.DB = &config.DBConfig{Kind: "sqlite", DSN: dbPath, Table: "kv_errors", AutoCreateTable: true, BatchSize: 2}
	out, err := run(context.Background(), job, "run-1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), out.Counts[catalog.Relation])
	assert.GreaterOrEqual(t, out.Counts[catalog.SurjectionError], int64(1))

	f, err := os.Open(out.ReportPath)
	require.NoError(t, err)
	defer f.Close()
	var kinds []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec struct {
			Type       string   `json:"type"`
			FileType   string   `json:"fileType"`
			LineNumber int64    `json:"lineNumber"`
			Value      []string `json:"value"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		kinds = append(kinds, rec.Type)
		if rec.Type == string(catalog.Relation) {
			assert.Equal(t, []string{"D3"}, rec.Value)
			assert.Equal(t, int64(3), rec.LineNumber)
		}
	}
	require.NoError(t, sc.Err())
	assert.Contains(t, kinds, string(catalog.SurjectionError))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var n int64
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM kv_errors WHERE run_id = 'run-1'`).Scan(&n))
	assert.Equal(t, int64(len(kinds)), n)
}

func TestRun_FatalOnMalformedFile(t *testing.T) {
	job := testJob(t)
	// A specimen file missing its declared columns cannot be checked.
	require.NoError(t, os.WriteFile(filepath.Join(job.Input.SubmissionDir, "specimen.txt"),
		[]byte("donor_id\tspecimen_id\nD1\tsp1\n"), 0o644))
	out, err := run(context.Background(), job, "run-2")
	require.Error(t, err)
	assert.True(t, out.Result.Failed)
}

func TestExecute_ExitCodes(t *testing.T) {
	job := testJob(t)
	assert.Equal(t, exitOK, execute(job, "run-3", false, false))
	assert.Equal(t, exitKeyErrors, execute(job, "run-4", false, true))

	job.Input.SubmissionDir = filepath.Join(t.TempDir(), "missing")
	assert.Equal(t, exitFatal, execute(job, "run-5", false, false))
}

func TestBuildDictionary(t *testing.T) {
	t.Parallel()

	d, err := buildDictionary(config.Dictionary{Kind: "hardcoded", Surjective: map[string]bool{"specimen": false}})
	require.NoError(t, err)
	assert.False(t, d.HasOutgoingSurjectiveRelation(catalog.Specimen))
	assert.True(t, d.HasOutgoingSurjectiveRelation(catalog.Sample))

	_, err = buildDictionary(config.Dictionary{Kind: "hardcoded", RowChecks: map[string]bool{"nope": true}})
	assert.Error(t, err)

	_, err = buildDictionary(config.Dictionary{Kind: "graph"})
	assert.ErrorContains(t, err, "unknown dictionary kind")

	_, err = buildDictionary(config.Dictionary{Kind: "dynamic", Path: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}
