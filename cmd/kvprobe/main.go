package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"keyvalidator/internal/config"
	"keyvalidator/internal/datasource/file"
	"keyvalidator/internal/dictionary"
	"keyvalidator/internal/inspect"
	"keyvalidator/internal/parser/tsv"
)

// main is the entrypoint for the submission probe. It lists the file types
// found in a submission directory, checks every header against the hardcoded
// dictionary and prints the inventory as JSON.
//
// Run it before keyvalidator to catch files that would abort validation.
func main() {
	var (
		flagDir = flag.String(
			"dir",
			"",
			"submission directory (overrides env KV_SUBMISSION_DIR)",
		)
		flagSystemDir = flag.String(
			"system-dir",
			"",
			"directory of system files such as meth_array_probes (overrides env KV_SYSTEM_DIR)",
		)
		flagCount = flag.Bool(
			"count",
			false,
			"stream every file to count its rows",
		)
		flagPretty = flag.Bool(
			"pretty",
			true,
			"Pretty-print JSON output",
		)
		flagTimeout = flag.Duration(
			"timeout",
			10*time.Minute,
			"overall time limit",
		)
	)
	flag.Parse()

	dir := firstNonEmpty(*flagDir, os.Getenv(config.EnvSubmissionDir))
	if dir == "" {
		fmt.Fprintln(os.Stderr, "missing -dir")
		flag.Usage()
		os.Exit(2)
	}
	sysDir := firstNonEmpty(*flagSystemDir, os.Getenv(config.EnvSystemDir), dir)

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	rep, err := inspect.Inspect(ctx, dictionary.NewHardcoded(),
		file.Lister{SubmissionDir: dir, SystemDir: sysDir}, tsv.Source{},
		inspect.Options{CountRows: *flagCount})
	if err != nil {
		log.Fatalf("probe: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *flagPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(rep); err != nil {
		log.Fatalf("encode report: %v", err)
	}
	if n := rep.Problems(); n > 0 {
		log.Printf("probe: %d file(s) cannot be key-checked", n)
		os.Exit(1)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
