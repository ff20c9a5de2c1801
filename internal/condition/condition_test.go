package condition

import (
	"errors"
	"testing"
)

var surgeryFields = []string{"donor_id", "procedure_interval", "procedure_type", "procedure_site", "resection_status", "specimen_id"}

func row(specimen, site string) []string {
	return []string{"D1", "10", "biopsy", site, "R0", specimen}
}

func TestCompileAndEvaluate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		expr string
		row  []string
		want bool
	}{
		{"nonempty(specimen_id)", row("SP1", ""), true},
		{"nonempty(specimen_id)", row("", ""), false},
		{"empty(specimen_id)", row("", ""), true},
		{`procedure_site == "liver"`, row("", "liver"), true},
		{`procedure_site != 'liver'`, row("", "liver"), false},
		{`nonempty(specimen_id) && procedure_site == "liver"`, row("SP1", "lung"), false},
		{`nonempty(specimen_id) || procedure_site == "liver"`, row("", "liver"), true},
		{`!(empty(specimen_id) || empty(procedure_site))`, row("SP1", "liver"), true},
		{`!empty(specimen_id) && (procedure_site == "a" || procedure_site == "liver")`, row("SP1", "liver"), true},
	}
	for _, tc := range cases {
		ev, err := Compile(tc.expr, surgeryFields)
		if err != nil {
			t.Fatalf("Compile(%q): %v", tc.expr, err)
		}
		got, err := ev.Evaluate(tc.row)
		if err != nil {
			t.Fatalf("Evaluate(%q): %v", tc.expr, err)
		}
		if got != tc.want {
			t.Errorf("%q on %v = %v, want %v", tc.expr, tc.row, got, tc.want)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{
		"nonempty(unknown_field)",
		`procedure_site = "x"`,
		`procedure_site == x`,
		`procedure_site == "x`,
		"(nonempty(specimen_id)",
		"nonempty(specimen_id) extra",
		"",
		"$",
	} {
		if _, err := Compile(expr, surgeryFields); err == nil {
			t.Errorf("Compile(%q): expected error", expr)
		}
	}
}

func TestEvaluateFieldCountMismatch(t *testing.T) {
	t.Parallel()

	ev, err := Compile("nonempty(specimen_id)", surgeryFields)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	_, err = ev.Evaluate([]string{"D1"})
	if !errors.Is(err, ErrFieldCount) {
		t.Fatalf("expected ErrFieldCount, got %v", err)
	}
}

func TestBuilders(t *testing.T) {
	t.Parallel()

	ne, err := NonEmpty(surgeryFields, "specimen_id")
	if err != nil {
		t.Fatalf("NonEmpty: %v", err)
	}
	eq, err := Equals(surgeryFields, "procedure_site", "liver")
	if err != nil {
		t.Fatalf("Equals: %v", err)
	}
	ev := New(And(ne, Not(eq)), surgeryFields)
	got, _ := ev.Evaluate(row("SP1", "lung"))
	if !got {
		t.Fatalf("expected true for %s", ev)
	}
	if _, err := NonEmpty(surgeryFields, "nope"); err == nil {
		t.Fatalf("expected unknown-field error")
	}
	if s := New(ne, surgeryFields).String(); s != "nonempty(specimen_id)" {
		t.Fatalf("String()=%q", s)
	}
}
