package dictionary

import (
	"fmt"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/condition"
	"keyvalidator/internal/layout"
)

// rel is one relation row of the literal table below.
type rel struct {
	role   catalog.KeyRole
	parent catalog.FileType
	ix     []int
	// when is the condition of a conditional relation.
	when string
}

type typeSpec struct {
	fields []string
	pk     []int
	rels   []rel
}

// Declared column layouts. Key columns sit at the literal positions the
// relations below refer to.
var hardcoded = map[catalog.FileType]typeSpec{
	catalog.Donor: {
		fields: []string{"donor_id", "donor_sex", "donor_region_of_residence", "donor_vital_status",
			"disease_status_last_followup", "donor_relapse_type", "donor_age_at_diagnosis",
			"donor_age_at_enrollment", "donor_age_at_last_followup", "donor_relapse_interval",
			"donor_diagnosis_icd10", "donor_tumour_staging_system_at_diagnosis",
			"donor_tumour_stage_at_diagnosis", "donor_survival_time", "donor_interval_of_last_followup"},
		pk: []int{0},
	},
	catalog.Specimen: {
		fields: []string{"donor_id", "specimen_id", "specimen_type", "specimen_type_other",
			"specimen_interval", "specimen_donor_treatment_type", "specimen_processing",
			"specimen_storage", "tumour_confirmed", "specimen_biobank", "specimen_biobank_id",
			"specimen_available", "tumour_histological_type", "tumour_grading_system", "tumour_grade"},
		pk:   []int{1},
		rels: []rel{{catalog.FK, catalog.Donor, []int{0}, ""}},
	},
	catalog.Sample: {
		fields: []string{"analyzed_sample_id", "specimen_id", "analyzed_sample_interval",
			"percentage_cellularity", "level_of_cellularity", "study"},
		pk:   []int{0},
		rels: []rel{{catalog.FK, catalog.Specimen, []int{1}, ""}},
	},
	catalog.Biomarker: {
		fields: []string{"donor_id", "specimen_id", "biomarker_name", "biomarker_threshold", "biomarker_positive"},
		pk:     []int{0, 1, 2},
		rels: []rel{
			{catalog.FK, catalog.Donor, []int{0}, ""},
			{catalog.FK, catalog.Specimen, []int{1}, ""},
		},
	},
	catalog.Family: {
		fields: []string{"donor_id", "donor_has_relative_with_cancer_history", "relationship_type",
			"relationship_type_other", "relationship_sex", "relationship_age",
			"relationship_disease_icd10", "relationship_disease"},
		pk:   []int{0, 1, 2, 3, 4, 5, 6, 7},
		rels: []rel{{catalog.FK, catalog.Donor, []int{0}, ""}},
	},
	catalog.Exposure: {
		fields: []string{"donor_id", "exposure_type", "exposure_intensity",
			"tobacco_smoking_history_indicator", "tobacco_smoking_intensity",
			"alcohol_history", "alcohol_history_intensity"},
		pk:   []int{0},
		rels: []rel{{catalog.FK, catalog.Donor, []int{0}, ""}},
	},
	catalog.Surgery: {
		fields: []string{"donor_id", "procedure_interval", "procedure_type", "procedure_site",
			"resection_status", "specimen_id"},
		pk: []int{0, 5},
		rels: []rel{
			{catalog.FK, catalog.Donor, []int{0}, ""},
			{catalog.ConditionalFK, catalog.Specimen, []int{5}, "nonempty(specimen_id)"},
		},
	},
	catalog.Therapy: {
		fields: []string{"donor_id", "first_therapy_type", "first_therapy_therapeutic_intent",
			"first_therapy_start_interval", "first_therapy_duration", "first_therapy_response",
			"second_therapy_type", "second_therapy_therapeutic_intent", "second_therapy_start_interval",
			"second_therapy_duration", "second_therapy_response", "other_therapy", "other_therapy_response"},
		pk:   []int{0},
		rels: []rel{{catalog.FK, catalog.Donor, []int{0}, ""}},
	},

	catalog.SSMM:  matchedMeta(),
	catalog.SSMP:  primary(catalog.SSMM, nil, "mutation_type", "chromosome", "chromosome_start", "chromosome_end", "chromosome_strand", "reference_genome_allele", "control_genotype", "mutated_from_allele", "mutated_to_allele", "tumour_genotype", "quality_score", "total_read_count", "mutant_allele_read_count", "verification_status"),
	catalog.CNSMM: matchedMeta(),
	catalog.CNSMP: primary(catalog.CNSMM, []int{0, 1, 2}, "mutation_id", "mutation_type", "chromosome", "chromosome_start", "chromosome_end", "copy_number", "segment_mean", "segment_median", "quality_score", "verification_status"),
	catalog.CNSMS: {
		fields: []string{"analysis_id", "analyzed_sample_id", "mutation_id", "gene_affected", "transcript_affected", "gene_build_version", "note"},
		rels:   []rel{{catalog.FK, catalog.CNSMP, []int{0, 1, 2}, ""}},
	},
	catalog.STSMM: matchedMeta(),
	catalog.STSMP: primary(catalog.STSMM, []int{0, 1, 2, 3}, "placement", "sv_id", "annotation", "interpreted_annotation", "variant_type", "chr_from", "chr_from_bkpt", "chr_from_strand", "chr_to", "chr_to_bkpt", "chr_to_strand", "quality_score", "verification_status"),
	catalog.STSMS: {
		fields: []string{"analysis_id", "analyzed_sample_id", "sv_id", "placement", "bkpt_from_context", "gene_affected_by_bkpt_from", "transcript_affected_by_bkpt_from", "bkpt_to_context", "gene_affected_by_bkpt_to", "transcript_affected_by_bkpt_to", "gene_build_version", "note"},
		// aligned with stsm_p's key (analysis_id, analyzed_sample_id, placement, sv_id)
		rels: []rel{{catalog.FK, catalog.STSMP, []int{0, 1, 3, 2}, ""}},
	},
	catalog.MirnaSeqM: meta(),
	catalog.MirnaSeqP: primary(catalog.MirnaSeqM, nil, "mirna_db", "mirna_id", "normalized_read_count", "raw_read_count", "fold_change", "is_isomir", "chromosome", "chromosome_start", "chromosome_end", "chromosome_strand", "quality_score", "verification_status"),
	catalog.MethArrayM: meta(),
	catalog.MethArrayProbes: {
		fields: []string{"array_platform", "probe_id", "chromosome", "chromosome_start", "chromosome_end", "assembly_version"},
		pk:     []int{0, 1},
	},
	catalog.MethArrayP: {
		fields: []string{"analysis_id", "analyzed_sample_id", "array_platform", "probe_id", "methylation_value", "metric_used", "note"},
		rels: []rel{
			{catalog.FK, catalog.MethArrayM, []int{0, 1}, ""},
			{catalog.FK, catalog.MethArrayProbes, []int{2, 3}, ""},
		},
	},
	catalog.MethSeqM:  meta(),
	catalog.MethSeqP:  primary(catalog.MethSeqM, nil, "chromosome", "chromosome_start", "chromosome_end", "chromosome_strand", "beta_value", "methylated_reads", "unmethylated_reads", "quality_score", "verification_status"),
	catalog.ExpArrayM: meta(),
	catalog.ExpArrayP: primary(catalog.ExpArrayM, []int{0, 1, 2, 3}, "gene_model", "gene_id", "normalized_expression_value", "fold_change", "probe_id", "note"),
	catalog.ExpSeqM:   meta(),
	catalog.ExpSeqP:   primary(catalog.ExpSeqM, []int{0, 1, 2, 3}, "gene_model", "gene_id", "normalized_read_count", "raw_read_count", "fold_change", "reference_sample_type", "is_annotated", "note"),
	catalog.PexpM:     meta(),
	catalog.PexpP:     primary(catalog.PexpM, nil, "antibody_id", "gene_name", "gene_stable_id", "protein_stable_id", "normalized_expression_level", "verification_status"),
	catalog.JCNM:      meta(),
	catalog.JCNP:      primary(catalog.JCNM, nil, "junction_id", "gene_stable_id", "gene_chromosome", "gene_strand", "gene_start", "gene_end", "second_gene_stable_id", "exon1_chromosome", "exon1_end", "exon2_chromosome", "exon2_start", "is_fusion_gene", "junction_read_count", "quality_score"),
	catalog.SGVM:      meta(),
	catalog.SGVP:      primary(catalog.SGVM, nil, "variant_type", "chromosome", "chromosome_start", "chromosome_end", "chromosome_strand", "reference_genome_allele", "genotype", "variant_allele", "quality_score", "total_read_count", "verification_status"),
}

// defaultSurjective is the explicit allow-list of relations whose parent keys
// must each be referenced at least once.
var defaultSurjective = map[catalog.FileType]bool{
	catalog.Specimen:   true,
	catalog.Sample:     true,
	catalog.SSMP:       true,
	catalog.CNSMP:      true,
	catalog.STSMP:      true,
	catalog.JCNP:       true,
	catalog.SGVP:       true,
	catalog.PexpP:      true,
	catalog.MethArrayP: true,
	catalog.MethSeqP:   true,
	catalog.ExpArrayP:  true,
	catalog.ExpSeqP:    true,
	catalog.MirnaSeqP:  true,
}

var metaFields = []string{"analysis_id", "analyzed_sample_id", "matched_sample_id", "assembly_version",
	"platform", "experimental_protocol", "base_calling_algorithm", "alignment_algorithm",
	"variation_calling_algorithm", "other_analysis_algorithm", "seq_coverage",
	"raw_data_repository", "raw_data_accession", "note"}

func meta() typeSpec {
	return typeSpec{
		fields: metaFields,
		pk:     []int{0, 1},
		rels:   []rel{{catalog.FK, catalog.Sample, []int{1}, ""}},
	}
}

// matchedMeta is a meta type whose matched_sample_id optionally refers to a
// sample.
func matchedMeta() typeSpec {
	s := meta()
	s.rels = append(s.rels, rel{catalog.OptionalFK, catalog.Sample, []int{2}, ""})
	return s
}

func primary(metaType catalog.FileType, pk []int, rest ...string) typeSpec {
	return typeSpec{
		fields: append([]string{"analysis_id", "analyzed_sample_id"}, rest...),
		pk:     pk,
		rels:   []rel{{catalog.FK, metaType, []int{0, 1}, ""}},
	}
}

// Hardcoded is the literal dictionary of the fixed catalog. Layouts are
// compiled on every call; wrap it in Cached for row-level use.
type Hardcoded struct {
	surjective map[catalog.FileType]bool
	rowChecks  map[catalog.FileType]bool
}

// Option tunes the policy parts of Hardcoded.
type Option func(*Hardcoded)

// WithSurjective adds (on) or removes (off) the surjectivity of child's
// relation to its primary parent.
func WithSurjective(child catalog.FileType, on bool) Option {
	return func(h *Hardcoded) { h.surjective[child] = on }
}

// WithRowChecks toggles the per-row key sanity check for ft.
func WithRowChecks(ft catalog.FileType, on bool) Option {
	return func(h *Hardcoded) { h.rowChecks[ft] = on }
}

// NewHardcoded returns the fixed-catalog dictionary.
func NewHardcoded(opts ...Option) *Hardcoded {
	h := &Hardcoded{
		surjective: make(map[catalog.FileType]bool, len(defaultSurjective)),
		rowChecks:  map[catalog.FileType]bool{},
	}
	for ft, on := range defaultSurjective {
		h.surjective[ft] = on
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// ClinicalFileTypes returns the clinical file types, core before supplemental.
func (h *Hardcoded) ClinicalFileTypes() []catalog.FileType {
	return []catalog.FileType{
		catalog.Donor, catalog.Specimen, catalog.Sample,
		catalog.Biomarker, catalog.Family, catalog.Exposure, catalog.Surgery, catalog.Therapy,
	}
}

// ExperimentalDataTypes returns the experimental data types in processing order.
func (h *Hardcoded) ExperimentalDataTypes() []catalog.DataType { return catalog.DataTypes() }

// ExperimentalFileTypes returns the file types of dt: meta, system, primary, secondary.
func (h *Hardcoded) ExperimentalFileTypes(dt catalog.DataType) []catalog.FileType {
	if dt == catalog.Clinical {
		return nil
	}
	var out []catalog.FileType
	for _, ft := range catalog.FileTypes() {
		if ft.DataType() == dt {
			out = append(out, ft)
		}
	}
	return out
}

// PresenceIndicator returns the file type whose files mark dt as submitted.
func (h *Hardcoded) PresenceIndicator(dt catalog.DataType) (catalog.FileType, error) {
	for _, ft := range h.ExperimentalFileTypes(dt) {
		if ft.SubType() == catalog.SubMeta {
			return ft, nil
		}
	}
	return "", fmt.Errorf("dictionary: no presence indicator for data type %q", dt)
}

// KeyLayout returns the compiled key layout of ft.
func (h *Hardcoded) KeyLayout(ft catalog.FileType) (*layout.KeyLayout, error) {
	ts, ok := hardcoded[ft]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFileType, ft)
	}
	spec := layout.Spec{
		FileType:        ft,
		FieldNames:      ts.fields,
		PK:              ts.pk,
		RowChecks:       !ft.IsSystem(),
		CheckUniqueness: !ft.IsSystem(),
	}
	if on, ok := h.rowChecks[ft]; ok {
		spec.RowChecks = on
	}
	for i, r := range ts.rels {
		lr := layout.Relation{Role: r.role, Parent: r.parent, Indices: r.ix}
		if i == 0 && r.role == catalog.FK {
			lr.Surjective = h.surjective[ft]
		}
		if r.when != "" {
			ev, err := condition.Compile(r.when, ts.fields)
			if err != nil {
				return nil, fmt.Errorf("dictionary %s: %w", ft, err)
			}
			lr.Condition = ev
		}
		spec.Relations = append(spec.Relations, lr)
	}
	return layout.Compile(spec)
}

// Parent returns ft's primary parent, if any.
func (h *Hardcoded) Parent(ft catalog.FileType) (catalog.FileType, bool) {
	return parentOf(h.KeyLayout, ft, false)
}

// SecondaryParent returns ft's secondary parent, if any.
func (h *Hardcoded) SecondaryParent(ft catalog.FileType) (catalog.FileType, bool) {
	return parentOf(h.KeyLayout, ft, true)
}

// Parents returns every type ft references, primary parent first.
func (h *Hardcoded) Parents(ft catalog.FileType) []catalog.FileType {
	return parentsOf(h.KeyLayout, ft)
}

// SurjectiveReferencedTypes returns the parents whose keys ft must all reference.
func (h *Hardcoded) SurjectiveReferencedTypes(ft catalog.FileType) []catalog.FileType {
	return surjectiveOf(h.KeyLayout, ft)
}

// HasOutgoingSurjectiveRelation reports whether ft has at least one surjective relation.
func (h *Hardcoded) HasOutgoingSurjectiveRelation(ft catalog.FileType) bool {
	return len(h.SurjectiveReferencedTypes(ft)) > 0
}

// FieldNames returns the declared columns of ft.
func (h *Hardcoded) FieldNames(ft catalog.FileType) []string { return hardcoded[ft].fields }

// PrimaryKeyNames returns the names of ft's primary key columns.
func (h *Hardcoded) PrimaryKeyNames(ft catalog.FileType) []string {
	kl, err := h.KeyLayout(ft)
	if err != nil {
		return nil
	}
	return kl.PKFields()
}

// SurjectionForeignKeyNames returns the names of the columns ft uses to reference its surjective parent.
func (h *Hardcoded) SurjectionForeignKeyNames(ft catalog.FileType) []string {
	return surjectionFKNames(h.KeyLayout, ft)
}

// ErrorFieldNames returns the columns an error of kind on ft toward referenced is about.
func (h *Hardcoded) ErrorFieldNames(ft catalog.FileType, kind catalog.ErrorKind, referenced catalog.FileType) []string {
	return errorFieldNames(h.KeyLayout, ft, kind, referenced)
}

// ReferencingFileType returns the single type referencing ft.
func (h *Hardcoded) ReferencingFileType(ft catalog.FileType) (catalog.FileType, error) {
	return referencingOf(h.KeyLayout, catalog.FileTypes(), ft)
}

// TopologicallyOrderedFileTypes is the catalog order, which already places
// every parent before its children.
func (h *Hardcoded) TopologicallyOrderedFileTypes() ([]catalog.FileType, error) {
	return catalog.FileTypes(), nil
}
