// Package catalog defines the fixed vocabulary of the key validator: the
// submission file types, the experimental data types they belong to, the key
// roles a column group can play, and the error kinds reported for violations.
//
// Everything here is static and immutable. Declaration order matters: it is
// the order used for processing and for deterministic tie-breaking.
package catalog

import (
	"fmt"
	"strings"
)

// FileType identifies a declared category of submission file. Its value is
// the lower-case file name prefix used in submissions (e.g. "donor", "ssm_p").
type FileType string

const (
	Donor     FileType = "donor"
	Specimen  FileType = "specimen"
	Sample    FileType = "sample"
	Biomarker FileType = "biomarker"
	Family    FileType = "family"
	Exposure  FileType = "exposure"
	Surgery   FileType = "surgery"
	Therapy   FileType = "therapy"

	SSMM FileType = "ssm_m"
	SSMP FileType = "ssm_p"

	CNSMM FileType = "cnsm_m"
	CNSMP FileType = "cnsm_p"
	CNSMS FileType = "cnsm_s"

	STSMM FileType = "stsm_m"
	STSMP FileType = "stsm_p"
	STSMS FileType = "stsm_s"

	MirnaSeqM FileType = "mirna_seq_m"
	MirnaSeqP FileType = "mirna_seq_p"

	MethArrayM      FileType = "meth_array_m"
	MethArrayProbes FileType = "meth_array_probes"
	MethArrayP      FileType = "meth_array_p"

	MethSeqM FileType = "meth_seq_m"
	MethSeqP FileType = "meth_seq_p"

	ExpArrayM FileType = "exp_array_m"
	ExpArrayP FileType = "exp_array_p"

	ExpSeqM FileType = "exp_seq_m"
	ExpSeqP FileType = "exp_seq_p"

	PexpM FileType = "pexp_m"
	PexpP FileType = "pexp_p"

	JCNM FileType = "jcn_m"
	JCNP FileType = "jcn_p"

	SGVM FileType = "sgv_m"
	SGVP FileType = "sgv_p"
)

// DataType is an experimental data category (SSM, CNSM, ...). Clinical file
// types carry the empty DataType.
type DataType string

const (
	Clinical  DataType = ""
	SSM       DataType = "ssm"
	CNSM      DataType = "cnsm"
	STSM      DataType = "stsm"
	MirnaSeq  DataType = "mirna_seq"
	MethArray DataType = "meth_array"
	MethSeq   DataType = "meth_seq"
	ExpArray  DataType = "exp_array"
	ExpSeq    DataType = "exp_seq"
	Pexp      DataType = "pexp"
	JCN       DataType = "jcn"
	SGV       DataType = "sgv"
)

// SubType is the structural role of a file type within its data type.
type SubType string

const (
	SubDonor        SubType = "donor"
	SubSpecimen     SubType = "specimen"
	SubSample       SubType = "sample"
	SubSupplemental SubType = "supplemental"
	SubMeta         SubType = "meta"
	SubPrimary      SubType = "primary"
	SubSecondary    SubType = "secondary"
	SubSystem       SubType = "system"
)

type entry struct {
	ft  FileType
	dt  DataType
	sub SubType
}

// entries is the catalog in declaration order.
var entries = []entry{
	{Donor, Clinical, SubDonor},
	{Specimen, Clinical, SubSpecimen},
	{Sample, Clinical, SubSample},
	{Biomarker, Clinical, SubSupplemental},
	{Family, Clinical, SubSupplemental},
	{Exposure, Clinical, SubSupplemental},
	{Surgery, Clinical, SubSupplemental},
	{Therapy, Clinical, SubSupplemental},

	{SSMM, SSM, SubMeta},
	{SSMP, SSM, SubPrimary},

	{CNSMM, CNSM, SubMeta},
	{CNSMP, CNSM, SubPrimary},
	{CNSMS, CNSM, SubSecondary},

	{STSMM, STSM, SubMeta},
	{STSMP, STSM, SubPrimary},
	{STSMS, STSM, SubSecondary},

	{MirnaSeqM, MirnaSeq, SubMeta},
	{MirnaSeqP, MirnaSeq, SubPrimary},

	{MethArrayM, MethArray, SubMeta},
	{MethArrayProbes, MethArray, SubSystem},
	{MethArrayP, MethArray, SubPrimary},

	{MethSeqM, MethSeq, SubMeta},
	{MethSeqP, MethSeq, SubPrimary},

	{ExpArrayM, ExpArray, SubMeta},
	{ExpArrayP, ExpArray, SubPrimary},

	{ExpSeqM, ExpSeq, SubMeta},
	{ExpSeqP, ExpSeq, SubPrimary},

	{PexpM, Pexp, SubMeta},
	{PexpP, Pexp, SubPrimary},

	{JCNM, JCN, SubMeta},
	{JCNP, JCN, SubPrimary},

	{SGVM, SGV, SubMeta},
	{SGVP, SGV, SubPrimary},
}

var (
	index     = map[FileType]int{}
	dataTypes []DataType
)

func init() {
	seen := map[DataType]bool{}
	for i, e := range entries {
		index[e.ft] = i
		if e.dt != Clinical && !seen[e.dt] {
			seen[e.dt] = true
			dataTypes = append(dataTypes, e.dt)
		}
	}
}

// FileTypes returns every catalog file type in declaration order.
func FileTypes() []FileType {
	out := make([]FileType, len(entries))
	for i, e := range entries {
		out[i] = e.ft
	}
	return out
}

// DataTypes returns the experimental data types in declaration order.
func DataTypes() []DataType {
	return append([]DataType(nil), dataTypes...)
}

// ParseFileType resolves a file type by name (case-insensitive).
func ParseFileType(name string) (FileType, error) {
	ft := FileType(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := index[ft]; !ok {
		return "", fmt.Errorf("catalog: unknown file type %q", name)
	}
	return ft, nil
}

// Known reports whether ft is part of the catalog.
func (ft FileType) Known() bool {
	_, ok := index[ft]
	return ok
}

// Ordinal is the declaration position of ft, or -1 if unknown.
func (ft FileType) Ordinal() int {
	if i, ok := index[ft]; ok {
		return i
	}
	return -1
}

func (ft FileType) lookup() entry {
	if i, ok := index[ft]; ok {
		return entries[i]
	}
	return entry{ft: ft}
}

// DataType returns the experimental data type of ft (Clinical for clinical types).
func (ft FileType) DataType() DataType { return ft.lookup().dt }

// SubType returns the structural role of ft.
func (ft FileType) SubType() SubType { return ft.lookup().sub }

// IsClinical reports whether ft belongs to the clinical types.
func (ft FileType) IsClinical() bool { return ft.Known() && ft.DataType() == Clinical }

// IsSystem reports whether ft is a reference-only system file.
func (ft FileType) IsSystem() bool { return ft.SubType() == SubSystem }

// IsReplaceAll reports whether ft is a clinical core type, fully superseded
// by every submission.
func (ft FileType) IsReplaceAll() bool {
	switch ft.SubType() {
	case SubDonor, SubSpecimen, SubSample:
		return true
	}
	return false
}

func (ft FileType) String() string { return string(ft) }

func (dt DataType) String() string {
	if dt == Clinical {
		return "clinical"
	}
	return string(dt)
}

// KeyRole is the role a group of key columns plays in a file type.
type KeyRole int

const (
	PK KeyRole = iota
	FK
	OptionalFK
	ConditionalFK
	Surjection
)

func (r KeyRole) String() string {
	switch r {
	case PK:
		return "PK"
	case FK:
		return "FK"
	case OptionalFK:
		return "OPTIONAL_FK"
	case ConditionalFK:
		return "CONDITIONAL_FK"
	case Surjection:
		return "SURJECTION"
	}
	return fmt.Sprintf("KeyRole(%d)", int(r))
}

// ErrorKind classifies a key violation.
type ErrorKind string

const (
	Uniqueness          ErrorKind = "UNIQUENESS"
	Relation            ErrorKind = "RELATION"
	OptionalRelation    ErrorKind = "OPTIONAL_RELATION"
	ConditionalRelation ErrorKind = "CONDITIONAL_RELATION"
	SurjectionError     ErrorKind = "SURJECTION"
)

// ErrorKinds lists every error kind in reporting order.
func ErrorKinds() []ErrorKind {
	return []ErrorKind{Uniqueness, Relation, OptionalRelation, ConditionalRelation, SurjectionError}
}

// ErrorKindFor maps a key role to the error kind raised when it is violated.
func ErrorKindFor(r KeyRole) ErrorKind {
	switch r {
	case PK:
		return Uniqueness
	case OptionalFK:
		return OptionalRelation
	case ConditionalFK:
		return ConditionalRelation
	case Surjection:
		return SurjectionError
	}
	return Relation
}

// NotApplicable is the submission code for "not applicable". An optional
// foreign key carrying it is treated as absent.
const NotApplicable = "-888"
