package typemap

import (
	"strings"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// Kind is the concrete parse rule a Directive applies.
type Kind int

const (
	KindUnmapped Kind = iota
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindNumeric
	KindText
	KindBoolean
	KindDate
	KindTimestamp
	KindTimestampTZ
)

var kindNames = map[Kind]string{
	KindUnmapped:    "unmapped",
	KindInt16:       "int16",
	KindInt32:       "int32",
	KindInt64:       "int64",
	KindFloat32:     "float32",
	KindFloat64:     "float64",
	KindNumeric:     "numeric",
	KindText:        "text",
	KindBoolean:     "boolean",
	KindDate:        "date",
	KindTimestamp:   "timestamp",
	KindTimestampTZ: "timestamptz",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// declaredKinds maps information_schema data_type values (and the common
// pg_type aliases) to a Kind.
var declaredKinds = map[string]Kind{
	"smallint": KindInt16,
	"int2":     KindInt16,
	"integer":  KindInt32,
	"int":      KindInt32,
	"int4":     KindInt32,
	"bigint":   KindInt64,
	"int8":     KindInt64,

	"real":             KindFloat32,
	"float4":           KindFloat32,
	"double precision": KindFloat64,
	"float8":           KindFloat64,

	"numeric": KindNumeric,
	"decimal": KindNumeric,

	"text":              KindText,
	"character varying": KindText,
	"varchar":           KindText,
	"character":         KindText,
	"char":              KindText,
	"bpchar":            KindText,

	"boolean": KindBoolean,
	"bool":    KindBoolean,

	"date":                        KindDate,
	"timestamp without time zone": KindTimestamp,
	"timestamp":                   KindTimestamp,
	"timestamp with time zone":    KindTimestampTZ,
	"timestamptz":                 KindTimestampTZ,
}

// normalizeDeclared lowercases a declared type and strips any type modifier,
// so "character varying(32)" and "NUMERIC(12,2)" resolve like their bare names.
func normalizeDeclared(declared string) string {
	s := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(s, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(s[i:], ')'); j >= 0 {
			rest = s[i+j+1:]
		}
		s = strings.TrimSpace(s[:i]) + rest
	}
	return strings.Join(strings.Fields(s), " ")
}

func kindOf(declared string) Kind {
	if k, ok := declaredKinds[normalizeDeclared(declared)]; ok {
		return k
	}
	return KindUnmapped
}

// Tag returns the TypeTag family of a Kind.
func (k Kind) Tag() pgstage.TypeTag {
	switch k {
	case KindInt16, KindInt32, KindInt64:
		return pgstage.TypeInteger
	case KindFloat32, KindFloat64:
		return pgstage.TypeFloat
	case KindNumeric:
		return pgstage.TypeNumeric
	case KindText:
		return pgstage.TypeText
	case KindBoolean:
		return pgstage.TypeBoolean
	case KindDate, KindTimestamp, KindTimestampTZ:
		return pgstage.TypeTemporal
	default:
		return pgstage.TypeOther
	}
}

// Classify returns the TypeTag for a declared database type.
// Types outside the closed table classify as TypeOther.
func Classify(declared string) pgstage.TypeTag {
	return kindOf(declared).Tag()
}
