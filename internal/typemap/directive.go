package typemap

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// Default layouts tried in order. Extra layouts from configuration are
// tried after these.
var (
	DateLayouts = []string{
		"2006-01-02",
		"2006/01/02",
		"20060102",
	}

	// Fractional seconds are accepted after the seconds field even though
	// the layouts do not spell them out.
	TimestampLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006/01/02 15:04:05",
		"2006-01-02",
	}

	TimestampTZLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05-07",
		"2006-01-02T15:04:05-07",
		"2006-01-02 15:04:05 -0700",
		"2006-01-02T15:04:05-0700",
	}
)

const (
	dateFormat        = "2006-01-02"
	timestampFormat   = "2006-01-02 15:04:05.999999"
	timestampTZFormat = time.RFC3339Nano
)

var (
	errInvalidBoolean  = errors.New("not a boolean")
	errInvalidNumeric  = errors.New("not a number")
	errInvalidTemporal = errors.New("does not match any known layout")
)

// Directive is the parse and format rule for one column.
type Directive struct {
	Kind     Kind
	Original string // declared type, kept for Unmapped reporting
	layouts  []string
	loc      *time.Location
}

// For returns the directive for a column using the default temporal layouts.
func For(col pgstage.Column) Directive {
	return Directive{Kind: kindOf(col.DeclaredType), Original: col.DeclaredType}
}

// WithLayouts returns a copy of d that also tries extra time layouts.
// It has no effect on non-temporal directives.
func (d Directive) WithLayouts(extra []string) Directive {
	if len(extra) == 0 || d.Kind.Tag() != pgstage.TypeTemporal {
		return d
	}
	d.layouts = append(append([]string(nil), d.defaultLayouts()...), extra...)
	return d
}

// WithLocation returns a copy of d that reads offset-less timestamptz
// values in loc instead of UTC. It has no effect on other directives.
func (d Directive) WithLocation(loc *time.Location) Directive {
	if d.Kind == KindTimestampTZ {
		d.loc = loc
	}
	return d
}

// Mapped reports whether the column's declared type has a real directive.
func (d Directive) Mapped() bool {
	return d.Kind != KindUnmapped
}

// String describes the directive, e.g. "int32" or "unmapped(jsonb)".
func (d Directive) String() string {
	if d.Kind == KindUnmapped {
		return fmt.Sprintf("unmapped(%s)", d.Original)
	}
	return d.Kind.String()
}

func (d Directive) defaultLayouts() []string {
	switch d.Kind {
	case KindDate:
		return DateLayouts
	case KindTimestamp:
		return TimestampLayouts
	case KindTimestampTZ:
		// Naive timestamps in a timestamptz column are read in d.loc (UTC by default).
		return append(append([]string(nil), TimestampTZLayouts...), TimestampLayouts...)
	}
	return nil
}

func (d Directive) timeLayouts() []string {
	if d.layouts != nil {
		return d.layouts
	}
	return d.defaultLayouts()
}

// Parse coerces one raw field. An empty field is SQL NULL (nil).
// Surrounding whitespace is ignored for every kind except text.
func (d Directive) Parse(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	if d.Kind == KindText || d.Kind == KindUnmapped {
		return raw, nil
	}

	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}

	switch d.Kind {
	case KindInt16:
		v, err := strconv.ParseInt(s, 10, 16)
		return int16(v), unwrapNumError(err)
	case KindInt32:
		v, err := strconv.ParseInt(s, 10, 32)
		return int32(v), unwrapNumError(err)
	case KindInt64:
		v, err := strconv.ParseInt(s, 10, 64)
		return v, unwrapNumError(err)
	case KindFloat32:
		v, err := strconv.ParseFloat(s, 32)
		return float32(v), unwrapNumError(err)
	case KindFloat64:
		v, err := strconv.ParseFloat(s, 64)
		return v, unwrapNumError(err)
	case KindNumeric:
		return parseNumeric(s)
	case KindBoolean:
		return parseBool(s)
	case KindDate, KindTimestamp, KindTimestampTZ:
		return d.parseTime(s)
	}
	return nil, fmt.Errorf("no parse rule for %s", d)
}

// Format renders a parsed value as the text PostgreSQL accepts on input.
// Callers handle nil (NULL) themselves.
func (d Directive) Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "t"
		}
		return "f"
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case pgtype.Numeric:
		return formatNumeric(x)
	case time.Time:
		switch d.Kind {
		case KindDate:
			return x.Format(dateFormat)
		case KindTimestamp:
			return x.Format(timestampFormat)
		default:
			return x.Format(timestampTZFormat)
		}
	default:
		return fmt.Sprint(v)
	}
}

func (d Directive) parseTime(s string) (any, error) {
	loc := time.UTC
	if d.Kind == KindTimestampTZ && d.loc != nil {
		loc = d.loc
	}
	for _, layout := range d.timeLayouts() {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if d.Kind == KindTimestampTZ {
			return t.UTC(), nil
		}
		return t, nil
	}
	return nil, errInvalidTemporal
}

func parseBool(s string) (any, error) {
	switch strings.ToLower(s) {
	case "t", "true", "y", "yes", "on", "1":
		return true, nil
	case "f", "false", "n", "no", "off", "0":
		return false, nil
	}
	return nil, errInvalidBoolean
}

// PostgreSQL numeric limits: digits before and after the decimal point.
const (
	maxNumericIntDigits = 131072
	maxNumericScale     = 16383
)

// parseNumeric builds an exact pgtype.Numeric from decimal text with an
// optional exponent. NaN and the infinities are accepted as PostgreSQL does.
// Values outside the numeric type's range are rejected.
func parseNumeric(s string) (any, error) {
	switch strings.ToLower(s) {
	case "nan":
		return pgtype.Numeric{NaN: true, Valid: true}, nil
	case "infinity", "+infinity", "inf", "+inf":
		return pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true}, nil
	case "-infinity", "-inf":
		return pgtype.Numeric{InfinityModifier: pgtype.NegativeInfinity, Valid: true}, nil
	}

	mantissa, exp := s, int64(0)
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		e, err := strconv.ParseInt(s[i+1:], 10, 32)
		if err != nil {
			return nil, errInvalidNumeric
		}
		mantissa, exp = s[:i], e
	}

	sign := ""
	if mantissa != "" && (mantissa[0] == '-' || mantissa[0] == '+') {
		sign, mantissa = mantissa[:1], mantissa[1:]
	}

	intPart, fracPart, _ := strings.Cut(mantissa, ".")
	if intPart == "" && fracPart == "" || !allDigits(intPart) || !allDigits(fracPart) {
		return nil, errInvalidNumeric
	}

	n, ok := new(big.Int).SetString(sign+intPart+fracPart, 10)
	if !ok {
		return nil, errInvalidNumeric
	}

	// exp fits in int32 and fracPart is bounded by the cell, so int64 cannot wrap.
	exp -= int64(len(fracPart))
	significant := int64(len(strings.TrimLeft(intPart+fracPart, "0")))
	switch {
	case significant == 0 && exp > 0:
		exp = 0
	case significant > 0 && significant+exp > maxNumericIntDigits:
		return nil, errInvalidNumeric
	}
	if exp < -maxNumericScale {
		return nil, errInvalidNumeric
	}
	return pgtype.Numeric{Int: n, Exp: int32(exp), Valid: true}, nil
}

func formatNumeric(n pgtype.Numeric) string {
	switch {
	case !n.Valid:
		return ""
	case n.NaN:
		return "NaN"
	case n.InfinityModifier == pgtype.Infinity:
		return "Infinity"
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return "-Infinity"
	case n.Int == nil:
		return "0"
	}

	digits := new(big.Int).Abs(n.Int).String()
	sign := ""
	if n.Int.Sign() < 0 {
		sign = "-"
	}

	exp := int(n.Exp)
	switch {
	case exp >= 0:
		return sign + digits + strings.Repeat("0", exp)
	case len(digits) > -exp:
		cut := len(digits) + exp
		return sign + digits[:cut] + "." + digits[cut:]
	default:
		return sign + "0." + strings.Repeat("0", -exp-len(digits)) + digits
	}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// unwrapNumError drops the strconv wrapper so CellParseError does not
// repeat the raw value.
func unwrapNumError(err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return numErr.Err
	}
	return err
}
