package typemap

import (
	"time"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// Options configure how a Mapper builds plans.
type Options struct {
	// AllowUnmapped passes columns of unrecognised types through as text
	// instead of rejecting the table.
	AllowUnmapped bool

	// TemporalLayouts are tried after the default layouts for date and
	// timestamp columns.
	TemporalLayouts []string

	// Location interprets timestamptz values that carry no offset.
	// Nil means UTC.
	Location *time.Location
}

// Plan is the ordered list of directives for one table.
type Plan struct {
	Schema     pgstage.TableSchema
	Directives []Directive
	Unmapped   []pgstage.Column
}

// Len returns the number of columns in the plan.
func (p Plan) Len() int {
	return len(p.Directives)
}

// HasUnmapped reports whether any column fell back to an Unmapped directive.
func (p Plan) HasUnmapped() bool {
	return len(p.Unmapped) > 0
}

// Mapper builds Plans from table schemas.
type Mapper struct {
	opts Options
}

// NewMapper creates a Mapper.
func NewMapper(opts Options) *Mapper {
	return &Mapper{opts: opts}
}

// Build returns the directives for every column of schema in positional order.
// Unless AllowUnmapped is set, a schema with unrecognised column types
// fails with *pgstage.UnmappedTypeError.
func (m *Mapper) Build(schema pgstage.TableSchema) (Plan, error) {
	plan := Plan{
		Schema:     schema,
		Directives: make([]Directive, len(schema.Columns)),
	}

	for i, col := range schema.Columns {
		d := For(col).WithLayouts(m.opts.TemporalLayouts).WithLocation(m.opts.Location)
		if !d.Mapped() {
			plan.Unmapped = append(plan.Unmapped, col)
		}
		plan.Directives[i] = d
	}

	if plan.HasUnmapped() && !m.opts.AllowUnmapped {
		return plan, &pgstage.UnmappedTypeError{Table: schema.Table, Columns: plan.Unmapped}
	}
	return plan, nil
}
