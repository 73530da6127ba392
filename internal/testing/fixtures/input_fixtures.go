package fixtures

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/vvka-141/pgstage/internal/files/filesystem"
)

// InputRoot is the directory every fixture's files live under.
const InputRoot = "/input"

// InputFixtureBuilder provides a fluent API for building in-memory input
// directories of delimited files.
//
// Example usage:
//
//	fs := NewInputFixtureBuilder().
//	    AddCSV("a", []string{"id", "name"}, []string{"1", "x"}).
//	    AddRows("orders", []string{"id"}, 2500, func(i int) []string {
//	        return []string{strconv.Itoa(i)}
//	    }).
//	    Build()
type InputFixtureBuilder struct {
	files map[string]string // name -> content
}

// NewInputFixtureBuilder creates an empty fixture builder.
func NewInputFixtureBuilder() *InputFixtureBuilder {
	return &InputFixtureBuilder{files: make(map[string]string)}
}

// AddFile adds a file with raw content, relative to InputRoot.
func (b *InputFixtureBuilder) AddFile(name, content string) *InputFixtureBuilder {
	b.files[name] = content
	return b
}

// AddCSV adds <table>.csv with a header row followed by rows.
// A nil header writes data rows only.
func (b *InputFixtureBuilder) AddCSV(table string, header []string, rows ...[]string) *InputFixtureBuilder {
	return b.AddRows(table, header, len(rows), func(i int) []string { return rows[i] })
}

// AddRows adds <table>.csv with n generated rows; row receives the
// zero-based row index.
func (b *InputFixtureBuilder) AddRows(table string, header []string, n int, row func(i int) []string) *InputFixtureBuilder {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if header != nil {
		w.Write(header) //nolint:errcheck
	}
	for i := 0; i < n; i++ {
		w.Write(row(i)) //nolint:errcheck
	}
	w.Flush()

	b.files[table+".csv"] = buf.String()
	return b
}

// Build generates the in-memory filesystem rooted at InputRoot.
func (b *InputFixtureBuilder) Build() *filesystem.MemoryFileSystem {
	fs := filesystem.NewMemoryFileSystem(InputRoot)
	for name, content := range b.files {
		fs.AddFile(name, content)
	}
	return fs
}

// ============================================================================
// Pre-built Fixtures
// ============================================================================

// OrdersTableDDL creates the target table used by Orders.
const OrdersTableDDL = `CREATE TABLE public.orders (
	id        integer NOT NULL,
	total     numeric(12,2),
	placed_at timestamp without time zone
)`

// Orders creates orders.csv with n rows matching OrdersTableDDL.
// Row i has id i+1, total (i+1)*1.25 and a placed_at one minute apart.
func Orders(n int) *InputFixtureBuilder {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return NewInputFixtureBuilder().
		AddRows("orders", []string{"id", "total", "placed_at"}, n, func(i int) []string {
			id := i + 1
			return []string{
				strconv.Itoa(id),
				fmt.Sprintf("%d.%02d", id*125/100, id*125%100),
				base.Add(time.Duration(i) * time.Minute).Format("2006-01-02 15:04:05"),
			}
		})
}

// PairTablesDDL creates the targets used by PairWithBadRow.
const PairTablesDDL = `
	CREATE TABLE public.a (id integer NOT NULL, name text);
	CREATE TABLE public.b (id integer NOT NULL, name text);
`

// PairWithBadRow creates a.csv with valid rows and b.csv whose badRow-th
// data row (1-based) has a non-numeric id.
func PairWithBadRow(rows, badRow int) *InputFixtureBuilder {
	valid := func(i int) []string { return []string{strconv.Itoa(i + 1), "row-" + strconv.Itoa(i+1)} }
	return NewInputFixtureBuilder().
		AddRows("a", []string{"id", "name"}, rows, valid).
		AddRows("b", []string{"id", "name"}, rows, func(i int) []string {
			if i == badRow-1 {
				return []string{"abc", "broken"}
			}
			return valid(i)
		})
}
