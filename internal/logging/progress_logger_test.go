package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

func TestProgressLogger_Lifecycle(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressLogger(NewConsoleLoggerTo(&buf, true))

	files := []pgstage.SourceFile{
		{Name: "a.csv", Table: "a"},
		{Name: "b.csv", Table: "b"},
	}
	schema := pgstage.TableSchema{Schema: "public", Table: "b", Columns: make([]pgstage.Column, 3)}

	p.RunStarted(uuid.New(), files)
	p.FileStarted(1, files[1], schema)
	p.Progress(files[1], 10, 1000)
	p.FileFinished(pgstage.FileResult{
		File:         files[1],
		RowsPromoted: 1000,
		Checksum:     "abc123",
		Duration:     1500 * time.Millisecond,
		Unmapped:     []pgstage.Column{{Name: "doc", DeclaredType: "jsonb"}},
	})
	p.RunFinished(pgstage.RunOutcome{State: pgstage.RunCommitted})

	out := buf.String()
	assert.Contains(t, out, "Found 2 file(s) to load")
	assert.Contains(t, out, "[2/2] Loading b.csv into public.b (3 columns)")
	assert.Contains(t, out, "b.csv: 1000 rows staged in 10 batch(es)")
	assert.Contains(t, out, "✓ b.csv: 1000 rows promoted (1.5s)")
	assert.Contains(t, out, "sha256 abc123")
	assert.Contains(t, out, "column doc has unmapped type jsonb")
	assert.Contains(t, out, "finished: committed")
}

func TestProgressLogger_NoFiles(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressLogger(NewConsoleLoggerTo(&buf, false))

	p.RunStarted(uuid.New(), nil)
	p.RunFinished(pgstage.RunOutcome{State: pgstage.RunRolledBack, Err: errors.New("x")})

	assert.Equal(t, "No input files found\n", buf.String())
	assert.False(t, strings.Contains(buf.String(), "Found"))
}

func TestNewProgressLogger_PanicsOnNil(t *testing.T) {
	assert.PanicsWithValue(t, "logger cannot be nil", func() {
		NewProgressLogger(nil)
	})
}
