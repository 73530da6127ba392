package logging

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// ProgressLogger reports run lifecycle events through a pgstage.Logger.
type ProgressLogger struct {
	logger pgstage.Logger

	mu    sync.Mutex
	total int
}

// NewProgressLogger creates an observer that logs through logger.
// Panics if logger is nil.
func NewProgressLogger(logger pgstage.Logger) *ProgressLogger {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ProgressLogger{logger: logger}
}

var _ pgstage.Observer = (*ProgressLogger)(nil)

func (p *ProgressLogger) RunStarted(runID uuid.UUID, files []pgstage.SourceFile) {
	p.mu.Lock()
	p.total = len(files)
	p.mu.Unlock()

	p.logger.Verbose("Run %s started", runID)
	if len(files) == 0 {
		p.logger.Info("No input files found")
		return
	}
	p.logger.Info("Found %d file(s) to load", len(files))
}

func (p *ProgressLogger) FileStarted(index int, file pgstage.SourceFile, schema pgstage.TableSchema) {
	p.mu.Lock()
	total := p.total
	p.mu.Unlock()

	p.logger.Info("[%d/%d] Loading %s into %s.%s (%d columns)", index+1, total, file.Name, schema.Schema, schema.Table, schema.Len())
}

func (p *ProgressLogger) Progress(file pgstage.SourceFile, batches int, rows int64) {
	p.logger.Info("  %s: %d rows staged in %d batch(es)", file.Name, rows, batches)
}

func (p *ProgressLogger) FileFinished(result pgstage.FileResult) {
	p.logger.Info("✓ %s: %d rows promoted (%s)", result.File.Name, result.RowsPromoted, result.Duration.Round(time.Millisecond))
	p.logger.Verbose("  sha256 %s", result.Checksum)
	for _, col := range result.Unmapped {
		p.logger.Info("  column %s has unmapped type %s and was loaded as text", col.Name, col.DeclaredType)
	}
}

func (p *ProgressLogger) RunFinished(outcome pgstage.RunOutcome) {
	p.logger.Verbose("Run %s finished: %s after %s", outcome.RunID, outcome.State, outcome.Duration().Round(time.Millisecond))
}
