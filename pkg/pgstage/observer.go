package pgstage

import "github.com/google/uuid"

// Observer receives run lifecycle events. Implementations drive progress
// output (console log lines or an interactive view) and must not block.
type Observer interface {
	RunStarted(runID uuid.UUID, files []SourceFile)
	FileStarted(index int, file SourceFile, schema TableSchema)
	// Progress is called every ProgressInterval batches with cumulative counts.
	Progress(file SourceFile, batches int, rows int64)
	FileFinished(result FileResult)
	RunFinished(outcome RunOutcome)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) RunStarted(uuid.UUID, []SourceFile) {}

func (NopObserver) FileStarted(int, SourceFile, TableSchema) {}

func (NopObserver) Progress(SourceFile, int, int64) {}

func (NopObserver) FileFinished(FileResult) {}

func (NopObserver) RunFinished(RunOutcome) {}

var _ Observer = NopObserver{}
