package pgstage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunState is the lifecycle of one ingestion run.
// Idle -> Running -> {Committed | RolledBack}; Running is the only non-terminal state.
type RunState int

const (
	RunIdle RunState = iota
	RunRunning
	RunCommitted
	RunRolledBack
)

func (s RunState) String() string {
	switch s {
	case RunIdle:
		return "idle"
	case RunRunning:
		return "running"
	case RunCommitted:
		return "committed"
	case RunRolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s RunState) IsTerminal() bool {
	return s == RunCommitted || s == RunRolledBack
}

// Stage identifies where inside a run a failure happened.
type Stage int

const (
	StageValidate Stage = iota
	StageScan
	StageConnect
	StageBegin
	StageSchema
	StageOpenStaging
	StageRead
	StageAppend
	StagePromote
	StageCommit
)

func (s Stage) String() string {
	switch s {
	case StageValidate:
		return "validate"
	case StageScan:
		return "scan"
	case StageConnect:
		return "connect"
	case StageBegin:
		return "begin"
	case StageSchema:
		return "schema lookup"
	case StageOpenStaging:
		return "open staging"
	case StageRead:
		return "read"
	case StageAppend:
		return "staging append"
	case StagePromote:
		return "promotion"
	case StageCommit:
		return "commit"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// FileResult records what one source file contributed to a run.
type FileResult struct {
	File         SourceFile
	Batches      int
	RowsRead     int64
	RowsPromoted int64
	Checksum     string // hex SHA-256 of the bytes read
	Unmapped     []Column
	Duration     time.Duration
}

// RunOutcome is the result of one run: either Committed with per-file
// counts, or RolledBack with the originating error.
type RunOutcome struct {
	RunID      uuid.UUID
	State      RunState
	Files      []FileResult
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Committed reports whether every file's rows became durable.
func (o RunOutcome) Committed() bool {
	return o.State == RunCommitted
}

// TotalRows sums rows promoted across all files.
func (o RunOutcome) TotalRows() int64 {
	var total int64
	for _, f := range o.Files {
		total += f.RowsPromoted
	}
	return total
}

// Duration returns the wall-clock time of the run.
func (o RunOutcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}
