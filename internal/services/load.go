package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/pgstage/internal/checksum"
	"github.com/vvka-141/pgstage/internal/files/filesystem"
	"github.com/vvka-141/pgstage/internal/files/reader"
	"github.com/vvka-141/pgstage/internal/typemap"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// txBeginner is the part of *pgxpool.Conn the coordinator needs.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// connectFunc opens the run's connection and returns a release function.
type connectFunc func(ctx context.Context, connConfig *pgstage.ConnectionConfig) (txBeginner, func(), error)

// LoadService is the promotion coordinator: it drives every input file
// through schema lookup, planning, staging and promotion inside one
// transaction, and commits only when every file succeeded.
//
// Thread-Safety: NOT safe for concurrent Run() calls on the same instance.
// Create separate instances for concurrent loads.
type LoadService struct {
	sessions pgstage.SessionOpener
	scanner  pgstage.FileScanner
	files    filesystem.FileSystemProvider
	schemas  pgstage.SchemaReader
	stager   pgstage.Stager
	observer pgstage.Observer
	logger   pgstage.Logger
	connect  connectFunc
	now      func() time.Time
}

// NewLoadService creates a new LoadService with all dependencies injected.
//
// Panics on nil dependencies. Runtime conditions (missing tables, bad data,
// database rejections) are reported through the returned RunOutcome.
func NewLoadService(
	sessions pgstage.SessionOpener,
	scanner pgstage.FileScanner,
	files filesystem.FileSystemProvider,
	schemas pgstage.SchemaReader,
	stager pgstage.Stager,
	observer pgstage.Observer,
	logger pgstage.Logger,
) *LoadService {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if scanner == nil {
		panic("scanner cannot be nil")
	}
	if files == nil {
		panic("files cannot be nil")
	}
	if schemas == nil {
		panic("schemas cannot be nil")
	}
	if stager == nil {
		panic("stager cannot be nil")
	}
	if observer == nil {
		panic("observer cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	svc := &LoadService{
		sessions: sessions,
		scanner:  scanner,
		files:    files,
		schemas:  schemas,
		stager:   stager,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
	svc.connect = svc.defaultConnect
	return svc
}

func (s *LoadService) defaultConnect(ctx context.Context, connConfig *pgstage.ConnectionConfig) (txBeginner, func(), error) {
	session, err := s.sessions.OpenSession(ctx, connConfig)
	if err != nil {
		return nil, nil, err
	}
	return session.Conn(), func() { _ = session.Close() }, nil
}

// Run loads every input file under a fresh run ID.
func (s *LoadService) Run(ctx context.Context, cfg pgstage.LoadConfig) pgstage.RunOutcome {
	return s.RunWithID(ctx, uuid.New(), cfg)
}

// RunWithID loads every input file in name order inside one transaction.
//
// The outcome is Committed only if every file was staged and promoted and
// the commit succeeded. On the first failure the transaction is rolled back
// exactly once and the outcome carries a *pgstage.RunError naming the file
// and stage. No retries happen inside a run.
func (s *LoadService) RunWithID(ctx context.Context, runID uuid.UUID, cfg pgstage.LoadConfig) pgstage.RunOutcome {
	outcome := pgstage.RunOutcome{
		RunID:     runID,
		State:     pgstage.RunRunning,
		StartedAt: s.now(),
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return s.finish(outcome, &pgstage.RunError{Stage: pgstage.StageValidate, Err: err})
	}

	s.logger.Verbose("Run %s: loading %s into schema %s", runID, cfg.InputDir, cfg.Schema)

	files, err := s.scanner.ScanDirectory(cfg.InputDir, cfg.FileExtension)
	if err != nil {
		return s.finish(outcome, &pgstage.RunError{Stage: pgstage.StageScan, Err: err})
	}
	s.observer.RunStarted(runID, files)

	if len(files) == 0 {
		s.logger.Info("Warning: no %s files found in %s; nothing to load", cfg.FileExtension, cfg.InputDir)
		return s.finish(outcome, nil)
	}

	conn, release, err := s.connect(ctx, &cfg.Connection)
	if err != nil {
		return s.finish(outcome, &pgstage.RunError{Stage: pgstage.StageConnect, Err: err})
	}
	defer release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return s.finish(outcome, &pgstage.RunError{
			Stage: pgstage.StageBegin,
			Err:   fmt.Errorf("failed to begin transaction: %w: %w", pgstage.ErrLoadFailed, err),
		})
	}

	targets, fileIndex, err := s.resolveTargets(ctx, tx, cfg, files)
	if err != nil {
		s.rollback(ctx, tx)
		file := files[fileIndex]
		return s.finish(outcome, &pgstage.RunError{
			File:      file.Name,
			Table:     file.Table,
			FileIndex: fileIndex,
			Stage:     pgstage.StageSchema,
			Err:       err,
		})
	}

	for i, file := range files {
		result, stage, err := s.loadFile(ctx, tx, targets[i], cfg, i, file)
		if err != nil {
			s.rollback(ctx, tx)
			return s.finish(outcome, &pgstage.RunError{
				File:      file.Name,
				Table:     file.Table,
				FileIndex: i,
				Stage:     stage,
				Err:       err,
			})
		}
		outcome.Files = append(outcome.Files, result)
		s.observer.FileFinished(result)
	}

	// A failed COMMIT already ends the transaction server-side.
	if err := tx.Commit(ctx); err != nil {
		return s.finish(outcome, &pgstage.RunError{
			Stage: pgstage.StageCommit,
			Err:   fmt.Errorf("failed to commit: %w: %w", pgstage.ErrLoadFailed, err),
		})
	}

	return s.finish(outcome, nil)
}

// resolveTargets reads the target schema of every file and builds its plan
// before anything is staged, so a missing table or an unmapped type aborts
// the run with no COPY issued. On error it also returns the failing file's
// index.
func (s *LoadService) resolveTargets(
	ctx context.Context,
	q pgstage.Querier,
	cfg pgstage.LoadConfig,
	files []pgstage.SourceFile,
) ([]typemap.Plan, int, error) {
	mapper := typemap.NewMapper(typemap.Options{
		AllowUnmapped:   cfg.AllowUnmapped,
		TemporalLayouts: cfg.TemporalLayouts,
		Location:        cfg.Location(),
	})

	plans := make([]typemap.Plan, len(files))
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, i, fmt.Errorf("cancelled before %s: %w", file.Name, err)
		}

		schema, err := s.schemas.ReadSchema(ctx, q, cfg.Schema, file.Table)
		if err != nil {
			return nil, i, err
		}

		plan, err := mapper.Build(schema)
		if err != nil {
			return nil, i, err
		}
		for _, col := range plan.Unmapped {
			s.logger.Info("Column %s.%s has unmapped type %s; the server will parse it as text", file.Table, col.Name, col.DeclaredType)
		}
		plans[i] = plan
	}

	s.logger.Verbose("Resolved %d target table(s)", len(plans))
	return plans, 0, nil
}

// loadFile stages and promotes one file against its resolved plan. On error
// it returns the stage that failed; the caller owns the rollback.
func (s *LoadService) loadFile(
	ctx context.Context,
	tx pgx.Tx,
	plan typemap.Plan,
	cfg pgstage.LoadConfig,
	index int,
	file pgstage.SourceFile,
) (pgstage.FileResult, pgstage.Stage, error) {
	started := s.now()
	result := pgstage.FileResult{File: file, Unmapped: plan.Unmapped}
	schema := plan.Schema

	if err := ctx.Err(); err != nil {
		return result, pgstage.StageOpenStaging, fmt.Errorf("cancelled before %s: %w", file.Name, err)
	}

	s.observer.FileStarted(index, file, schema)

	src, err := s.files.OpenFile(file.Path)
	if err != nil {
		return result, pgstage.StageRead, fmt.Errorf("failed to open %s: %w", file.Path, err)
	}
	defer src.Close()

	hashing := checksum.NewHashingReader(src)
	batches, err := reader.Open(hashing, file, plan, reader.Options{
		BatchSize: cfg.BatchSize,
		Delimiter: cfg.Delimiter,
		NoHeader:  cfg.NoHeader,
	})
	if err != nil {
		return result, pgstage.StageRead, err
	}

	rel, err := s.stager.OpenStaging(ctx, tx, schema)
	if err != nil {
		return result, pgstage.StageOpenStaging, err
	}

	var staged int64
	for {
		batch, err := batches.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, pgstage.StageRead, err
		}

		n, err := s.stager.AppendBatch(ctx, tx, rel, batch)
		if err != nil {
			return result, pgstage.StageAppend, err
		}
		staged += n
		result.Batches++

		if batch.Index%cfg.ProgressInterval == 0 {
			s.observer.Progress(file, result.Batches, staged)
		}
	}
	result.RowsRead = batches.RowsRead()

	promoted, err := s.stager.Promote(ctx, tx, rel)
	if err != nil {
		return result, pgstage.StagePromote, err
	}
	if promoted != staged {
		return result, pgstage.StagePromote, fmt.Errorf("%s: promoted %d rows but staged %d: %w", file.Name, promoted, staged, pgstage.ErrLoadFailed)
	}
	result.RowsPromoted = promoted

	if err := s.stager.DropStaging(ctx, tx, rel); err != nil {
		return result, pgstage.StagePromote, err
	}

	result.Checksum = hashing.Sum()
	result.Duration = s.now().Sub(started)
	return result, pgstage.StagePromote, nil
}

// rollback runs on a context detached from the run's cancellation so an
// interrupted run still releases its transaction promptly.
func (s *LoadService) rollback(ctx context.Context, tx pgx.Tx) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pgstage.DefaultRollbackTimeout)
	defer cancel()

	if err := tx.Rollback(rbCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.logger.Error("Rollback failed: %v", err)
		return
	}
	s.logger.Verbose("Transaction rolled back")
}

func (s *LoadService) finish(outcome pgstage.RunOutcome, err error) pgstage.RunOutcome {
	outcome.FinishedAt = s.now()
	if err != nil {
		outcome.State = pgstage.RunRolledBack
		outcome.Err = err
		outcome.Files = nil
	} else {
		outcome.State = pgstage.RunCommitted
		if len(outcome.Files) > 0 {
			s.logger.Info("✓ Committed %d rows from %d file(s)", outcome.TotalRows(), len(outcome.Files))
		}
	}

	s.observer.RunFinished(outcome)
	return outcome
}
