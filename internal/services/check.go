package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/vvka-141/pgstage/internal/checksum"
	"github.com/vvka-141/pgstage/internal/files/filesystem"
	"github.com/vvka-141/pgstage/internal/files/reader"
	"github.com/vvka-141/pgstage/internal/typemap"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// querierFunc opens a read-only Querier and returns a release function.
type querierFunc func(ctx context.Context, connConfig *pgstage.ConnectionConfig) (pgstage.Querier, func(), error)

// FileCheck is the validation result for one input file.
type FileCheck struct {
	File     pgstage.SourceFile
	Columns  int
	Rows     int64
	Batches  int
	Unmapped []pgstage.Column
	Checksum string
	Err      error
}

// OK reports whether the file would load.
func (c FileCheck) OK() bool {
	return c.Err == nil
}

// CheckReport lists per-file validation results in input order.
type CheckReport struct {
	Files []FileCheck
}

// Failed returns the number of files that would not load.
func (r CheckReport) Failed() int {
	n := 0
	for _, f := range r.Files {
		if !f.OK() {
			n++
		}
	}
	return n
}

// TotalRows sums the data rows of files that passed.
func (r CheckReport) TotalRows() int64 {
	var total int64
	for _, f := range r.Files {
		if f.OK() {
			total += f.Rows
		}
	}
	return total
}

// CheckService validates input files against their target tables without
// writing anything. Files are checked concurrently on pooled connections.
type CheckService struct {
	sessions *SessionManager
	scanner  pgstage.FileScanner
	files    filesystem.FileSystemProvider
	schemas  pgstage.SchemaReader
	logger   pgstage.Logger
	connect  querierFunc
}

// NewCheckService creates a new CheckService.
//
// Panics if any dependency is nil.
func NewCheckService(
	sessions *SessionManager,
	scanner pgstage.FileScanner,
	files filesystem.FileSystemProvider,
	schemas pgstage.SchemaReader,
	logger pgstage.Logger,
) *CheckService {
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
	if logger == nil {
		panic("logger cannot be nil")
	}

	svc := &CheckService{
		sessions: sessions,
		scanner:  scanner,
		files:    files,
		schemas:  schemas,
		logger:   logger,
	}
	svc.connect = svc.defaultConnect
	return svc
}

func (s *CheckService) defaultConnect(ctx context.Context, connConfig *pgstage.ConnectionConfig) (pgstage.Querier, func(), error) {
	pool, err := s.sessions.Connect(ctx, connConfig)
	if err != nil {
		return nil, nil, err
	}
	return pool, pool.Close, nil
}

// Check reads every input file through the same schema lookup, planning
// and parsing a load would perform, with up to cfg.Parallelism files in
// flight. The returned error joins every per-file failure; the report
// is complete either way.
func (s *CheckService) Check(ctx context.Context, cfg pgstage.LoadConfig) (CheckReport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return CheckReport{}, err
	}

	files, err := s.scanner.ScanDirectory(cfg.InputDir, cfg.FileExtension)
	if err != nil {
		return CheckReport{}, fmt.Errorf("failed to scan %s: %w", cfg.InputDir, err)
	}
	if len(files) == 0 {
		s.logger.Info("Warning: no %s files found in %s", cfg.FileExtension, cfg.InputDir)
		return CheckReport{}, nil
	}

	q, release, err := s.connect(ctx, &cfg.Connection)
	if err != nil {
		return CheckReport{}, err
	}
	defer release()

	mapper := typemap.NewMapper(typemap.Options{
		AllowUnmapped:   cfg.AllowUnmapped,
		TemporalLayouts: cfg.TemporalLayouts,
		Location:        cfg.Location(),
	})

	report := CheckReport{Files: make([]FileCheck, len(files))}

	var g errgroup.Group
	g.SetLimit(cfg.Parallelism)
	for i, file := range files {
		g.Go(func() error {
			report.Files[i] = s.checkFile(ctx, q, mapper, cfg, file)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, fc := range report.Files {
		if fc.Err != nil {
			errs = append(errs, fc.Err)
		} else {
			s.logger.Verbose("✓ %s: %d rows ok", fc.File.Name, fc.Rows)
		}
	}
	return report, errors.Join(errs...)
}

func (s *CheckService) checkFile(ctx context.Context, q pgstage.Querier, mapper *typemap.Mapper, cfg pgstage.LoadConfig, file pgstage.SourceFile) FileCheck {
	fc := FileCheck{File: file}

	if err := ctx.Err(); err != nil {
		fc.Err = fmt.Errorf("%s: %w", file.Name, err)
		return fc
	}

	schema, err := s.schemas.ReadSchema(ctx, q, cfg.Schema, file.Table)
	if err != nil {
		fc.Err = err
		return fc
	}
	fc.Columns = schema.Len()

	plan, err := mapper.Build(schema)
	if err != nil {
		fc.Err = err
		return fc
	}
	fc.Unmapped = plan.Unmapped

	src, err := s.files.OpenFile(file.Path)
	if err != nil {
		fc.Err = fmt.Errorf("failed to open %s: %w", file.Path, err)
		return fc
	}
	defer src.Close()

	hashing := checksum.NewHashingReader(src)
	batches, err := reader.Open(hashing, file, plan, reader.Options{
		BatchSize: cfg.BatchSize,
		Delimiter: cfg.Delimiter,
		NoHeader:  cfg.NoHeader,
	})
	if err != nil {
		fc.Err = err
		return fc
	}

	for {
		if _, err := batches.Next(); err != nil {
			if !errors.Is(err, io.EOF) {
				fc.Err = err
			}
			break
		}
	}

	fc.Rows = batches.RowsRead()
	fc.Batches = batches.Batches()
	fc.Checksum = hashing.Sum()
	return fc
}

// Describe returns the mapping plan of each named table. Unmapped columns
// are reported in the plan rather than rejected.
func (s *CheckService) Describe(ctx context.Context, connConfig *pgstage.ConnectionConfig, schema string, tables []string, layouts []string) ([]typemap.Plan, error) {
	q, release, err := s.connect(ctx, connConfig)
	if err != nil {
		return nil, err
	}
	defer release()

	mapper := typemap.NewMapper(typemap.Options{AllowUnmapped: true, TemporalLayouts: layouts})

	plans := make([]typemap.Plan, 0, len(tables))
	for _, table := range tables {
		ts, err := s.schemas.ReadSchema(ctx, q, schema, table)
		if err != nil {
			return nil, err
		}
		plan, err := mapper.Build(ts)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}
