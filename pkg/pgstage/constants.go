package pgstage

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Load committed (or check passed)
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration
	ExitConnectionError = 11 // Failed to connect to database
	ExitSchemaNotFound  = 12 // Target table missing or not visible
	ExitColumnMismatch  = 13 // Source file width differs from target table
	ExitCellParseError  = 14 // A field could not be coerced to its column type
	ExitLoadFailed      = 15 // Database rejected staging, promotion or commit
	ExitUnmappedType    = 16 // Target table has a column type with no parsing directive
)

const (
	// DefaultBatchSize is the number of data rows read and staged per batch.
	DefaultBatchSize = 100_000

	// DefaultProgressInterval reports progress every N batches.
	DefaultProgressInterval = 10

	// DefaultSchema is the catalog schema searched for target tables.
	DefaultSchema = "public"

	// DefaultFileExtension selects which files in the input directory are loaded.
	DefaultFileExtension = ".csv"

	// DefaultDelimiter separates fields in source files.
	DefaultDelimiter = ','

	// StagingTablePrefix is prepended to the target table name to name its staging relation.
	StagingTablePrefix = "staging_"

	// DefaultCheckParallelism bounds concurrent file validation in check mode.
	DefaultCheckParallelism = 4

	// DefaultRollbackTimeout bounds the rollback issued after a failed run.
	// Rollback runs on a context detached from the run's cancellation.
	DefaultRollbackTimeout = 30 * time.Second

	// DefaultAppName is reported to PostgreSQL as application_name.
	DefaultAppName = "pgstage"

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of connection retry attempts.
	DefaultRetryMaxAttempts = 3

	// MaxRawValuePreview caps how much of an offending field is echoed in error messages.
	MaxRawValuePreview = 80
)
