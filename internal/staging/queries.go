package staging

// SQL templates. Identifiers are always pgx.Identifier.Sanitize()d before
// being substituted.
const (
	// sqlDropStaging removes a staging table if it exists.
	// %s: sanitized staging identifier
	sqlDropStaging = `DROP TABLE IF EXISTS %s`

	// sqlCreateStaging creates an empty staging table shaped like its target.
	// ON COMMIT DROP ties its lifetime to the run's transaction.
	// %s: sanitized staging table name (unqualified), %s: sanitized target
	sqlCreateStaging = `CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS INCLUDING CONSTRAINTS) ON COMMIT DROP`

	// sqlCopyCSV streams CSV text into the staging table.
	// Unquoted empty fields are NULL; quoted empty fields are empty strings.
	// %s: sanitized staging identifier, %s: sanitized column list
	sqlCopyCSV = `COPY %s (%s) FROM STDIN WITH (FORMAT csv)`

	// sqlPromote moves every staged row into the target in one statement.
	// %s: sanitized target, %s: column list, %s: column list, %s: sanitized staging identifier
	sqlPromote = `INSERT INTO %s (%s) SELECT %s FROM %s`
)
