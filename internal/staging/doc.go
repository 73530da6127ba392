// Package staging lands parsed batches in session-scoped staging tables and
// promotes them to their targets.
//
// A staging table is created in pg_temp with the target's columns, defaults
// and check constraints, so promotion is a plain projection with no casts.
// Batches are written with COPY: the binary protocol when every column has a
// typed directive, CSV text otherwise so the server parses the unmapped
// columns itself. Nothing here commits or rolls back; the caller owns the
// transaction.
package staging
