// Package logging provides implementations of pgstage.Logger and a
// logging pgstage.Observer.
//
// Available implementations:
//   - ConsoleLogger: plain lines on stderr, [VERBOSE]/[ERROR] prefixes
//   - StructuredLogger: zerolog JSON or console output with run correlation
//   - NullLogger: discards everything (useful for testing)
//   - ProgressLogger: turns run lifecycle events into log lines
//
// All implementations are safe for concurrent use by multiple goroutines.
package logging
