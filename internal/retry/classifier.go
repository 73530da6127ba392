package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// SQLSTATEs that mean "try connecting again later".
// See https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgCodeTooManyConnections = "53300"
	pgCodeCannotConnectNow   = "57P03"
	pgCodeAdminShutdown      = "57P01"
)

// ConnectClassifier decides whether a failed connection attempt is worth
// repeating. Authentication failures, missing databases and cancellation
// are fatal; refused, reset or overloaded servers are transient.
type ConnectClassifier struct{}

// NewConnectClassifier creates a ConnectClassifier.
func NewConnectClassifier() *ConnectClassifier {
	return &ConnectClassifier{}
}

var _ pgstage.ErrorClassifier = (*ConnectClassifier)(nil)

// IsTransient reports whether err is likely to clear up on its own.
func (c *ConnectClassifier) IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeTooManyConnections, pgCodeCannotConnectNow, pgCodeAdminShutdown:
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08")
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"server closed the connection",
		"the database system is starting up",
		"too many connections",
		"unexpected eof",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
