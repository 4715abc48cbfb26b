package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// TransientError marks an error as safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// Postgres SQLSTATE classes worth retrying.
var transientSQLStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"57P03": true, // cannot_connect_now
	"08000": true, // connection_exception
	"08003": true, // connection_does_not_exist
	"08006": true, // connection_failure
}

// IsTransient reports whether err is worth retrying: an explicit
// TransientError, a network timeout or refused connection, a retryable
// Postgres SQLSTATE, or a busy SQLite database.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientSQLStates[pgErr.Code]
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"database is locked",
		"sqlite_busy",
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
