package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks an error from a catalog source as safe to retry.
type TransientError struct {
	Err    error
	Source string
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable, recording the source that failed.
func NewTransientError(err error, source string) *TransientError {
	return &TransientError{Err: err, Source: source}
}

// transientPatterns match driver errors that only surface as text: SQLite
// lock contention from modernc.org/sqlite and dropped connections from pgx.
var transientPatterns = []string{
	"database is locked",
	"database table is locked",
	"sqlite_busy",
	"connection reset by peer",
	"broken pipe",
	"i/o timeout",
	"unexpected eof",
	"conn closed",
	"too many clients",
	"the database system is starting up",
	"temporary failure in name resolution",
}

// IsTransient reports whether err, or anything in its chain, is worth
// retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EAGAIN) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
