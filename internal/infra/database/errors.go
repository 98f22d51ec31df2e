package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

// ErrNoDatabaseURL is a configuration error: the store address is unset.
var ErrNoDatabaseURL = errors.New("DATABASE_URL is not set")

// ErrStoreUnavailable wraps connection failures and timeouts. Not retried here.
var ErrStoreUnavailable = errors.New("store unavailable")

// Lookup misses. Callers branch on these with errors.Is.
var ErrReportNotFound = fmt.Errorf("report not found")
var ErrDirectoryEntryNotFound = fmt.Errorf("directory entry not found")
var ErrGroupConfigNotFound = fmt.Errorf("group config not found")
var ErrSettingNotFound = fmt.Errorf("setting not found")

func wrapErr(msg string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", msg, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Class() == "08" { // connection_exception
			return true
		}
		switch pqErr.Code {
		case "57014", "57P01", "57P02", "57P03": // query_canceled (statement timeout), shutdown variants
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
