// Package shared provides small cross-cutting helpers.
package shared

import "strings"

// IsSQLiteConflictError reports whether the error is a SQLITE_BUSY or
// "database is locked" error. Both are transient concurrency failures that
// warrant a retry; they show up when a command lane and the weekly reset job
// write user records at the same time.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
