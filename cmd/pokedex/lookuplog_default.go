//go:build !sqlite && !postgres

package main

import (
	"pokedex/internal/audit"
	"pokedex/internal/observability"
)

// selectLookupLogger returns the in-memory lookup log when built without the
// 'sqlite' or 'postgres' tags. A configured DSN only earns a hint.
func selectLookupLogger(logger observability.Logger, dsn string) audit.LookupLogger {
	if dsn != "" {
		logger.Warn("lookup log DSN set, but binary not built with -tags sqlite or -tags postgres; using in-memory lookup log")
	}
	return audit.NewMemoryLookupLogger()
}
