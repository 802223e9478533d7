//go:build sqlite && !postgres

package main

import (
	"pokedex/internal/audit"
	"pokedex/internal/observability"
)

const defaultSQLiteDSN = "file:pokedex.db?cache=shared"

// selectLookupLogger returns a SQLite-backed lookup log when built with the
// 'sqlite' tag. Configure with POKEDEX_LOOKUP_LOG_DSN.
func selectLookupLogger(logger observability.Logger, dsn string) audit.LookupLogger {
	if dsn == "" {
		dsn = defaultSQLiteDSN
	}
	ll, err := audit.NewSQLiteLookupLogger(dsn)
	if err != nil {
		logger.Error("sqlite lookup log init failed; falling back to memory", "error", err)
		return audit.NewMemoryLookupLogger()
	}
	logger.Info("using sqlite lookup log", "dsn", dsn)
	return ll
}
