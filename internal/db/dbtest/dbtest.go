// Package dbtest opens throwaway in-memory databases for service tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/sebuszqo/ExpenseTracker/internal/config"
	database "github.com/sebuszqo/ExpenseTracker/internal/db"
	"github.com/stretchr/testify/require"
)

func New(t testing.TB) *database.DBService {
	t.Helper()

	dbService, err := database.NewDBService(context.Background(), config.DatabaseConfig{
		Driver: database.DriverSQLite,
		URL:    ":memory:",
	}, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = dbService.Close()
	})
	return dbService
}
