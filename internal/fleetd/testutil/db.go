// Package testutil provides helpers for tests that need a real PostgreSQL
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/piragazh/feasto-signage/internal/fleetd/migrations"
)

// Session parameters for test database configuration
const (
	defaultTransactionIsolation = "'read committed'"
	defaultStatementTimeout     = "'5s'"
	defaultLockTimeout          = "'1s'"
)

// SetupTestDB creates a throwaway database with every migration applied.
// The test is skipped unless TEST_DATABASE_URL points at a server.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	baseURL := os.Getenv("TEST_DATABASE_URL")
	if baseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	adminDB, err := tryConnect(t, baseURL)
	require.NoError(t, err, "Failed to connect to postgres database")
	defer adminDB.Close()

	dbName := fmt.Sprintf("fleet_test_%d", time.Now().UnixNano())
	_, err = adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName))
	require.NoError(t, err)

	testURL, err := withDatabase(baseURL, dbName)
	require.NoError(t, err)
	db, err := tryConnect(t, testURL)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	require.NoError(t, configureTestSession(db))
	require.NoError(t, migrations.NewManager(db, zerolog.Nop()).Apply(context.Background()))

	t.Cleanup(func() {
		if cerr := db.Close(); cerr != nil {
			t.Logf("Error closing test database connection: %v", cerr)
		}

		adminDB, err := sql.Open("postgres", baseURL)
		if err != nil {
			t.Logf("Error connecting to drop test database: %v", err)
			return
		}
		defer adminDB.Close()

		_, err = adminDB.Exec(fmt.Sprintf("SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = '%s'", dbName))
		if err != nil {
			t.Logf("Error terminating connections to test database: %v", err)
		}
		if _, err = adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName)); err != nil {
			t.Logf("Error dropping test database: %v", err)
		}
	})

	return db
}

// configureTestSession bounds how long a broken test can hold locks
func configureTestSession(db *sql.DB) error {
	params := map[string]string{
		"default_transaction_isolation": defaultTransactionIsolation,
		"statement_timeout":             defaultStatementTimeout,
		"lock_timeout":                  defaultLockTimeout,
	}
	for param, value := range params {
		if _, err := db.Exec(fmt.Sprintf("SET SESSION %s = %s", param, value)); err != nil {
			return fmt.Errorf("failed to set %s: %w", param, err)
		}
	}
	return nil
}

func withDatabase(base, name string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid TEST_DATABASE_URL: %w", err)
	}
	u.Path = "/" + name
	return u.String(), nil
}

// tryConnect attempts to connect to database with retries
func tryConnect(t *testing.T, dbURL string) (*sql.DB, error) {
	t.Helper()

	var db *sql.DB
	var err error
	maxRetries := 5
	retryDelay := time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dbURL)
		if err != nil {
			t.Logf("Failed to open database connection (attempt %d/%d): %v", i+1, maxRetries, err)
			time.Sleep(retryDelay)
			continue
		}

		err = db.Ping()
		if err == nil {
			break
		}
		t.Logf("Failed to ping database (attempt %d/%d): %v", i+1, maxRetries, err)
		if cerr := db.Close(); cerr != nil {
			t.Logf("Error closing failed connection: %v", cerr)
		}
		time.Sleep(retryDelay)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, err)
	}
	return db, nil
}
