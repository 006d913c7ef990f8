package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/target/workmarket/internal/migrate"
)

// TestingTB is the subset of testing.TB the helpers need, so they also work
// with *testing.B and fakes.
type TestingTB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
}

// TestDBConfig holds configuration for test database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig reads TEST_DB_* variables. The port defaults to 55432,
// the docker-compose test profile; CI sets TEST_DB_PORT=5432.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "55432"),
		User:     getEnvOrDefault("TEST_DB_USER", "workmarket"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "workmarket"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "workmarket"),
	}
}

// RunMigrations applies the production schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db, nil)
}

// SkipIfNoTestDB skips the test when the test database does not answer a ping.
// With TEST_REQUIRE_DB or TEST_REQUIRE_INFRA set it fails instead.
func SkipIfNoTestDB(t TestingTB) {
	t.Helper()
	db, err := openPinged(buildBaseDSN(DefaultTestDBConfig()), 2*time.Second)
	if err != nil {
		if requireDB() {
			t.Fatal("Test database not available:", err)
		}
		t.Skip("Test database not available:", err)
	}
	closeAndLog(t, "probe DB", db)
}

// WithAutoDB runs fn against a migrated database. With TEST_DB_EPHEMERAL set it
// uses a throwaway schema dropped on cleanup; otherwise the shared test database
// is truncated before and after fn.
func WithAutoDB(t TestingTB, fn func(*sql.DB)) {
	t.Helper()
	if envBool("TEST_DB_EPHEMERAL") {
		fn(SetupEphemeralSchemaDB(t))
		return
	}
	db := SetupTestDB(t)
	defer TeardownTestDB(t, db)
	fn(db)
}

// SetupTestDB connects to the shared test database, migrates it and empties
// the log tables.
func SetupTestDB(t TestingTB) *sql.DB {
	t.Helper()
	SkipIfNoTestDB(t)

	db, err := openPinged(buildBaseDSN(DefaultTestDBConfig()), 5*time.Second)
	if err != nil {
		t.Fatal("Failed to connect to test database (is docker-compose up?):", err)
	}
	migrateOrFail(t, db)
	CleanupTestDB(t, db)
	return db
}

// CleanupTestDB empties the log tables. Their immutability triggers reject
// DELETE, so they are truncated.
func CleanupTestDB(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx,
		"TRUNCATE job_events, economy_entries, operator_notes RESTART IDENTITY"); err != nil {
		t.Fatalf("Failed to truncate test tables: %v", err)
	}
}

// TeardownTestDB empties the tables and closes db.
func TeardownTestDB(t TestingTB, db *sql.DB) {
	t.Helper()
	if db == nil {
		return
	}
	CleanupTestDB(t, db)
	if err := db.Close(); err != nil {
		t.Fatal("Failed to close database:", err)
	}
}

// SetupEphemeralSchemaDB migrates a fresh schema, points search_path at it and
// drops it when the test finishes.
func SetupEphemeralSchemaDB(t TestingTB) *sql.DB {
	t.Helper()
	SkipIfNoTestDB(t)

	base := buildBaseDSN(DefaultTestDBConfig())
	admin, err := openPinged(base, 5*time.Second)
	if err != nil {
		t.Fatal("Failed to open admin DB:", err)
	}
	schema := generateSchemaName()
	if err := execWithTimeout(admin, "CREATE SCHEMA "+schema); err != nil {
		closeAndLog(t, "admin DB", admin)
		t.Fatalf("Failed to create schema %s: %v", schema, err)
	}

	u, err := url.Parse(base)
	if err != nil {
		closeAndLog(t, "admin DB", admin)
		t.Fatal("Failed to parse DSN:", err)
	}
	q := u.Query()
	q.Set("search_path", schema+",public")
	u.RawQuery = q.Encode()

	db, err := openPinged(u.String(), 10*time.Second)
	if err != nil {
		closeAndLog(t, "admin DB", admin)
		t.Fatal("Failed to open schema-scoped DB:", err)
	}
	db.SetMaxOpenConns(10)

	t.Logf("Using ephemeral schema: %s", schema)
	onCleanup(t, func() {
		closeAndLog(t, "schema DB", db)
		if err := execWithTimeout(admin, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("warning: failed to drop schema %s: %v", schema, err)
		}
		closeAndLog(t, "admin DB", admin)
	})
	migrateOrFail(t, db)
	return db
}

// JobEventInfo is one stored job event, for debugging.
type JobEventInfo struct {
	Seq     int64
	JobID   string
	Version int64
	Type    string
	Actor   string
}

// InspectJobEvents returns the stored job log in append order.
func InspectJobEvents(t TestingTB, db *sql.DB) []JobEventInfo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx,
		`SELECT seq, job_id, version, event_type, actor FROM job_events ORDER BY seq ASC`)
	if err != nil {
		t.Fatalf("Failed to query job events: %v", err)
	}
	defer rows.Close()

	var events []JobEventInfo
	for rows.Next() {
		var ev JobEventInfo
		if err := rows.Scan(&ev.Seq, &ev.JobID, &ev.Version, &ev.Type, &ev.Actor); err != nil {
			t.Fatalf("Failed to scan job event: %v", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("Error iterating job events: %v", err)
	}
	return events
}

// LogJobEvents logs the stored job log for debugging.
func LogJobEvents(t TestingTB, db *sql.DB, message string) {
	t.Helper()
	t.Logf("=== %s ===", message)
	for _, ev := range InspectJobEvents(t, db) {
		t.Logf("#%d job=%s v%d %s by %s", ev.Seq, ev.JobID, ev.Version, ev.Type, ev.Actor)
	}
	t.Logf("=== End %s ===", message)
}

func buildBaseDSN(cfg TestDBConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.User, cfg.Password, net.JoinHostPort(cfg.Host, cfg.Port), cfg.DBName,
		getEnvOrDefault("DB_SSL_MODE", "disable"))
}

func openPinged(dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateOrFail(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatal("Failed to run migrations:", err)
	}
}

func execWithTimeout(db *sql.DB, stmt string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := db.ExecContext(ctx, stmt)
	return err
}

// generateSchemaName returns "t_" plus 8 random hex characters.
func generateSchemaName() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("t_%08x", uint32(time.Now().UnixNano()))
	}
	return "t_" + hex.EncodeToString(b)
}

func closeAndLog(t TestingTB, name string, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		t.Logf("warning: failed to close %s: %v", name, err)
	}
}

// onCleanup registers fn with t.Cleanup. Without Cleanup support the resources
// leak and a warning is logged.
func onCleanup(t TestingTB, fn func()) {
	if tc, ok := t.(interface{ Cleanup(func()) }); ok {
		tc.Cleanup(fn)
		return
	}
	t.Logf("warning: %T has no Cleanup; resources are leaked", t)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envBool parses common truthy values from env vars.
func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
