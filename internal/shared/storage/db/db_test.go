package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type nopDriver struct{}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (nopConn) Ping(ctx context.Context) error            { return nil }

type nopStmt struct{}

func (nopStmt) Close() error                                   { return nil }
func (nopStmt) NumInput() int                                  { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return driver.ErrBadConn }

var registerTestDriverOnce sync.Once

func ensureTestDriverRegistered() {
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
}

func withTestDriver(t *testing.T) func() {
	t.Helper()
	ensureTestDriverRegistered()
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		return sql.Open("dbtest", dsn)
	}
	return func() {
		openDB = prev
	}
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts := OptionsFromEnv(DefaultServerOptions())
	db, err := Connect(context.Background(), "postgres://ignored", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	stats := db.Stats()
	if stats.MaxOpenConnections != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", stats.MaxOpenConnections)
	}
	if opts.MaxIdleConns != 3 {
		t.Fatalf("expected MaxIdleConns=3, got %d", opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime != 20*time.Minute {
		t.Fatalf("expected ConnMaxLifetime=20m, got %s", opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("expected ConnMaxIdleTime=45s, got %s", opts.ConnMaxIdleTime)
	}
	if opts.PingTimeout != time.Second {
		t.Fatalf("expected PingTimeout=1s, got %s", opts.PingTimeout)
	}
}

func TestDriverAndDSN(t *testing.T) {
	tests := []struct {
		url        string
		wantDriver string
		wantDSN    string
		wantDial   Dialect
	}{
		{url: "postgres://u:p@localhost/db", wantDriver: "pgx", wantDSN: "postgres://u:p@localhost/db", wantDial: DialectPostgres},
		{url: "POSTGRESQL://host/db", wantDriver: "pgx", wantDSN: "POSTGRESQL://host/db", wantDial: DialectPostgres},
		{url: "data/progress.db", wantDriver: "sqlite3", wantDSN: "file:data/progress.db?cache=shared&_busy_timeout=5000", wantDial: DialectSQLite},
		{url: "sqlite://tmp/p.db?mode=rwc", wantDriver: "sqlite3", wantDSN: "file:tmp/p.db?cache=shared&_busy_timeout=5000", wantDial: DialectSQLite},
	}
	for _, tt := range tests {
		driverName, dsn := driverAndDSN(tt.url)
		if driverName != tt.wantDriver || dsn != tt.wantDSN {
			t.Fatalf("driverAndDSN(%q) = %s, %s", tt.url, driverName, dsn)
		}
		if got := DialectFor(tt.url); got != tt.wantDial {
			t.Fatalf("DialectFor(%q) = %s", tt.url, got)
		}
	}
}

func TestSQLiteMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.db")
	db, err := Connect(context.Background(), path, DefaultMigrateOptions())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(context.Background(), db, DialectSQLite); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if err := RunMigrations(context.Background(), db, DialectSQLite); err != nil {
		t.Fatalf("RunMigrations twice: %v", err)
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM assessment_progress").Scan(&count); err != nil {
		t.Fatalf("query migrated table: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty table, got %d rows", count)
	}
	version, err := MigrationVersion(context.Background(), db, DialectSQLite)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}
}

func TestRunMigrationsNilDB(t *testing.T) {
	if err := RunMigrations(context.Background(), nil, DialectPostgres); err != nil {
		t.Fatalf("expected nil db to be a no-op, got %v", err)
	}
}
