package connector_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/connector/mssql"
	"github.com/faucetdb/driftguard/internal/connector/mysql"
	"github.com/faucetdb/driftguard/internal/connector/oracle"
	"github.com/faucetdb/driftguard/internal/connector/postgres"
	"github.com/faucetdb/driftguard/internal/connector/sqlite"
	"github.com/faucetdb/driftguard/internal/model"
)

// ---------------------------------------------------------------------------
// Helper: run a common suite of sub-tests against any connector
// ---------------------------------------------------------------------------

func runConnectorSuite(t *testing.T, conn connector.Connector, cfg connector.ConnectionConfig) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.Connect(cfg); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Disconnect()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	t.Run("IntrospectCatalog", func(t *testing.T) {
		cat, err := conn.IntrospectCatalog(ctx)
		if err != nil {
			t.Fatalf("IntrospectCatalog failed: %v", err)
		}
		names, err := conn.GetTableNames(ctx)
		if err != nil {
			t.Fatalf("GetTableNames failed: %v", err)
		}
		for _, name := range names {
			if _, ok := cat.Table(name); !ok {
				t.Errorf("table %q listed but missing from catalog", name)
			}
		}
	})

	t.Run("IntrospectProcedures", func(t *testing.T) {
		procs, err := conn.IntrospectProcedures(ctx)
		if err != nil {
			t.Fatalf("IntrospectProcedures failed: %v", err)
		}
		if procs == nil {
			t.Fatal("IntrospectProcedures returned nil")
		}
	})
}

// liveDSN returns the DSN from the environment or skips the test.
func liveDSN(t *testing.T, env string) string {
	t.Helper()
	dsn := os.Getenv(env)
	if dsn == "" {
		t.Skipf("set %s to run", env)
	}
	return dsn
}

func TestPostgresIntegration(t *testing.T) {
	dsn := liveDSN(t, "DRIFTGUARD_TEST_POSTGRES_DSN")
	runConnectorSuite(t, postgres.New(), connector.ConnectionConfig{Driver: "postgres", DSN: connector.NormalizeDSN("postgres", dsn)})
}

func TestMySQLIntegration(t *testing.T) {
	dsn := liveDSN(t, "DRIFTGUARD_TEST_MYSQL_DSN")
	runConnectorSuite(t, mysql.New(), connector.ConnectionConfig{Driver: "mysql", DSN: connector.NormalizeDSN("mysql", dsn)})
}

func TestMSSQLIntegration(t *testing.T) {
	dsn := liveDSN(t, "DRIFTGUARD_TEST_MSSQL_DSN")
	runConnectorSuite(t, mssql.New(), connector.ConnectionConfig{Driver: "mssql", DSN: connector.NormalizeDSN("mssql", dsn)})
}

func TestOracleIntegration(t *testing.T) {
	dsn := liveDSN(t, "DRIFTGUARD_TEST_ORACLE_DSN")
	runConnectorSuite(t, oracle.New(), connector.ConnectionConfig{Driver: "oracle", DSN: connector.NormalizeDSN("oracle", dsn)})
}

// SQLite runs without external services.
func TestSQLiteIntrospection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.MustExec(`CREATE TABLE orders (
		id INTEGER PRIMARY KEY,
		customer_id INTEGER NOT NULL,
		note TEXT DEFAULT 'none'
	)`)
	db.MustExec(`CREATE VIEW open_orders AS SELECT id FROM orders`)
	db.Close()

	runConnectorSuite(t, sqlite.New(), connector.ConnectionConfig{Driver: "sqlite", DSN: path})

	conn := sqlite.New()
	if err := conn.Connect(connector.ConnectionConfig{DSN: path}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Disconnect()

	cat, err := conn.IntrospectCatalog(context.Background())
	if err != nil {
		t.Fatalf("IntrospectCatalog: %v", err)
	}
	orders, ok := cat.Table("orders")
	if !ok {
		t.Fatalf("orders missing; have %v", cat.TableNames())
	}
	if got := orders.ColumnNames(); len(got) != 3 || got[0] != "id" || got[2] != "note" {
		t.Errorf("columns = %v", got)
	}
	id, _ := orders.Column("id")
	if id.Nullable {
		t.Error("primary key column reported nullable")
	}
	note, _ := orders.Column("note")
	if !note.Nullable || note.Default == nil || *note.Default != "'none'" {
		t.Errorf("note = %+v", note)
	}
	if orders.Source.File != "sqlite:main" {
		t.Errorf("source = %q", orders.Source.File)
	}
	if _, ok := cat.Table("open_orders"); !ok {
		t.Error("view open_orders missing")
	}

	procs, err := conn.IntrospectProcedures(context.Background())
	if err != nil || procs.Len() != 0 {
		t.Errorf("procedures = %v, %v", procs, err)
	}
}

func TestRegistryIntegration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg.db")
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.MustExec(`CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT)`)
	db.Close()

	reg := connector.NewRegistry()
	reg.RegisterDriver("sqlite", sqlite.New)

	conn, err := reg.Open(context.Background(), model.ServiceConfig{Name: "app", Driver: "sqlite", DSN: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Disconnect()

	names, err := conn.GetTableNames(context.Background())
	if err != nil {
		t.Fatalf("GetTableNames: %v", err)
	}
	if len(names) != 1 || names[0] != "users" {
		t.Errorf("names = %v", names)
	}
}
