// SPDX-License-Identifier: Apache-2.0

package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/psqlpack/psqlpack/internal/catalog"
	"github.com/psqlpack/psqlpack/internal/connstr"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// defaultPostgresVersion is used when POSTGRES_VERSION isn't set.
const defaultPostgresVersion = "15.3"

// containerConnStr holds the connection string to the shared test
// container created by SharedTestMain.
var containerConnStr string

// SharedTestMain starts a single postgres container shared by every test
// in a package, so each test doesn't pay its own container-startup cost.
// Call it from a package's TestMain.
func SharedTestMain(m *testing.M) {
	ctx := context.Background()

	waitForLogs := wait.
		ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(5 * time.Second)

	pgVersion := os.Getenv("POSTGRES_VERSION")
	if pgVersion == "" {
		pgVersion = defaultPostgresVersion
	}

	ctr, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:"+pgVersion),
		testcontainers.WithWaitStrategy(waitForLogs),
	)
	if err != nil {
		os.Exit(1)
	}

	containerConnStr, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		os.Exit(1)
	}

	exitCode := m.Run()

	if err := ctr.Terminate(ctx); err != nil {
		log.Printf("Failed to terminate container: %v", err)
	}

	os.Exit(exitCode)
}

// WithConnectionToContainer creates a fresh, uniquely-named database in
// the shared container and hands the caller both an open connection and
// the postgres:// URL addressing it.
func WithConnectionToContainer(t *testing.T, fn func(conn *sql.DB, connStr string)) {
	t.Helper()
	ctx := context.Background()

	tDB, err := sql.Open("postgres", containerConnStr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tDB.Close() })

	dbName := randomDBName()
	if _, err := tDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))); err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(containerConnStr)
	if err != nil {
		t.Fatal(err)
	}
	u.Path = "/" + dbName
	connStr := u.String()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	fn(db, connStr)
}

// WithCatalogToContainer creates a fresh database in the shared container
// and hands the caller a live catalog.Postgres opened against it, along
// with the database's name. This is the harness internal/catalog's
// integration tests drive: a real PostgreSQL instance rather than
// sqlmock, for the handful of behaviors (existence probes, DDL
// execution) a query-shape mock can't exercise honestly.
func WithCatalogToContainer(t *testing.T, fn func(cat *catalog.Postgres, databaseName string)) {
	t.Helper()

	WithConnectionToContainer(t, func(_ *sql.DB, connStr string) {
		u, err := url.Parse(connStr)
		require.NoError(t, err)
		dbName := strings.TrimPrefix(u.Path, "/")

		conn, err := connstr.Parse(dacpacConnectionString(u, dbName))
		require.NoError(t, err)

		cat, err := catalog.Open(context.Background(), conn)
		require.NoError(t, err)
		t.Cleanup(func() { cat.Close() })

		fn(cat, dbName)
	})
}

// dacpacConnectionString rewrites a postgres:// URL into the
// semicolon-separated form internal/connstr.Parse accepts.
func dacpacConnectionString(u *url.URL, dbName string) string {
	host := u.Hostname()
	port := u.Port()
	user := u.User.Username()
	password, _ := u.User.Password()

	s := fmt.Sprintf("host=%s;database=%s;userid=%s", host, dbName, user)
	if port != "" {
		s += ";port=" + port
	}
	if password != "" {
		s += ";password=" + password
	}
	return s
}

func randomDBName() string {
	const length = 15
	const charset = "abcdefghijklmnopqrstuvwxyz"

	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))] // #nosec G404
	}

	return "testdb_" + string(b)
}
