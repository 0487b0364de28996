package store

import (
	"database/sql"

	_ "github.com/duckdb/duckdb-go/v2"
)

// InMemory is the DSN of a DuckDB database living in process memory.
// Inspection records are not kept across restarts.
const InMemory = ":memory:"

// NewDB opens a DuckDB database at the given path.
func NewDB(path string) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	// An in-memory database is private to its connection: a second pooled
	// connection would see an empty database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}
