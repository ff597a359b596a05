package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// Dialect identifies which storage engine backs the connection.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// Config holds the two-tier store configuration. When PostgresDSN is set and the server
// is reachable it wins; otherwise the embedded sqlite file at SQLitePath is used. The
// decision is made exactly once, at startup.
type Config struct {
	PostgresDSN string
	SQLitePath  string
}

// DB wraps the resolved connection together with its dialect.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// Open resolves the store tier and returns a migrated, ready-to-use connection.
func Open(cfg Config) (*DB, error) {
	if cfg.PostgresDSN != "" {
		db, err := openPostgres(cfg.PostgresDSN)
		if err == nil {
			log.Printf("[database] using postgres store")
			return db, nil
		}
		log.Printf("[database] postgres unavailable, falling back to sqlite: %v", err)
	}
	return openSQLite(cfg.SQLitePath)
}

func openPostgres(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(3)
	conn.SetConnMaxIdleTime(15 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := runMigrations(conn, DialectPostgres); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	return &DB{conn: conn, dialect: DialectPostgres}, nil
}

func openSQLite(path string) (*DB, error) {
	if path == "" {
		path = "movies.db"
	}

	dbDir := filepath.Dir(path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	connString := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", path)

	conn, err := sql.Open("sqlite3", connString)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single writer keeps the unique-constraint races serialized inside sqlite itself.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	if err := runMigrations(conn, DialectSQLite); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	log.Printf("[database] using sqlite store at %s", path)
	return &DB{conn: conn, dialect: DialectSQLite}, nil
}

// runMigrations applies the embedded goose migrations for the given dialect.
func runMigrations(conn *sql.DB, dialect Dialect) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	dir := "migrations/sqlite"
	if dialect == DialectPostgres {
		dir = "migrations/postgres"
	}

	if err := goose.Up(conn, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, err := goose.GetDBVersion(conn)
	if err != nil {
		return fmt.Errorf("verify migration version: %w", err)
	}
	log.Printf("[database] schema at version %d", version)

	return nil
}

// Rebind rewrites ? placeholders into the $n form lib/pq expects. Services write their
// queries with ? throughout; sqlite takes them as-is.
func (db *DB) Rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Dialect reports which engine backs the connection.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
