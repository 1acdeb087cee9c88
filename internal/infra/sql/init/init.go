package infra_sql_init

import (
	"context"
	"fmt"
	"log"

	"github.com/humanbelnik/gamenight/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

func MustEstablishConn(cfg *config.Config) *sqlx.DB {
	db, err := Open(cfg)
	if err != nil {
		log.Fatal(err)
	}
	return db
}

// Open connects to the configured SQL backend and makes sure the schema exists.
func Open(cfg *config.Config) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err = sqlx.Connect(DriverPostgres, cfg.Postgres.DSN())
	case config.StoreSQLite:
		db, err = OpenSQLite(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("store driver %q is not sql", cfg.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Store.Driver, err)
	}

	if err := EnsureSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a single-connection database; sqlite allows one writer
// and transactions rely on that to serialize.
func OpenSQLite(path string) (*sqlx.DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sqlx.Connect(DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		host_uid   TEXT NOT NULL,
		status     TEXT NOT NULL,
		expires_at BIGINT NOT NULL,
		doc        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		doc_key    TEXT NOT NULL,
		claimed    BOOLEAN NOT NULL DEFAULT FALSE,
		doc        TEXT NOT NULL,
		PRIMARY KEY (session_id, doc_key)
	)`,
	`CREATE TABLE IF NOT EXISTS members (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		doc_key    TEXT NOT NULL,
		doc        TEXT NOT NULL,
		PRIMARY KEY (session_id, doc_key)
	)`,
	`CREATE TABLE IF NOT EXISTS session_games (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		doc_key    TEXT NOT NULL,
		doc        TEXT NOT NULL,
		PRIMARY KEY (session_id, doc_key)
	)`,
	`CREATE TABLE IF NOT EXISTS shared_preferences (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		doc_key    TEXT NOT NULL,
		doc        TEXT NOT NULL,
		PRIMARY KEY (session_id, doc_key)
	)`,
	`CREATE TABLE IF NOT EXISTS guest_preferences (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		doc_key    TEXT NOT NULL,
		doc        TEXT NOT NULL,
		PRIMARY KEY (session_id, doc_key)
	)`,
	`CREATE TABLE IF NOT EXISTS shared_games (
		id         TEXT PRIMARY KEY,
		created_at BIGINT NOT NULL,
		doc        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		uid        TEXT PRIMARY KEY,
		invited    BOOLEAN NOT NULL,
		created_at BIGINT NOT NULL,
		doc        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_expires_at_idx ON sessions (expires_at)`,
}

func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
