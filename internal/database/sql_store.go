package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// SQL drivers accepted by NewSQLStore
const (
	DriverPostgres = "postgres"
	DriverLibSQL   = "libsql"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverLibSQL, sqlx.QUESTION)
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// SQLStore keeps snapshots as text rows through database/sql, so the same
// code serves Postgres (lib/pq), Turso (libsql) and a local SQLite file.
type SQLStore struct {
	DB     *sqlx.DB
	driver string
}

type snapshotRow struct {
	Key       string `db:"player_key"`
	State     string `db:"state"`
	UpdatedAt int64  `db:"updated_at"`
}

func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverPostgres, DriverLibSQL, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// modernc sqlite: один писатель
		db.SetMaxOpenConns(1)
	}
	s := &SQLStore{DB: db, driver: driver}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create %s tables: %w", driver, err)
	}
	log.Printf("🎯 SQL state store initialized (%s)", driver)
	return s, nil
}

func (s *SQLStore) createTables(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS game_snapshots (
  player_key TEXT PRIMARY KEY,
  state TEXT NOT NULL,
  updated_at BIGINT NOT NULL
)`)
	return err
}

func (s *SQLStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var row snapshotRow
	q := s.DB.Rebind(`SELECT player_key, state, updated_at FROM game_snapshots WHERE player_key = ?`)
	if err := s.DB.GetContext(ctx, &row, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return []byte(row.State), nil
}

func (s *SQLStore) Save(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	row := snapshotRow{Key: key, State: string(data), UpdatedAt: time.Now().Unix()}
	q := s.DB.Rebind(`
INSERT INTO game_snapshots (player_key, state, updated_at) VALUES (?, ?, ?)
ON CONFLICT (player_key) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`)
	if _, err := s.DB.ExecContext(ctx, q, row.Key, row.State, row.UpdatedAt); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	res, err := s.DB.ExecContext(ctx, s.DB.Rebind(`DELETE FROM game_snapshots WHERE player_key = ?`), key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Keys lists stored player keys, most recently saved first.
func (s *SQLStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.DB.SelectContext(ctx, &keys, `SELECT player_key FROM game_snapshots ORDER BY updated_at DESC, player_key`); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}
