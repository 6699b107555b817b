// Package sqlstore keeps tables, orders, archives, sales, carts, the catalog and dish ratings in a SQL
// database through database/sql. The statements run unchanged on MySQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"tpvrestaurante/internal/pos"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pos_tables (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		table_number INT NOT NULL UNIQUE,
		status VARCHAR(16) NOT NULL,
		dish_order_ids TEXT NOT NULL,
		drink_order_ids TEXT NOT NULL,
		total DECIMAL(12,2) NOT NULL,
		opened_at BIGINT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pos_orders (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		kind VARCHAR(8) NOT NULL,
		table_id VARCHAR(36) NULL,
		archived_table_number INT NULL,
		lines_json MEDIUMTEXT NOT NULL,
		total DECIMAL(12,2) NOT NULL,
		status VARCHAR(16) NOT NULL,
		note TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pos_archives (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		table_number INT NOT NULL,
		session_key VARCHAR(96) NOT NULL UNIQUE,
		snapshot_json MEDIUMTEXT NOT NULL,
		dish_order_ids TEXT NOT NULL,
		drink_order_ids TEXT NOT NULL,
		cash DECIMAL(12,2) NOT NULL,
		card DECIMAL(12,2) NOT NULL,
		total DECIMAL(12,2) NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pos_sales (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		item_id VARCHAR(64) NOT NULL,
		kind VARCHAR(8) NOT NULL,
		name VARCHAR(255) NOT NULL,
		order_id VARCHAR(36) NOT NULL,
		line_id VARCHAR(36) NOT NULL,
		quantity INT NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pos_line_deletions (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		order_id VARCHAR(36) NOT NULL,
		table_number INT NOT NULL,
		item_id VARCHAR(64) NOT NULL,
		kind VARCHAR(8) NOT NULL,
		name VARCHAR(255) NOT NULL,
		quantity INT NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		staff_id VARCHAR(64) NOT NULL,
		reason TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pos_carts (
		table_number INT NOT NULL PRIMARY KEY,
		lines_json MEDIUMTEXT NOT NULL,
		total DECIMAL(12,2) NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_items (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		kind VARCHAR(8) NOT NULL,
		name VARCHAR(255) NOT NULL,
		category VARCHAR(128) NOT NULL,
		price_full DECIMAL(12,2) NULL,
		price_racion DECIMAL(12,2) NULL,
		price_tapa DECIMAL(12,2) NULL,
		price_copa DECIMAL(12,2) NULL,
		price_botella DECIMAL(12,2) NULL,
		options_json TEXT NOT NULL,
		active INT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dish_ratings (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		item_id VARCHAR(64) NOT NULL,
		score INT NOT NULL,
		comment TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS register_closes (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		business_date VARCHAR(10) NOT NULL UNIQUE,
		cash DECIMAL(12,2) NOT NULL,
		card DECIMAL(12,2) NOT NULL,
		archived DECIMAL(12,2) NOT NULL,
		sales_total DECIMAL(12,2) NOT NULL,
		tables_closed INT NOT NULL,
		detail_json MEDIUMTEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}

// Migrate creates missing tables. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

func encodeJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	return encodeJSON(ids)
}

func decodeIDs(raw string) ([]string, error) {
	ids := []string{}
	if err := decodeJSON(raw, &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// mustAffect turns a zero-row write into a not-found error.
func mustAffect(res sql.Result, entity string, key any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &pos.NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
	}
	return nil
}

func notFoundOr(err error, entity string, key any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &pos.NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
	}
	return err
}
