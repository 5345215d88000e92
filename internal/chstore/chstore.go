// Package chstore owns the connection to the columnar analytics store
// and the dynamic row scanning that feeds the result normalizer.
package chstore

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"sitepulse/internal/config"
	"sitepulse/internal/query"
)

// Store wraps the ClickHouse connection pool. It is safe for concurrent
// use; the driver manages the pool, a request only borrows a handle for
// the duration of one statement.
type Store struct {
	conn   driver.Conn
	logger *slog.Logger
}

// Connect opens the ClickHouse connection described by the config and
// verifies it with a ping.
func Connect(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping failed: %w", err)
	}
	return &Store{conn: conn, logger: logger}, nil
}

// NewStore wraps an existing connection; used by tests and tools.
func NewStore(conn driver.Conn, logger *slog.Logger) *Store {
	return &Store{conn: conn, logger: logger}
}

// Select runs a statement and returns every row as a column-name keyed
// map, already passed through the numeric normalizer. The caller's
// context cancels the in-flight query when the request is aborted.
//
// Failures come back as *query.QueryExecutionError: the statement is
// logged here with enough context to reproduce it, and must not be
// echoed to the caller.
func (s *Store) Select(ctx context.Context, sql string, args ...interface{}) ([]query.ResultRow, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, s.execError(sql, err)
	}
	defer rows.Close()

	types := rows.ColumnTypes()
	out := []query.ResultRow{}
	for rows.Next() {
		values := make([]interface{}, len(types))
		for i, t := range types {
			values[i] = reflect.New(t.ScanType()).Interface()
		}
		if err := rows.Scan(values...); err != nil {
			return nil, s.execError(sql, err)
		}
		row := make(query.ResultRow, len(types))
		for i, t := range types {
			row[t.Name()] = reflect.ValueOf(values[i]).Elem().Interface()
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.execError(sql, err)
	}
	return query.NormalizeRows(out), nil
}

// SelectOne runs a statement expected to yield at most one row.
func (s *Store) SelectOne(ctx context.Context, sql string, args ...interface{}) (query.ResultRow, error) {
	rows, err := s.Select(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Count runs a single-value count statement and returns it as int64.
func (s *Store) Count(ctx context.Context, sql string, args ...interface{}) (int64, error) {
	var total uint64
	if err := s.conn.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, s.execError(sql, err)
	}
	return int64(total), nil
}

// Exec runs a statement that returns no rows; used by the seeding tool.
func (s *Store) Exec(ctx context.Context, sql string, args ...interface{}) error {
	if err := s.conn.Exec(ctx, sql, args...); err != nil {
		return s.execError(sql, err)
	}
	return nil
}

// PrepareBatch opens a native insert batch; used by the seeding tool.
func (s *Store) PrepareBatch(ctx context.Context, sql string) (driver.Batch, error) {
	batch, err := s.conn.PrepareBatch(ctx, sql)
	if err != nil {
		return nil, s.execError(sql, err)
	}
	return batch, nil
}

// Ping checks connectivity to the analytics store.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) execError(sql string, err error) error {
	s.logger.Error("analytics store query failed",
		slog.String("statement", sql),
		slog.Any("error", err))
	return &query.QueryExecutionError{Statement: sql, Err: err}
}
