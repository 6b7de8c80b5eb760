// Package store provides PostgreSQL-backed persistence for metric readings.
// It wraps sqlx connectivity and exposes a repository over the readings
// table, returning rows in the tabular time-series shape the filter
// operates on.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/windrose/meteoreg/internal/errors"
	"github.com/windrose/meteoreg/internal/telemetry"
	"github.com/windrose/meteoreg/internal/timeseries"
)

const (
	// Default database configuration values.
	defaultPostgresPort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// DB wraps sqlx.DB with additional functionality.
type DB struct {
	*sqlx.DB
}

// Config holds database configuration.
type Config struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"password"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// DefaultConfig returns the default database configuration.
// Database name, username, and password must be explicitly configured.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            defaultPostgresPort,
		SSLMode:         "disable",
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
	}
}

// Connect establishes a connection to PostgreSQL. The returned error never
// carries the DSN, so credentials cannot leak into logs.
func Connect(ctx context.Context, config *Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		config.Host, config.Port, config.Database,
		config.Username, config.Password, config.SSLMode,
	)

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.ErrDatabaseConnection(err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	return &DB{DB: db}, nil
}

// Ping verifies the database connection.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return errors.ErrDatabaseConnection(err)
	}
	return nil
}

// readingsSchema creates the readings table when it does not exist yet.
const readingsSchema = `
CREATE TABLE IF NOT EXISTS readings (
	id          BIGSERIAL PRIMARY KEY,
	metric      TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	value       DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_metric_recorded_at
	ON readings (metric, recorded_at)`

// EnsureSchema creates the readings table and its index if missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, readingsSchema); err != nil {
		return sanitizeError("ensure_schema", err)
	}
	return nil
}

// sanitizeError converts raw database errors into structured errors that do
// not expose SQL details to API clients. The original error is preserved in
// the Cause field for internal logging.
func sanitizeError(operation string, err error) error {
	if err == nil {
		return nil
	}

	if err == sql.ErrNoRows {
		return errors.ErrMetricNotFound("")
	}

	if pqErr, ok := err.(*pq.Error); ok {
		var dbErr *errors.DatabaseError
		switch pqErr.Code {
		case "57014": // query_canceled
			dbErr = &errors.DatabaseError{Code: errors.CodeCanceled, Message: "Database operation was canceled"}
		case "57P01", "08000", "08003", "08006": // connection errors
			dbErr = &errors.DatabaseError{Code: errors.CodeDatabaseConnection, Message: "Database connection error"}
		default:
			dbErr = &errors.DatabaseError{
				Code:    errors.CodeDatabaseQuery,
				Message: fmt.Sprintf("Database operation failed: %s", operation),
			}
		}
		dbErr.Operation = operation
		dbErr.Cause = err
		return dbErr
	}

	dbErr := &errors.DatabaseError{
		Code:    errors.CodeDatabaseQuery,
		Message: fmt.Sprintf("Database operation failed: %s", operation),
		Cause:   err,
	}
	return dbErr.WithOperation(operation)
}

// ListOptions narrows which readings are fetched.
type ListOptions struct {
	// Metrics restricts results to the given full names; empty means all.
	Metrics []string
	// Since excludes readings recorded strictly before it when set.
	Since time.Time
	// Limit caps the number of returned rows; zero means no cap.
	Limit int
}

// ReadingsRepository provides data access for metric readings. Every
// operation is recorded in the telemetry counters when telemetry is set.
type ReadingsRepository struct {
	db  *DB
	tel *telemetry.Telemetry
}

// NewReadingsRepository creates a readings repository. tel may be nil.
func NewReadingsRepository(db *DB, tel *telemetry.Telemetry) *ReadingsRepository {
	return &ReadingsRepository{db: db, tel: tel}
}

// observe records one store operation in the telemetry counters.
func (r *ReadingsRepository) observe(operation string, start time.Time, err error) {
	if r.tel == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.tel.IncrementStoreQueries(operation, status)
	r.tel.RecordStoreQueryDuration(operation, time.Since(start))
}

// List fetches readings in recorded order, applying the given options.
func (r *ReadingsRepository) List(ctx context.Context, opts ListOptions) (timeseries.Series, error) {
	start := time.Now()
	query := `SELECT metric, recorded_at, value FROM readings`
	var (
		clauses []string
		args    []interface{}
	)

	if len(opts.Metrics) > 0 {
		clauses = append(clauses, `metric = ANY($1)`)
		args = append(args, pq.Array(opts.Metrics))
	}
	if !opts.Since.IsZero() {
		clauses = append(clauses, fmt.Sprintf(`recorded_at >= $%d`, len(args)+1))
		args = append(args, opts.Since)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}
	query += ` ORDER BY recorded_at ASC, id ASC`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, opts.Limit)
	}

	var series timeseries.Series
	err := r.db.SelectContext(ctx, &series, query, args...)
	r.observe("list_readings", start, err)
	if err != nil {
		return nil, sanitizeError("list_readings", err)
	}
	return series, nil
}

// Insert stores a single reading.
func (r *ReadingsRepository) Insert(ctx context.Context, row timeseries.Row) error {
	start := time.Now()
	const query = `INSERT INTO readings (metric, recorded_at, value) VALUES (:metric, :recorded_at, :value)`
	_, err := r.db.NamedExecContext(ctx, query, row)
	r.observe("insert_reading", start, err)
	if err != nil {
		return sanitizeError("insert_reading", err)
	}
	return nil
}

// InsertBatch stores a batch of readings in one round trip.
func (r *ReadingsRepository) InsertBatch(ctx context.Context, series timeseries.Series) error {
	if len(series) == 0 {
		return nil
	}
	start := time.Now()
	const query = `INSERT INTO readings (metric, recorded_at, value) VALUES (:metric, :recorded_at, :value)`
	_, err := r.db.NamedExecContext(ctx, query, series)
	r.observe("insert_readings", start, err)
	if err != nil {
		return sanitizeError("insert_readings", err)
	}
	return nil
}

// Count returns the total number of stored readings.
func (r *ReadingsRepository) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM readings`)
	r.observe("count_readings", start, err)
	if err != nil {
		return 0, sanitizeError("count_readings", err)
	}
	return count, nil
}
