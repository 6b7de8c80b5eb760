package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrose/meteoreg/internal/telemetry"
	"github.com/windrose/meteoreg/internal/timeseries"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return &DB{DB: sqlx.NewDb(mockDB, "postgres")}, mock
}

func TestReadingsRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReadingsRepository(db, nil)

	t1 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	rows := sqlmock.NewRows([]string{"metric", "recorded_at", "value"}).
		AddRow("TEMPERATURE", t1, 21.5).
		AddRow("RAIN_FALL", t2, 0.4)

	mock.ExpectQuery(`SELECT metric, recorded_at, value FROM readings ORDER BY recorded_at ASC`).
		WillReturnRows(rows)

	series, err := repo.List(context.Background(), ListOptions{})
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, timeseries.Row{Metric: "TEMPERATURE", Timestamp: t1, Value: 21.5}, series[0])
	assert.Equal(t, timeseries.Row{Metric: "RAIN_FALL", Timestamp: t2, Value: 0.4}, series[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsRepository_ListWithFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReadingsRepository(db, nil)

	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"metric", "recorded_at", "value"}).
		AddRow("TEMPERATURE", since.Add(time.Hour), 18.0)

	mock.ExpectQuery(`SELECT metric, recorded_at, value FROM readings WHERE metric = ANY\(\$1\) AND recorded_at >= \$2`).
		WithArgs(sqlmock.AnyArg(), since).
		WillReturnRows(rows)

	series, err := repo.List(context.Background(), ListOptions{
		Metrics: []string{"TEMPERATURE"},
		Since:   since,
		Limit:   100,
	})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "TEMPERATURE", series[0].Metric)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsRepository_ListQueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReadingsRepository(db, nil)

	mock.ExpectQuery(`SELECT metric, recorded_at, value FROM readings`).
		WillReturnError(assert.AnError)

	_, err := repo.List(context.Background(), ListOptions{})
	require.Error(t, err)
	// Raw driver errors are sanitized, not surfaced verbatim.
	assert.NotContains(t, err.Error(), assert.AnError.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReadingsRepository(db, nil)

	mock.ExpectExec(`INSERT INTO readings \(metric, recorded_at, value\)`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), timeseries.Row{
		Metric:    "TEMPERATURE",
		Timestamp: time.Now(),
		Value:     21.5,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsRepository_InsertBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReadingsRepository(db, nil)

	now := time.Now()
	series := timeseries.Series{
		{Metric: "TEMPERATURE", Timestamp: now, Value: 21.5},
		{Metric: "RAIN_FALL", Timestamp: now, Value: 0.2},
	}

	mock.ExpectExec(`INSERT INTO readings \(metric, recorded_at, value\)`).
		WillReturnResult(sqlmock.NewResult(2, 2))

	require.NoError(t, repo.InsertBatch(context.Background(), series))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsRepository_InsertBatchEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReadingsRepository(db, nil)

	// No SQL expected for an empty batch.
	require.NoError(t, repo.InsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsRepository_Count(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReadingsRepository(db, nil)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM readings`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsRepository_RecordsTelemetry(t *testing.T) {
	db, mock := newMockDB(t)
	tel := telemetry.New()
	repo := NewReadingsRepository(db, tel)

	mock.ExpectQuery(`SELECT metric, recorded_at, value FROM readings`).
		WillReturnRows(sqlmock.NewRows([]string{"metric", "recorded_at", "value"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM readings`).
		WillReturnError(assert.AnError)

	_, err := repo.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	_, err = repo.Count(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1.0, storeQueryCount(t, tel, "list_readings", "ok"))
	assert.Equal(t, 1.0, storeQueryCount(t, tel, "count_readings", "error"))
	assert.Equal(t, 0.0, storeQueryCount(t, tel, "list_readings", "error"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// storeQueryCount reads the queries_total counter for one operation/status
// pair from the telemetry registry.
func storeQueryCount(t *testing.T, tel *telemetry.Telemetry, operation, status string) float64 {
	t.Helper()

	families, err := tel.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "meteoreg_store_queries_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["operation"] == operation && labels["status"] == status {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestDB_EnsureSchema(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS readings`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Empty(t, cfg.Database)
}
