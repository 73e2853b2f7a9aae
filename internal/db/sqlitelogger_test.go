package db

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu    sync.Mutex
	attrs []map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := map[string]slog.Value{"msg": slog.StringValue(r.Message)}
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.attrs = append(h.attrs, m)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) last(t *testing.T) map[string]slog.Value {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.attrs) - 1; i >= 0; i-- {
		if h.attrs[i]["msg"].String() == "sql" {
			return h.attrs[i]
		}
	}
	require.FailNow(t, "no sql log record captured")
	return nil
}

func (h *captureHandler) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs = nil
}

func openLogged(t *testing.T, h *captureHandler) *sql.DB {
	t.Helper()
	sl := newStatementLogger(":memory:", slog.New(h), clockwork.NewFakeClock())
	db := sql.OpenDB(sl)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewLoggingConnector_nilLoggerUsesDefault(t *testing.T) {
	conn, err := NewLoggingConnector(":memory:", nil)
	require.NoError(t, err)
	sl, ok := conn.(*statementLogger)
	require.True(t, ok, "connector type = %T", conn)
	assert.NotNil(t, sl.logger)
}

func TestStatementLogger_driverOpenRefused(t *testing.T) {
	sl := newStatementLogger(":memory:", nil, clockwork.NewFakeClock())
	_, err := sl.Driver().Open(":memory:")
	assert.ErrorIs(t, err, errUseConnector)
}

func TestStatementLogger_execLogged(t *testing.T) {
	h := &captureHandler{}
	db := openLogged(t, h)

	_, err := db.Exec(`CREATE TABLE station (id INTEGER PRIMARY KEY, station TEXT)`)
	require.NoError(t, err)
	h.reset()

	_, err = db.Exec(`INSERT INTO station (id, station) VALUES (?, ?)`, 1, "USC00519397")
	require.NoError(t, err)

	got := h.last(t)
	assert.Equal(t, "exec", got["op"].String())
	assert.Equal(t, `INSERT INTO station (id, station) VALUES (?, ?)`, got["sql"].String())
	assert.Equal(t, []string{"1", "USC00519397"}, got["args"].Any())
	assert.Contains(t, got, "duration")
}

func TestStatementLogger_multiStatementExecRunsEveryStatement(t *testing.T) {
	h := &captureHandler{}
	db := openLogged(t, h)

	_, err := db.Exec(`
		CREATE TABLE station (id INTEGER PRIMARY KEY, station TEXT NOT NULL);
		CREATE UNIQUE INDEX idx_station_station ON station(station);
		CREATE TABLE measurement (id INTEGER PRIMARY KEY, station TEXT, date TEXT);
	`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
		WHERE name IN ('station', 'idx_station_station', 'measurement')`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestStatementLogger_multiStatementExecInTransaction(t *testing.T) {
	db := openLogged(t, &captureHandler{})

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = tx.Exec(`CREATE TABLE a (v TEXT); CREATE TABLE b (v TEXT); INSERT INTO b (v) VALUES ('x');`)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	var v string
	require.NoError(t, db.QueryRow(`SELECT v FROM b`).Scan(&v))
	assert.Equal(t, "x", v)
}

func TestStatementLogger_queryLoggedWithCollapsedWhitespace(t *testing.T) {
	h := &captureHandler{}
	db := openLogged(t, h)

	var one int
	require.NoError(t, db.QueryRow("SELECT\n\t1\n").Scan(&one))

	got := h.last(t)
	assert.Equal(t, "query", got["op"].String())
	assert.Equal(t, "SELECT 1", got["sql"].String())
}

func TestStatementLogger_preparedStatementLogged(t *testing.T) {
	h := &captureHandler{}
	db := openLogged(t, h)

	_, err := db.Exec(`CREATE TABLE t (id INTEGER)`)
	require.NoError(t, err)
	stmt, err := db.Prepare(`INSERT INTO t (id) VALUES (?)`)
	require.NoError(t, err)
	defer stmt.Close()
	h.reset()

	_, err = stmt.Exec(7)
	require.NoError(t, err)

	got := h.last(t)
	assert.Equal(t, "exec", got["op"].String())
	assert.Equal(t, []string{"7"}, got["args"].Any())
}

func TestStatementLogger_nullArgFormatted(t *testing.T) {
	h := &captureHandler{}
	db := openLogged(t, h)

	_, err := db.Exec(`CREATE TABLE m (prcp REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO m (prcp) VALUES (?)`, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"NULL"}, h.last(t)["args"].Any())
}

func TestStatementLogger_transactionsWork(t *testing.T) {
	db := openLogged(t, &captureHandler{})

	_, err := db.Exec(`CREATE TABLE t (id INTEGER)`)
	require.NoError(t, err)
	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = tx.Exec(`INSERT INTO t (id) VALUES (1)`)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 1, n)
}
