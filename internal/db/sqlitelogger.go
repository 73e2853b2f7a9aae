package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// statementLogger opens sqlite3 connections that log each executed
// statement (collapsed SQL, bound args, elapsed time) at debug level.
type statementLogger struct {
	dsn    string
	logger *slog.Logger
	clock  clockwork.Clock
}

type loggedConn struct {
	driver.Conn
	sl *statementLogger
}

type loggedStmt struct {
	driver.Stmt
	query string
	sl    *statementLogger
}

var (
	_ driver.ExecerContext  = (*loggedConn)(nil)
	_ driver.QueryerContext = (*loggedConn)(nil)
)

var errUseConnector = errors.New("sqlite3-log: open through sql.OpenDB(NewLoggingConnector(...))")

// NewLoggingConnector returns a driver.Connector for sql.OpenDB whose
// statements are logged through logger (slog.Default() when nil).
func NewLoggingConnector(dsn string, logger *slog.Logger) (driver.Connector, error) {
	return newStatementLogger(dsn, logger, clockwork.NewRealClock()), nil
}

func newStatementLogger(dsn string, logger *slog.Logger, clock clockwork.Clock) *statementLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &statementLogger{dsn: dsn, logger: logger, clock: clock}
}

func (sl *statementLogger) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := (&sqlite3.SQLiteDriver{}).Open(sl.dsn)
	if err != nil {
		return nil, err
	}
	return &loggedConn{Conn: conn, sl: sl}, nil
}

func (sl *statementLogger) Driver() driver.Driver { return sl }

// Open satisfies driver.Driver; connections only come from Connect.
func (sl *statementLogger) Open(string) (driver.Conn, error) { return nil, errUseConnector }

func (c *loggedConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *loggedConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if prep, ok := c.Conn.(driver.ConnPrepareContext); ok {
		stmt, err = prep.PrepareContext(ctx, query)
	} else {
		stmt, err = c.Conn.Prepare(query)
	}
	if err != nil {
		return nil, err
	}
	return &loggedStmt{Stmt: stmt, query: query, sl: c.sl}, nil
}

// ExecContext lets database/sql run unprepared statements on the sqlite3
// connection directly. sqlite3 executes every statement in a multi-statement
// script this way, while a prepared statement stops after the first.
func (c *loggedConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	ec, ok := c.Conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	defer c.sl.observe("exec", query, args, c.sl.clock.Now())
	return ec.ExecContext(ctx, query, args)
}

func (c *loggedConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	qc, ok := c.Conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	defer c.sl.observe("query", query, args, c.sl.clock.Now())
	return qc.QueryContext(ctx, query, args)
}

func (c *loggedConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if b, ok := c.Conn.(driver.ConnBeginTx); ok {
		return b.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019: only reached for drivers without ConnBeginTx
	return c.Conn.Begin()
}

func (s *loggedStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	defer s.sl.observe("exec", s.query, args, s.sl.clock.Now())
	if ec, ok := s.Stmt.(driver.StmtExecContext); ok {
		return ec.ExecContext(ctx, args)
	}
	//nolint:staticcheck // SA1019: fallback for statements without StmtExecContext
	return s.Stmt.Exec(plainValues(args))
}

func (s *loggedStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	defer s.sl.observe("query", s.query, args, s.sl.clock.Now())
	if qc, ok := s.Stmt.(driver.StmtQueryContext); ok {
		return qc.QueryContext(ctx, args)
	}
	//nolint:staticcheck // SA1019: fallback for statements without StmtQueryContext
	return s.Stmt.Query(plainValues(args))
}

func (sl *statementLogger) observe(op, query string, args []driver.NamedValue, started time.Time) {
	sl.logger.Debug("sql",
		"op", op,
		"sql", strings.Join(strings.Fields(query), " "),
		"args", formatArgs(args),
		"duration", sl.clock.Since(started),
	)
}

func plainValues(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i := range args {
		out[i] = args[i].Value
	}
	return out
}

func formatArgs(args []driver.NamedValue) []string {
	out := make([]string, len(args))
	for i, a := range args {
		v := "NULL"
		switch t := a.Value.(type) {
		case nil:
		case []byte:
			v = string(t)
		default:
			v = fmt.Sprint(t)
		}
		if a.Name != "" {
			v = a.Name + "=" + v
		}
		out[i] = v
	}
	return out
}
