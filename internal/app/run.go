package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/uno-sebastian/sqlalchemy-challenge/internal/config"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/db"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/httpapi"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/migrate"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/views"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"dbLogSQL", cfg.LogSQL,
		"dbMigrate", cfg.Migrate,
	)

	dbConn, srv, err := setup(ctx, cfg, logger, observability.NewMetrics())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// setup opens the store and builds the server without listening. On error
// the database handle is already closed.
func setup(ctx context.Context, cfg config.Config, logger *slog.Logger, metrics *observability.Metrics) (*sql.DB, *http.Server, error) {
	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	fail := func(err error) (*sql.DB, *http.Server, error) {
		_ = db.Close(dbConn)
		return nil, nil, err
	}

	if cfg.Migrate {
		if err := migrate.Run(ctx, dbConn); err != nil {
			return fail(err)
		}
	}

	var ok int
	if err := dbConn.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		return fail(err)
	}
	if ok != 1 {
		return fail(errors.New("database connection failed"))
	}
	slog.Info("database connection successful")

	if err := views.LoadTemplates(); err != nil {
		return fail(err)
	}

	mux := httpapi.NewMux(dbConn, metrics)
	climate.RegisterFeature(mux, dbConn)

	return dbConn, httpapi.NewServer(cfg, mux, metrics), nil
}
