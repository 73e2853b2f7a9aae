package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/uno-sebastian/sqlalchemy-challenge/internal/config"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/db"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/logging"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/migrate"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/seed"
)

const appName = "climatedb"

var version = "dev"

const usage = `usage: %s <command>
  migrate                                  apply pending schema migrations
  import <stations.csv> <measurements.csv> migrate, then load the CSV dataset
                                           (stations are upserted, measurements replaced)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	switch args[0] {
	case "migrate":
		if len(args) != 1 {
			return fmt.Errorf("migrate takes no arguments")
		}
	case "import":
		if len(args) != 3 {
			return fmt.Errorf("import needs <stations.csv> <measurements.csv>")
		}
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	conn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	if err := migrate.Run(ctx, conn); err != nil {
		return err
	}
	if args[0] == "migrate" {
		fmt.Println("migrations applied")
		return nil
	}

	stations, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer func() { _ = stations.Close() }()
	measurements, err := os.Open(args[2])
	if err != nil {
		return err
	}
	defer func() { _ = measurements.Close() }()

	counts, err := seed.Import(ctx, conn, stations, measurements)
	if err != nil {
		return err
	}
	slog.Info("import complete", "stations", counts.Stations, "measurements", counts.Measurements)
	return nil
}
