// Package seed loads the Hawaii climate CSV exports into the station and
// measurement tables.
package seed

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/dates"
)

var (
	stationColumns     = []string{"station", "name", "latitude", "longitude", "elevation"}
	measurementColumns = []string{"station", "date", "prcp", "tobs"}
)

const (
	upsertStationSQL = `INSERT INTO station (station, name, latitude, longitude, elevation)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(station) DO UPDATE SET
  name = excluded.name,
  latitude = excluded.latitude,
  longitude = excluded.longitude,
  elevation = excluded.elevation`
	clearMeasurementsSQL = `DELETE FROM measurement`
	insertMeasurementSQL = `INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`
)

type Counts struct {
	Stations     int
	Measurements int
}

// Import reads both files inside one transaction. Stations are upserted by
// identifier and the measurement table is replaced by the file's rows, so
// importing the same files twice leaves the same dataset. Any bad row rolls
// back everything.
func Import(ctx context.Context, db *sql.DB, stations, measurements io.Reader) (Counts, error) {
	var counts Counts

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	counts.Stations, err = importRows(ctx, tx, stations, stationColumns, upsertStationSQL, stationArgs)
	if err != nil {
		return Counts{}, fmt.Errorf("stations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, clearMeasurementsSQL); err != nil {
		return Counts{}, fmt.Errorf("clear measurements: %w", err)
	}
	counts.Measurements, err = importRows(ctx, tx, measurements, measurementColumns, insertMeasurementSQL, measurementArgs)
	if err != nil {
		return Counts{}, fmt.Errorf("measurements: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Counts{}, fmt.Errorf("commit: %w", err)
	}
	return counts, nil
}

type rowMapper func(fields map[string]string) ([]any, error)

func importRows(ctx context.Context, tx *sql.Tx, r io.Reader, columns []string, query string, mapRow rowMapper) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	index, err := columnIndex(header, columns)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	n := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("read record: %w", err)
		}
		line, _ := reader.FieldPos(0)

		fields := make(map[string]string, len(columns))
		for name, i := range index {
			fields[name] = strings.TrimSpace(record[i])
		}
		args, err := mapRow(fields)
		if err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	return n, nil
}

// columnIndex maps each wanted column to its position in header. Columns
// are matched case-insensitively and may appear in any order; extra
// columns such as a leading id are ignored.
func columnIndex(header, columns []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	index := make(map[string]int, len(columns))
	for _, c := range columns {
		i, ok := pos[c]
		if !ok {
			return nil, fmt.Errorf("missing column %q in header %v", c, header)
		}
		index[c] = i
	}
	return index, nil
}

func stationArgs(f map[string]string) ([]any, error) {
	if f["station"] == "" {
		return nil, errors.New("empty station")
	}
	lat, err := optionalFloat("latitude", f["latitude"])
	if err != nil {
		return nil, err
	}
	lng, err := optionalFloat("longitude", f["longitude"])
	if err != nil {
		return nil, err
	}
	elev, err := optionalFloat("elevation", f["elevation"])
	if err != nil {
		return nil, err
	}
	return []any{f["station"], f["name"], lat, lng, elev}, nil
}

func measurementArgs(f map[string]string) ([]any, error) {
	if f["station"] == "" {
		return nil, errors.New("empty station")
	}
	day, err := dates.Parse(f["date"])
	if err != nil {
		return nil, fmt.Errorf("date %q: %w", f["date"], err)
	}
	prcp, err := optionalFloat("prcp", f["prcp"])
	if err != nil {
		return nil, err
	}
	tobs, err := optionalFloat("tobs", f["tobs"])
	if err != nil {
		return nil, err
	}
	return []any{f["station"], dates.Format(day), prcp, tobs}, nil
}

// optionalFloat maps an empty cell to NULL.
func optionalFloat(column, s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", column, s, err)
	}
	return v, nil
}
