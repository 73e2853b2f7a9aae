package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/dates"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/types"
)

//go:embed sql/most-frequent-station.sql
var mostFrequentStationSQL string

//go:embed sql/most-recent-date.sql
var mostRecentDateSQL string

//go:embed sql/get-precipitation.sql
var getPrecipitationSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-measurements-since.sql
var getMeasurementsSinceSQL string

//go:embed sql/get-temperature-stats.sql
var getTemperatureStatsSQL string

// ErrNoMeasurements is returned by the aggregate lookups when the
// measurement table is empty.
var ErrNoMeasurements = errors.New("no measurements recorded")

type ClimateRepository interface {
	MostFrequentStation(ctx context.Context) (string, error)
	MostRecentDate(ctx context.Context) (time.Time, error)
	Precipitation(ctx context.Context) ([]types.Precipitation, error)
	Stations(ctx context.Context) ([]types.Station, error)
	MeasurementsSince(ctx context.Context, station string, from time.Time) ([]types.Measurement, error)
	TemperatureStats(ctx context.Context, station string, start time.Time, end *time.Time) (types.TemperatureSummary, error)
}

// querier is satisfied by *sql.DB and *sql.Conn.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repositoryImpl struct {
	q querier
}

func NewRepository(q querier) ClimateRepository {
	return &repositoryImpl{q: q}
}

func (r *repositoryImpl) MostFrequentStation(ctx context.Context) (string, error) {
	var station string
	err := r.q.QueryRowContext(ctx, mostFrequentStationSQL).Scan(&station)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoMeasurements
	}
	if err != nil {
		return "", fmt.Errorf("most frequent station: %w", err)
	}
	return station, nil
}

func (r *repositoryImpl) MostRecentDate(ctx context.Context) (time.Time, error) {
	var raw sql.NullString
	if err := r.q.QueryRowContext(ctx, mostRecentDateSQL).Scan(&raw); err != nil {
		return time.Time{}, fmt.Errorf("most recent date: %w", err)
	}
	if !raw.Valid {
		return time.Time{}, ErrNoMeasurements
	}
	d, err := dates.Parse(raw.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("most recent date %q: %w", raw.String, err)
	}
	return d, nil
}

func (r *repositoryImpl) Precipitation(ctx context.Context) ([]types.Precipitation, error) {
	rows, err := r.q.QueryContext(ctx, getPrecipitationSQL)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, "precipitation")

	out := []types.Precipitation{}
	for rows.Next() {
		var p types.Precipitation
		var prcp sql.NullFloat64
		if err := rows.Scan(&p.Date, &prcp); err != nil {
			return nil, err
		}
		p.Prcp = nullableFloat(prcp)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) Stations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.q.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, "stations")

	out := []types.Station{}
	for rows.Next() {
		var s types.Station
		var lat, lng, elev sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.Station, &s.Name, &lat, &lng, &elev); err != nil {
			return nil, err
		}
		s.Latitude = nullableFloat(lat)
		s.Longitude = nullableFloat(lng)
		s.Elevation = nullableFloat(elev)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) MeasurementsSince(ctx context.Context, station string, from time.Time) ([]types.Measurement, error) {
	rows, err := r.q.QueryContext(ctx, getMeasurementsSinceSQL, station, dates.Format(from))
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, "measurements")

	out := []types.Measurement{}
	for rows.Next() {
		var m types.Measurement
		var prcp, tobs sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.Station, &m.Date, &prcp, &tobs); err != nil {
			return nil, err
		}
		m.Prcp = nullableFloat(prcp)
		m.Tobs = nullableFloat(tobs)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) TemperatureStats(ctx context.Context, station string, start time.Time, end *time.Time) (types.TemperatureSummary, error) {
	var endArg any
	if end != nil {
		endArg = dates.Format(*end)
	}
	var tmin, tavg, tmax sql.NullFloat64
	err := r.q.QueryRowContext(ctx, getTemperatureStatsSQL, station, dates.Format(start), endArg, endArg).
		Scan(&tmin, &tavg, &tmax)
	if err != nil {
		return types.TemperatureSummary{}, fmt.Errorf("temperature stats: %w", err)
	}
	return types.TemperatureSummary{
		TMin: nullableFloat(tmin),
		TAvg: nullableFloat(tavg),
		TMax: nullableFloat(tmax),
	}, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Error("close "+what+" rows", "error", err)
	}
}
