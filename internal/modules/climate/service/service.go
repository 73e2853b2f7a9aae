package service

import (
	"context"
	"errors"
	"time"

	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/dates"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/repository"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/types"
)

// ClimateQueryService answers the dataset questions on top of one
// repository session. It holds no state of its own.
type ClimateQueryService struct {
	repository repository.ClimateRepository
}

func NewClimateQueryService(repository repository.ClimateRepository) *ClimateQueryService {
	return &ClimateQueryService{repository: repository}
}

func (s *ClimateQueryService) MostFrequentStation(ctx context.Context) (string, error) {
	return s.repository.MostFrequentStation(ctx)
}

func (s *ClimateQueryService) MostRecentDate(ctx context.Context) (time.Time, error) {
	return s.repository.MostRecentDate(ctx)
}

func (s *ClimateQueryService) PrecipitationSeries(ctx context.Context) ([]types.Precipitation, error) {
	return s.repository.Precipitation(ctx)
}

// PrecipitationByDate folds the ascending series into a date-keyed map.
// When several stations report the same day the last row read wins.
func (s *ClimateQueryService) PrecipitationByDate(ctx context.Context) (map[string]*float64, error) {
	series, err := s.repository.Precipitation(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*float64, len(series))
	for _, p := range series {
		out[p.Date] = p.Prcp
	}
	return out, nil
}

func (s *ClimateQueryService) AllStations(ctx context.Context) ([]types.Station, error) {
	return s.repository.Stations(ctx)
}

// TemperatureWindow returns the most active station's measurements from one
// calendar year before the latest observation onwards.
func (s *ClimateQueryService) TemperatureWindow(ctx context.Context) ([]types.Measurement, error) {
	station, err := s.repository.MostFrequentStation(ctx)
	if errors.Is(err, repository.ErrNoMeasurements) {
		return []types.Measurement{}, nil
	}
	if err != nil {
		return nil, err
	}
	latest, err := s.repository.MostRecentDate(ctx)
	if errors.Is(err, repository.ErrNoMeasurements) {
		return []types.Measurement{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.repository.MeasurementsSince(ctx, station, dates.YearBefore(latest))
}

// TemperatureSummary aggregates tobs for the most active station between
// start and end inclusive; a nil end leaves the range open. An empty
// dataset or an empty match yields a summary with every field nil.
func (s *ClimateQueryService) TemperatureSummary(ctx context.Context, start time.Time, end *time.Time) (types.TemperatureSummary, error) {
	station, err := s.repository.MostFrequentStation(ctx)
	if errors.Is(err, repository.ErrNoMeasurements) {
		return types.TemperatureSummary{}, nil
	}
	if err != nil {
		return types.TemperatureSummary{}, err
	}
	return s.repository.TemperatureStats(ctx, station, start, end)
}
