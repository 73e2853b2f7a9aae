package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/dates"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/repository"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/service"
)

const (
	apiVersion = "v1.0"
	apiBase    = "/api/" + apiVersion
)

// Normalizer turns a date path segment into a calendar day.
type Normalizer func(raw string) (time.Time, error)

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	sessions  repository.SessionFactory
	normalize Normalizer
}

// NewClimateController wires handlers to a session factory. A nil normalize
// falls back to dates.Normalize.
func NewClimateController(sessions repository.SessionFactory, normalize Normalizer) ClimateController {
	if normalize == nil {
		normalize = dates.Normalize
	}
	return &climateControllerImpl{sessions: sessions, normalize: normalize}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET /index", c.handleIndex)
	mux.HandleFunc("GET /home", c.handleIndex)

	mux.HandleFunc("GET "+apiBase+"/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET "+apiBase+"/stations", c.handleStations)
	mux.HandleFunc("GET "+apiBase+"/tobs", c.handleTobs)
	mux.HandleFunc("GET "+apiBase+"/{start}", c.handleStart)
	mux.HandleFunc("GET "+apiBase+"/{start}/{end}", c.handleStartEnd)
}

// openService acquires a per-request session. The returned release func
// must be deferred by the caller.
func (c *climateControllerImpl) openService(ctx context.Context) (*service.ClimateQueryService, func(), error) {
	session, err := c.sessions.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := session.Close(); err != nil {
			slog.Error("close session", "error", err)
		}
	}
	return service.NewClimateQueryService(session), release, nil
}
