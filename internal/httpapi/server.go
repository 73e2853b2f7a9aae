package httpapi

import (
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/uno-sebastian/sqlalchemy-challenge/internal/config"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/observability"
)

func NewServer(cfg config.Config, mux *http.ServeMux, metrics *observability.Metrics) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           Wrap(mux, metrics, clockwork.NewRealClock()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Wrap applies the request middleware chain in serving order.
func Wrap(h http.Handler, metrics *observability.Metrics, clock clockwork.Clock) http.Handler {
	return requestID(instrument(h, metrics, clock))
}
