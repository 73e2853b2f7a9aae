package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/uno-sebastian/sqlalchemy-challenge/internal/observability"
)

// NewMux registers the operational routes. Feature modules add their own
// routes to the returned mux.
func NewMux(db *sql.DB, metrics *observability.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
