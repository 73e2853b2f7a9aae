package climate

import (
	"database/sql"
	"net/http"

	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/controller"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/dates"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/repository"
)

func RegisterFeature(mux *http.ServeMux, db *sql.DB) {
	climateSessions := repository.NewSessionFactory(db)
	climateController := controller.NewClimateController(climateSessions, dates.Normalize)
	climateController.RegisterRoutes(mux)
}
