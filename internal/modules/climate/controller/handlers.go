package controller

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/views"
	"github.com/uno-sebastian/sqlalchemy-challenge/internal/utils"
)

func (c *climateControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := buildIndexData(baseURL(r))
	utils.WriteHTML(w, http.StatusOK, func(out io.Writer) error {
		return views.RenderIndex(out, data)
	})
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	svc, release, err := c.openService(r.Context())
	if err != nil {
		slog.Error("precipitation: open session failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to open database session")
		return
	}
	defer release()

	byDate, err := svc.PrecipitationByDate(r.Context())
	if err != nil {
		slog.Error("precipitation: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load precipitation")
		return
	}
	utils.WriteJSON(w, http.StatusOK, byDate)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	svc, release, err := c.openService(r.Context())
	if err != nil {
		slog.Error("stations: open session failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to open database session")
		return
	}
	defer release()

	stations, err := svc.AllStations(r.Context())
	if err != nil {
		slog.Error("stations: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	svc, release, err := c.openService(r.Context())
	if err != nil {
		slog.Error("tobs: open session failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to open database session")
		return
	}
	defer release()

	window, err := svc.TemperatureWindow(r.Context())
	if err != nil {
		slog.Error("tobs: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature observations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, window)
}

func (c *climateControllerImpl) handleStart(w http.ResponseWriter, r *http.Request) {
	start, err := c.normalize(r.PathValue("start"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	svc, release, err := c.openService(r.Context())
	if err != nil {
		slog.Error("summary: open session failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to open database session")
		return
	}
	defer release()

	summary, err := svc.TemperatureSummary(r.Context(), start, nil)
	if err != nil {
		slog.Error("summary: query failed", "start", r.PathValue("start"), "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to summarize temperatures")
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

func (c *climateControllerImpl) handleStartEnd(w http.ResponseWriter, r *http.Request) {
	start, end, err := c.parseDateRange(r.PathValue("start"), r.PathValue("end"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	svc, release, err := c.openService(r.Context())
	if err != nil {
		slog.Error("summary: open session failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to open database session")
		return
	}
	defer release()

	summary, err := svc.TemperatureSummary(r.Context(), start, &end)
	if err != nil {
		slog.Error("summary: query failed",
			"start", r.PathValue("start"),
			"end", r.PathValue("end"),
			"error", err,
		)
		utils.WriteError(w, http.StatusInternalServerError, "failed to summarize temperatures")
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}
