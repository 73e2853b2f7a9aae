package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/uno-sebastian/sqlalchemy-challenge/internal/modules/climate/views"
)

var errInvertedRange = errors.New("start date must be on or before end date")

// parseDateRange normalizes end before start, so a request with two bad
// dates reports the end date's problem.
func (c *climateControllerImpl) parseDateRange(rawStart, rawEnd string) (start time.Time, end time.Time, err error) {
	end, err = c.normalize(rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err = c.normalize(rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, errInvertedRange
	}
	return start, end, nil
}

// baseURL is the scheme and host the client used to reach us.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func buildIndexData(base string) *views.IndexData {
	link := func(name, path string) views.RouteLink {
		return views.RouteLink{Name: name, Href: base + path, Path: path}
	}
	return &views.IndexData{
		Version: apiVersion,
		Home:    base + "/",
		APIBase: base + apiBase,
		Links: []views.RouteLink{
			link("precipitation", apiBase+"/precipitation"),
			link("stations", apiBase+"/stations"),
			link("tobs", apiBase+"/tobs"),
		},
		Templates: []views.RouteLink{
			link("start", apiBase+"/[start]"),
			link("start and end", apiBase+"/[start]/[end]"),
		},
	}
}
