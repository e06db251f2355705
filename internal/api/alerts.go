package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/pipboard/internal/api/response"
	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/storage/history"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

// handleAlerts lists fired alerts, newest first.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAlertFilter(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	store := s.deps.App.History()
	records, err := store.List(r.Context(), filter)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	total, err := store.Count(r.Context(), filter)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	response.Page(w, records, response.Paging{Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.App.History().GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrNoData) {
			status = http.StatusNotFound
		}
		response.Error(w, status, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}

func parseAlertFilter(r *http.Request) (history.ListFilter, error) {
	q := r.URL.Query()
	filter := history.ListFilter{
		Pair:     q.Get("pair"),
		Strategy: q.Get("strategy"),
		Kind:     core.AlertKind(q.Get("kind")),
		Limit:    defaultAlertLimit,
	}

	var err error
	if filter.From, err = parseTime(q.Get("from")); err != nil {
		return filter, fmt.Errorf("from: %w", err)
	}
	if filter.To, err = parseTime(q.Get("to")); err != nil {
		return filter, fmt.Errorf("to: %w", err)
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, fmt.Errorf("limit must be a positive integer, got %q", v)
		}
		filter.Limit = min(n, maxAlertLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("offset must be a non-negative integer, got %q", v)
		}
		filter.Offset = n
	}
	return filter, nil
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}
