package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	service "github.com/okian/covcall/internal/app"
	"github.com/okian/covcall/internal/domain/ranking"
)

// RunsHandler re-ranks stored runs.
type RunsHandler struct {
	deps Dependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps Dependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

// HandleGetRun handles GET /runs/{id}?sort=&dir=&metrics=&limit=&toggle= requests.
func (h *RunsHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run"
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	req, err := viewQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.Run(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newViewResponse(view))
}

// HandleLatest handles GET /runs/latest requests.
func (h *RunsHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_latest_run"
	req, err := viewQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.LatestRun(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newViewResponse(view))
}

func viewQuery(q url.Values) (service.ViewRequest, error) {
	req := service.ViewRequest{
		Sort:      q.Get("sort"),
		Direction: q.Get("dir"),
		Metrics:   q.Get("metrics"),
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return req, fmt.Errorf("invalid limit %q", s)
		}
		req.Limit = n
	}
	if col := q.Get("toggle"); col != "" {
		return toggle(req, col)
	}
	return req, nil
}

// toggle advances the header click cycle from the requested sort.
// An unsorted result falls back to the default order.
func toggle(req service.ViewRequest, column string) (service.ViewRequest, error) {
	target, err := ranking.ParseColumn(column)
	if err != nil {
		return req, err
	}
	current, err := ranking.ParseColumn(req.Sort)
	if err != nil {
		return req, err
	}
	dir, err := ranking.ParseDirection(req.Direction)
	if err != nil {
		return req, err
	}
	state := ranking.NewSortState(ranking.Sort{Column: current, Direction: dir})
	state.Toggle(target)

	next := state.Sort()
	if next.Direction == ranking.None {
		req.Sort, req.Direction = "", ""
		return req, nil
	}
	req.Sort, req.Direction = string(next.Column), string(next.Direction)
	return req, nil
}
