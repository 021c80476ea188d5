// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	service "github.com/okian/covcall/internal/app"
	"github.com/okian/covcall/internal/domain/model"
	"github.com/okian/covcall/internal/screening"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Screen(ctx context.Context, req service.ScreenRequest) (*service.View, error)
	Run(ctx context.Context, id uuid.UUID, req service.ViewRequest) (*service.View, error)
	LatestRun(ctx context.Context, req service.ViewRequest) (*service.View, error)

	SavedSymbols(ctx context.Context) ([]string, error)
	AddSymbol(ctx context.Context, symbol string) ([]string, error)
	RemoveSymbol(ctx context.Context, symbol string) ([]string, error)
}

// Server wires HTTP routes for the screener API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	screenHandler  *ScreenHandler
	runsHandler    *RunsHandler
	symbolsHandler *SymbolsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		screenHandler:  NewScreenHandler(deps),
		runsHandler:    NewRunsHandler(deps),
		symbolsHandler: NewSymbolsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /screen", MetricsMiddleware(s.screenHandler.HandleScreen, "screen"))
	mux.HandleFunc("GET /runs/latest", MetricsMiddleware(s.runsHandler.HandleLatest, "runs"))
	mux.HandleFunc("GET /runs/{id}", MetricsMiddleware(s.runsHandler.HandleGetRun, "runs"))
	mux.HandleFunc("GET /symbols", MetricsMiddleware(s.symbolsHandler.HandleList, "symbols"))
	mux.HandleFunc("POST /symbols", MetricsMiddleware(s.symbolsHandler.HandleAdd, "symbols"))
	mux.HandleFunc("DELETE /symbols/{symbol}", MetricsMiddleware(s.symbolsHandler.HandleRemove, "symbols"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// noResultsResponse keeps the run's cost next to the error.
type noResultsResponse struct {
	errorResponse
	APICalls int64                   `json:"api_calls"`
	Errors   []screening.SymbolError `json:"errors,omitempty"`
}

type sortResponse struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

type filtersResponse struct {
	MinStrikePct float64 `json:"min_strike_pct"`
	MaxStrikePct float64 `json:"max_strike_pct"`
	MinDTE       int     `json:"min_dte"`
	MaxDTE       int     `json:"max_dte"`
}

// viewResponse mirrors the OpenAPI schema for a ranked run.
type viewResponse struct {
	RunID      string                  `json:"run_id"`
	Basis      string                  `json:"basis"`
	Labels     []string                `json:"labels"`
	Metrics    string                  `json:"metrics"`
	Sort       sortResponse            `json:"sort"`
	Symbols    []string                `json:"symbols"`
	Filters    filtersResponse         `json:"filters"`
	APICalls   int64                   `json:"api_calls"`
	Total      int                     `json:"total"`
	Count      int                     `json:"count"`
	Summary    string                  `json:"summary"`
	SpotPrice  *float64                `json:"spot_price,omitempty"`
	Records    []model.Record          `json:"records"`
	Errors     []screening.SymbolError `json:"errors"`
	StartedAt  time.Time               `json:"started_at"`
	DurationMS int64                   `json:"duration_ms"`
}

func newViewResponse(v *service.View) viewResponse {
	out := viewResponse{
		RunID:   v.RunID.String(),
		Basis:   v.Basis,
		Labels:  v.Labels,
		Metrics: v.Metrics,
		Sort:    sortResponse{Column: string(v.Sort.Column), Direction: string(v.Sort.Direction)},
		Symbols: v.Symbols,
		Filters: filtersResponse{
			MinStrikePct: v.Filters.MinStrikePct,
			MaxStrikePct: v.Filters.MaxStrikePct,
			MinDTE:       v.Filters.MinDTE,
			MaxDTE:       v.Filters.MaxDTE,
		},
		APICalls:   v.APICalls,
		Total:      v.Total,
		Count:      len(v.Records),
		Summary:    v.Summary(),
		Records:    v.Records,
		Errors:     v.Errors,
		StartedAt:  v.StartedAt,
		DurationMS: v.Duration.Milliseconds(),
	}
	if out.Errors == nil {
		out.Errors = []screening.SymbolError{}
	}
	if out.Records == nil {
		out.Records = []model.Record{}
	}
	if spot, ok := v.Spot(); ok && !math.IsNaN(spot) && !math.IsInf(spot, 0) {
		out.SpotPrice = &spot
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service error kinds to status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var nr *service.NoResultsError
	switch {
	case errors.As(err, &nr):
		status, code := http.StatusUnprocessableEntity, "no_results"
		if nr.AllFailed() {
			status, code = http.StatusBadGateway, "provider_error"
		}
		writeJSON(w, status, noResultsResponse{
			errorResponse: errorResponse{Code: code, Message: service.NoResultsMessage},
			APICalls:      nr.APICalls,
			Errors:        nr.Errors,
		})
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", wrap(op, err))
	case service.IsNotFound(err), errors.Is(err, service.ErrUnknownSymbol):
		writeError(w, http.StatusNotFound, "not_found", wrap(op, err))
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", wrap(op, err))
	case errors.Is(err, context.Canceled):
		// Client went away; status is for the metrics only.
		w.WriteHeader(statusClientClosed)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", wrap(op, err))
	}
}
