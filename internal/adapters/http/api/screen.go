package api

import (
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/covcall/internal/app"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// screenRequest mirrors the OpenAPI schema for POST /screen.
type screenRequest struct {
	Symbols      []string `json:"symbols"`
	MinStrikePct *float64 `json:"min_strike_pct"`
	MaxStrikePct *float64 `json:"max_strike_pct"`
	MinDTE       *int     `json:"min_dte"`
	MaxDTE       *int     `json:"max_dte"`
	UseSaved     bool     `json:"use_saved"`
	Save         bool     `json:"save"`
	Sort         string   `json:"sort"`
	Dir          string   `json:"dir"`
	Metrics      string   `json:"metrics"`
	Limit        int      `json:"limit"`
}

func (s screenRequest) validate() error {
	if len(s.Symbols) == 0 && !s.UseSaved {
		return errors.New("missing symbols")
	}
	if s.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}

func (s screenRequest) toService() service.ScreenRequest {
	return service.ScreenRequest{
		Symbols:      s.Symbols,
		MinStrikePct: s.MinStrikePct,
		MaxStrikePct: s.MaxStrikePct,
		MinDTE:       s.MinDTE,
		MaxDTE:       s.MaxDTE,
		UseSaved:     s.UseSaved,
		Save:         s.Save,
		View: service.ViewRequest{
			Sort:      s.Sort,
			Direction: s.Dir,
			Metrics:   s.Metrics,
			Limit:     s.Limit,
		},
	}
}

// ScreenHandler runs screenings.
type ScreenHandler struct {
	deps Dependencies
}

// NewScreenHandler creates a new screen handler.
func NewScreenHandler(deps Dependencies) *ScreenHandler {
	return &ScreenHandler{deps: deps}
}

// HandleScreen handles POST /screen requests.
func (h *ScreenHandler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_screen"
	var req screenRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	view, err := h.deps.Screen(r.Context(), req.toService())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newViewResponse(view))
}
