package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type symbolRequest struct {
	Symbol string `json:"symbol"`
}

type symbolsResponse struct {
	Symbols []string `json:"symbols"`
}

// SymbolsHandler manages the saved symbol list.
type SymbolsHandler struct {
	deps Dependencies
}

// NewSymbolsHandler creates a new symbols handler.
func NewSymbolsHandler(deps Dependencies) *SymbolsHandler {
	return &SymbolsHandler{deps: deps}
}

// HandleList handles GET /symbols requests.
func (h *SymbolsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_symbols"
	symbols, err := h.deps.SavedSymbols(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, symbolsResponse{Symbols: symbols})
}

// HandleAdd handles POST /symbols requests.
func (h *SymbolsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_symbol"
	var req symbolRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, errors.New("missing symbol")))
		return
	}
	symbols, err := h.deps.AddSymbol(r.Context(), req.Symbol)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, symbolsResponse{Symbols: symbols})
}

// HandleRemove handles DELETE /symbols/{symbol} requests.
func (h *SymbolsHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_symbol"
	symbols, err := h.deps.RemoveSymbol(r.Context(), r.PathValue("symbol"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, symbolsResponse{Symbols: symbols})
}
