package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/okian/covcall/internal/domain/model"
)

type chainKey struct {
	symbol     string
	expiration string
	side       model.Side
}

// StaticSource serves canned expirations and chains from memory. It
// applies strike bounds the way the provider does and records every query.
type StaticSource struct {
	mu          sync.Mutex
	expirations map[string][]string
	expErrs     map[string]error
	chains      map[chainKey]*ChainResponse
	chainErrs   map[chainKey]error
	queries     []ChainQuery
	listCalls   int
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource creates an empty static source.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		expirations: make(map[string][]string),
		expErrs:     make(map[string]error),
		chains:      make(map[chainKey]*ChainResponse),
		chainErrs:   make(map[chainKey]error),
	}
}

// SetExpirations registers a symbol's expirations.
func (s *StaticSource) SetExpirations(symbol string, dates ...string) *StaticSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expirations[symbol] = dates
	return s
}

// FailExpirations makes ListExpirations fail for symbol.
func (s *StaticSource) FailExpirations(symbol string, err error) *StaticSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expErrs[symbol] = err
	return s
}

// SetChain registers the full chain for one expiration and side.
func (s *StaticSource) SetChain(symbol, expiration string, side model.Side, resp *ChainResponse) *StaticSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[chainKey{symbol, expiration, side}] = resp
	return s
}

// FailChain makes GetChain fail for one expiration and side.
func (s *StaticSource) FailChain(symbol, expiration string, side model.Side, err error) *StaticSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chainErrs[chainKey{symbol, expiration, side}] = err
	return s
}

// ListExpirations implements Source.
func (s *StaticSource) ListExpirations(_ context.Context, symbol string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if err, ok := s.expErrs[symbol]; ok {
		return nil, err
	}
	return append([]string(nil), s.expirations[symbol]...), nil
}

// GetChain implements Source.
func (s *StaticSource) GetChain(_ context.Context, q ChainQuery) (*ChainResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	side := q.Side
	if side == "" {
		side = model.SideCall
	}
	k := chainKey{q.Symbol, q.Expiration, side}
	if err, ok := s.chainErrs[k]; ok {
		return nil, err
	}
	resp, ok := s.chains[k]
	if !ok {
		return &ChainResponse{Status: StatusNoData}, nil
	}
	if q.Strikes == nil {
		return resp, nil
	}
	return filterStrikes(resp, *q.Strikes), nil
}

// Queries returns the chain queries received so far.
func (s *StaticSource) Queries() []ChainQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChainQuery(nil), s.queries...)
}

// Calls returns the number of retrievals served, expirations included.
func (s *StaticSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls + len(s.queries)
}

func filterStrikes(resp *ChainResponse, r StrikeRange) *ChainResponse {
	if !resp.OK() {
		return resp
	}
	out := &ChainResponse{Status: resp.Status, UnderlyingPrice: resp.UnderlyingPrice}
	for i, strike := range resp.Strike {
		if !r.Contains(strike) {
			continue
		}
		out.Strike = append(out.Strike, strike)
		out.OptionSymbol = appendAt(out.OptionSymbol, resp.OptionSymbol, i)
		out.Underlying = appendAt(out.Underlying, resp.Underlying, i)
		out.Side = appendAt(out.Side, resp.Side, i)
		out.Bid = appendAt(out.Bid, resp.Bid, i)
		out.Ask = appendAt(out.Ask, resp.Ask, i)
		out.Mid = appendAt(out.Mid, resp.Mid, i)
		out.DTE = appendAt(out.DTE, resp.DTE, i)
		out.Expiration = appendAt(out.Expiration, resp.Expiration, i)
	}
	if len(out.Strike) == 0 {
		return &ChainResponse{Status: StatusNoData}
	}
	return out
}

func appendAt[T any](dst, src []T, i int) []T {
	if i < len(src) {
		return append(dst, src[i])
	}
	return dst
}

// fixture is the on-disk layout read by LoadStatic.
type fixture struct {
	Symbols map[string]struct {
		Expirations []string `json:"expirations"`
		Error       string   `json:"error,omitempty"`
		// Chains maps expiration -> side -> chain.
		Chains map[string]map[string]*ChainResponse `json:"chains"`
	} `json:"symbols"`
}

// LoadStatic builds a StaticSource from a JSON fixture:
//
//	{"symbols": {"AAPL": {"expirations": ["2024-01-19"],
//	  "chains": {"2024-01-19": {"call": {...}, "put": {...}}}}}}
//
// A symbol with "error" set fails its expirations query.
func LoadStatic(r io.Reader) (*StaticSource, error) {
	var f fixture
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: fixture: %w", ErrDecode, err)
	}
	s := NewStaticSource()
	for symbol, sym := range f.Symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		s.SetExpirations(symbol, sym.Expirations...)
		if sym.Error != "" {
			s.FailExpirations(symbol, &StatusError{Endpoint: endpointExpirations, Code: 500, Message: sym.Error})
		}
		for exp, sides := range sym.Chains {
			for side, resp := range sides {
				s.SetChain(symbol, exp, model.Side(strings.ToLower(side)), resp)
			}
		}
	}
	return s, nil
}
