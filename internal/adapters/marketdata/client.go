package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/okian/covcall/internal/domain/model"
	"github.com/okian/covcall/pkg/logger"
	"github.com/okian/covcall/pkg/metrics"
)

// Default client configuration constants.
const (
	DefaultBaseURL         = "https://api.marketdata.app"
	defaultTimeout         = 10 * time.Second
	defaultRPS             = 5
	defaultBurst           = 5
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
	maxErrorBody           = 4 << 10
)

// Endpoint labels used in logs and metrics.
const (
	endpointExpirations = "expirations"
	endpointChain       = "chain"
)

// Client is the HTTP Source for the marketdata.app v1 API.
type Client struct {
	baseURL         string
	token           string
	http            *http.Client
	timeout         time.Duration
	rps             float64
	burst           int
	breakerFailures uint32
	breakerTimeout  time.Duration
	logger          logger.Logger

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

var _ Source = (*Client)(nil)

// NewClient creates a provider client with configuration options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:         DefaultBaseURL,
		http:            &http.Client{},
		timeout:         defaultTimeout,
		rps:             defaultRPS,
		burst:           defaultBurst,
		breakerFailures: defaultBreakerFailures,
		breakerTimeout:  defaultBreakerTimeout,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")

	if c.rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.rps), c.burst)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "marketdata",
		Timeout: c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.breakerFailures
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(breakerGauge(to))
			c.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})
	return c
}

// ListExpirations returns the symbol's expiration dates. A successful
// answer with a status other than ok yields an empty list; a non-2xx
// answer is an error even when its body says "no data".
func (c *Client) ListExpirations(ctx context.Context, symbol string) ([]string, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrInvalidArg)
	}
	u := c.baseURL + "/v1/options/expirations/" + url.PathEscape(symbol) + "/"

	var out ExpirationsResponse
	if err := c.get(ctx, endpointExpirations, u, &out); err != nil {
		return nil, fmt.Errorf("expirations %s: %w", symbol, err)
	}
	if out.Status != StatusOK {
		return nil, nil
	}
	return out.Expirations, nil
}

// GetChain returns one expiration's option chain.
func (c *Client) GetChain(ctx context.Context, q ChainQuery) (*ChainResponse, error) {
	if q.Symbol == "" || q.Expiration == "" {
		return nil, fmt.Errorf("%w: symbol and expiration are required", ErrInvalidArg)
	}
	params := url.Values{}
	params.Set("expiration", q.Expiration)
	side := q.Side
	if side == "" {
		side = model.SideCall
	}
	params.Set("side", string(side))
	if q.Strikes != nil {
		params.Set("strike", q.Strikes.String())
	}
	u := c.baseURL + "/v1/options/chain/" + url.PathEscape(q.Symbol) + "/?" + params.Encode()

	var out ChainResponse
	if err := c.get(ctx, endpointChain, u, &out); err != nil {
		if errors.Is(err, ErrNoData) {
			return &ChainResponse{Status: StatusNoData}, nil
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, endpoint, u string, out any) error {
	if c.limiter != nil {
		start := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		metrics.RecordRateLimitWait(float64(time.Since(start).Milliseconds()))
	}

	start := time.Now()
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.do(ctx, endpoint, u, out)
	})
	elapsed := time.Since(start)
	metrics.RecordProviderRequest(endpoint, outcome(err), float64(elapsed.Milliseconds()))

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		c.logger.Debug(ctx, "provider request failed",
			logger.String("endpoint", endpoint),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return err
	}
	c.logger.Debug(ctx, "provider request",
		logger.String("endpoint", endpoint),
		logger.Duration("elapsed", elapsed))
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, u string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var payload struct {
			Status string `json:"s"`
			ErrMsg string `json:"errmsg"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Status == StatusNoData {
			return ErrNoData
		}
		msg := payload.ErrMsg
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, endpoint, err)
	}
	return nil
}

// isSuccessful keeps client-side answers from tripping the breaker.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code < http.StatusInternalServerError && se.Code != http.StatusTooManyRequests
	}
	return false
}

func outcome(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.As(err, &se):
		return "status_" + fmt.Sprint(se.Code)
	case errors.Is(err, ErrDecode):
		return "decode_error"
	default:
		return "transport_error"
	}
}

func breakerGauge(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	default:
		return metrics.BreakerClosed
	}
}
