package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/okian/covcall/internal/adapters/http/api"
	"github.com/okian/covcall/internal/adapters/marketdata"
	service "github.com/okian/covcall/internal/app"
	"github.com/okian/covcall/internal/domain/model"
	"github.com/okian/covcall/internal/domain/pricing"
	. "github.com/smartystreets/goconvey/convey"
)

const jan19 = int64(1705622400)

func chain(spot float64, strikes ...float64) *marketdata.ChainResponse {
	c := &marketdata.ChainResponse{Status: marketdata.StatusOK, UnderlyingPrice: []float64{spot}}
	for i, k := range strikes {
		mid := spot - k + float64(i+1)
		c.OptionSymbol = append(c.OptionSymbol, "OPT")
		c.Strike = append(c.Strike, k)
		c.Bid = append(c.Bid, mid-0.5)
		c.Ask = append(c.Ask, mid+0.5)
		c.Mid = append(c.Mid, mid)
		c.DTE = append(c.DTE, 18)
		c.Expiration = append(c.Expiration, jan19)
	}
	return c
}

func newMux() (*http.ServeMux, *service.Service) {
	src := marketdata.NewStaticSource().
		SetExpirations("AAPL", "2024-01-19").
		SetChain("AAPL", "2024-01-19", model.SideCall, chain(100, 50, 60, 70)).
		SetExpirations("MSFT", "2024-01-19").
		SetChain("MSFT", "2024-01-19", model.SideCall, chain(200, 150)).
		FailExpirations("BAD", errors.New("upstream 500")).
		SetExpirations("NONE")
	svc := service.New(src,
		service.WithBasis(pricing.Mid()),
		service.WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }),
	)
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return mux, svc
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

type viewBody struct {
	RunID    string `json:"run_id"`
	APICalls int64  `json:"api_calls"`
	Total    int    `json:"total"`
	Count    int    `json:"count"`
	Summary  string `json:"summary"`
	Sort     struct {
		Column    string `json:"column"`
		Direction string `json:"direction"`
	} `json:"sort"`
	SpotPrice *float64 `json:"spot_price"`
	Records   []struct {
		Symbol string  `json:"symbol"`
		Strike float64 `json:"strike"`
	} `json:"records"`
	Errors []struct {
		Symbol string `json:"symbol"`
	} `json:"errors"`
}

func decodeView(w *httptest.ResponseRecorder) viewBody {
	var v viewBody
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func TestServer_Screen(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, _ := newMux()

		Convey("When screening two symbols and a failing one", func() {
			w := do(mux, http.MethodPost, "/screen", `{"symbols":["aapl","BAD","msft"]}`)

			Convey("Then the ranked run is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				v := decodeView(w)
				So(v.Total, ShouldEqual, 4)
				So(v.Count, ShouldEqual, 4)
				So(v.APICalls, ShouldEqual, int64(7))
				So(v.Summary, ShouldEqual, "Found 4 options. API calls: 7")
				So(v.Sort.Column, ShouldEqual, "annPctCall")
				So(v.Sort.Direction, ShouldEqual, "desc")
				So(v.SpotPrice, ShouldBeNil)
				So(len(v.Errors), ShouldEqual, 1)
				So(v.Errors[0].Symbol, ShouldEqual, "BAD")
			})

			Convey("Then the run can be re-ranked by id", func() {
				id := decodeView(w).RunID
				r := do(mux, http.MethodGet, "/runs/"+id+"?sort=strike&dir=asc&limit=2", "")
				So(r.Code, ShouldEqual, http.StatusOK)
				v := decodeView(r)
				So(v.Count, ShouldEqual, 2)
				So(v.Total, ShouldEqual, 4)
				So(v.Records[0].Strike, ShouldEqual, 50.0)
				So(v.Records[1].Strike, ShouldEqual, 60.0)
			})

			Convey("Then header toggles cycle the sort", func() {
				id := decodeView(w).RunID
				v := decodeView(do(mux, http.MethodGet, "/runs/"+id+"?toggle=strike", ""))
				So(v.Sort.Column, ShouldEqual, "strike")
				So(v.Sort.Direction, ShouldEqual, "asc")

				v = decodeView(do(mux, http.MethodGet, "/runs/"+id+"?sort=strike&dir=asc&toggle=strike", ""))
				So(v.Sort.Direction, ShouldEqual, "desc")

				v = decodeView(do(mux, http.MethodGet, "/runs/"+id+"?sort=strike&dir=desc&toggle=strike", ""))
				So(v.Sort.Column, ShouldEqual, "annPctCall")
				So(v.Sort.Direction, ShouldEqual, "desc")

				r := do(mux, http.MethodGet, "/runs/"+id+"?toggle=nope", "")
				So(r.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then the latest run is available", func() {
				r := do(mux, http.MethodGet, "/runs/latest?sort=symbol&dir=desc", "")
				So(r.Code, ShouldEqual, http.StatusOK)
				So(decodeView(r).Records[0].Symbol, ShouldEqual, "MSFT")
			})
		})

		Convey("When screening a single symbol", func() {
			w := do(mux, http.MethodPost, "/screen", `{"symbols":["MSFT"]}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			v := decodeView(w)
			So(v.SpotPrice, ShouldNotBeNil)
			So(*v.SpotPrice, ShouldEqual, 200.0)
		})

		Convey("When nothing qualifies", func() {
			w := do(mux, http.MethodPost, "/screen", `{"symbols":["NONE"]}`)

			Convey("Then 422 carries the message and cost", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(w.Body.String(), ShouldContainSubstring, service.NoResultsMessage)
				So(w.Body.String(), ShouldContainSubstring, `"api_calls":1`)
			})
		})

		Convey("When every symbol fails upstream", func() {
			w := do(mux, http.MethodPost, "/screen", `{"symbols":["BAD"]}`)
			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(w.Body.String(), ShouldContainSubstring, "provider_error")
		})

		Convey("When the request is malformed", func() {
			for _, body := range []string{
				`{`,
				`{}`,
				`{"symbols":["AAPL"],"unknown":1}`,
				`{"symbols":["AAPL"],"limit":-1}`,
				`{"symbols":["AAPL"],"min_dte":10,"max_dte":5}`,
				`{"symbols":["AAPL"],"sort":"volume"}`,
				`{"symbols":["AAPL$"]}`,
			} {
				w := do(mux, http.MethodPost, "/screen", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When a run id is unknown or invalid", func() {
			So(do(mux, http.MethodGet, "/runs/"+uuid.NewString(), "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/runs/not-a-uuid", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/runs/latest", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the method does not match", func() {
			So(do(mux, http.MethodGet, "/screen", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_Symbols(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, _ := newMux()

		Convey("When symbols are added and removed", func() {
			So(do(mux, http.MethodPost, "/symbols", `{"symbol":" aapl "}`).Code, ShouldEqual, http.StatusCreated)
			w := do(mux, http.MethodPost, "/symbols", `{"symbol":"MSFT"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			So(w.Body.String(), ShouldContainSubstring, `["AAPL","MSFT"]`)

			r := do(mux, http.MethodDelete, "/symbols/aapl", "")
			So(r.Code, ShouldEqual, http.StatusOK)
			So(r.Body.String(), ShouldContainSubstring, `["MSFT"]`)

			l := do(mux, http.MethodGet, "/symbols", "")
			So(l.Code, ShouldEqual, http.StatusOK)
			So(l.Body.String(), ShouldContainSubstring, `["MSFT"]`)
		})

		Convey("When screening the saved list", func() {
			do(mux, http.MethodPost, "/symbols", `{"symbol":"MSFT"}`)
			w := do(mux, http.MethodPost, "/screen", `{"use_saved":true}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeView(w).Total, ShouldEqual, 1)
		})

		Convey("When the input is bad", func() {
			So(do(mux, http.MethodPost, "/symbols", `{"symbol":""}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/symbols", `nope`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/symbols", `{"symbol":"A$"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodDelete, "/symbols/ZZZ", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Ops(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, _ := newMux()

		Convey("Then health, stats and metrics respond", func() {
			h := do(mux, http.MethodGet, "/healthz", "")
			So(h.Code, ShouldEqual, http.StatusOK)
			So(h.Body.String(), ShouldContainSubstring, `"ok"`)

			s := do(mux, http.MethodGet, "/stats", "")
			So(s.Code, ShouldEqual, http.StatusOK)
			So(s.Body.String(), ShouldContainSubstring, `"basis":"mid"`)
			So(s.Body.String(), ShouldContainSubstring, `"uptimeSeconds"`)

			do(mux, http.MethodGet, "/runs/latest", "")
			m := do(mux, http.MethodGet, "/metrics", "")
			So(m.Code, ShouldEqual, http.StatusOK)
			So(m.Body.String(), ShouldContainSubstring, "covcall_screener_http_requests_total")
		})
	})
}

type failingDeps struct {
	api.Dependencies
	err error
}

func (f failingDeps) Screen(context.Context, service.ScreenRequest) (*service.View, error) {
	return nil, f.err
}

type emptyStats struct{}

func (emptyStats) GetStats() map[string]any { return map[string]any{} }

func TestServer_ErrorMapping(t *testing.T) {
	Convey("Given a dependency that fails", t, func() {
		cases := map[error]int{
			context.DeadlineExceeded: http.StatusGatewayTimeout,
			errors.New("boom"):       http.StatusInternalServerError,
		}
		for err, status := range cases {
			mux := http.NewServeMux()
			api.NewServer(failingDeps{err: err}, emptyStats{}).Register(context.Background(), mux)
			w := do(mux, http.MethodPost, "/screen", `{"symbols":["AAPL"]}`)
			So(w.Code, ShouldEqual, status)
		}
	})
}
