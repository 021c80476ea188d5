package screening_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/covcall/internal/adapters/marketdata"
	"github.com/okian/covcall/internal/domain/model"
	"github.com/okian/covcall/internal/domain/pricing"
	"github.com/okian/covcall/internal/screening"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	jan19 = int64(1705622400)
	jan26 = int64(1706227200)
)

var today = time.Date(2024, 1, 1, 14, 30, 0, 0, time.UTC)

var filters = model.Filters{MinStrikePct: 30, MaxStrikePct: 80, MinDTE: 1, MaxDTE: 45}

type leg struct {
	strike float64
	dte    int
}

func chain(spot float64, epoch int64, legs ...leg) *marketdata.ChainResponse {
	c := &marketdata.ChainResponse{Status: marketdata.StatusOK}
	if spot > 0 {
		c.UnderlyingPrice = []float64{spot}
	}
	for _, l := range legs {
		c.OptionSymbol = append(c.OptionSymbol, "OPT")
		c.Strike = append(c.Strike, l.strike)
		c.Bid = append(c.Bid, 1)
		c.Ask = append(c.Ask, 3)
		c.Mid = append(c.Mid, 2)
		c.DTE = append(c.DTE, l.dte)
		c.Expiration = append(c.Expiration, epoch)
	}
	return c
}

func fixture() *marketdata.StaticSource {
	return marketdata.NewStaticSource().
		SetExpirations("AAPL", "2024-01-19", "2024-01-26", "2024-03-15").
		SetChain("AAPL", "2024-01-19", model.SideCall,
			chain(100, jan19, leg{25, 18}, leg{50, 18}, leg{75, 18}, leg{90, 18})).
		SetChain("AAPL", "2024-01-26", model.SideCall,
			chain(100, jan26, leg{60, 25}, leg{70, 25}, leg{65, 99})).
		FailExpirations("BAD", errors.New("upstream 500")).
		SetExpirations("MSFT", "2024-01-19").
		SetChain("MSFT", "2024-01-19", model.SideCall, chain(200, jan19, leg{150, 18}))
}

func newPipeline(src marketdata.Source, opts ...screening.Option) *screening.Pipeline {
	f := screening.NewFetcher(src, screening.WithClock(func() time.Time { return today }))
	return screening.NewPipeline(f, pricing.NewEngine(pricing.Mid()), opts...)
}

func strikes(rs []model.Record) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Strike
	}
	return out
}

func TestFetchSymbol(t *testing.T) {
	Convey("Given a symbol with two expirations in the DTE window", t, func() {
		src := fixture()
		f := screening.NewFetcher(src, screening.WithClock(func() time.Time { return today }))
		var stats model.RetrievalStats

		rows, err := f.FetchSymbol(context.Background(), "AAPL", filters, &stats)

		Convey("Then the probe uses the first expiration without strike bounds", func() {
			So(err, ShouldBeNil)
			q := src.Queries()
			So(len(q), ShouldEqual, 3)
			So(q[0].Expiration, ShouldEqual, "2024-01-19")
			So(q[0].Strikes, ShouldBeNil)
		})

		Convey("Then the strike bounds are floor(spot*pct/100)", func() {
			q := src.Queries()
			So(*q[1].Strikes, ShouldResemble, marketdata.StrikeRange{Min: 30, Max: 80})
			So(q[2].Expiration, ShouldEqual, "2024-01-26")
		})

		Convey("Then rows outside the strike bounds or DTE window are dropped", func() {
			So(len(rows), ShouldEqual, 4)
			So(rows[0].Call.Strike, ShouldEqual, 50.0)
			So(rows[1].Call.Strike, ShouldEqual, 75.0)
			So(rows[2].Call.Strike, ShouldEqual, 60.0)
			So(rows[3].Call.Strike, ShouldEqual, 70.0)
			So(rows[0].Spot, ShouldEqual, 100.0)
			So(rows[0].PutsScreened, ShouldBeFalse)
		})

		Convey("Then every retrieval counted once, the expirations query included", func() {
			So(stats.APICalls(), ShouldEqual, int64(4))
			So(src.Calls(), ShouldEqual, 4)
		})
	})

	Convey("Given a symbol whose expirations query fails", t, func() {
		f := screening.NewFetcher(fixture(), screening.WithClock(func() time.Time { return today }))
		var stats model.RetrievalStats

		_, err := f.FetchSymbol(context.Background(), "BAD", filters, &stats)

		Convey("Then a retrieval error names the symbol", func() {
			So(errors.Is(err, screening.ErrRetrieval), ShouldBeTrue)
			var re *screening.RetrievalError
			So(errors.As(err, &re), ShouldBeTrue)
			So(re.Symbol, ShouldEqual, "BAD")
			So(stats.APICalls(), ShouldEqual, int64(1))
		})
	})

	Convey("Given empty outcomes", t, func() {
		var stats model.RetrievalStats
		ctx := context.Background()
		clock := screening.WithClock(func() time.Time { return today })

		Convey("When the symbol has no expirations", func() {
			src := marketdata.NewStaticSource().SetExpirations("NONE")
			rows, err := screening.NewFetcher(src, clock).FetchSymbol(ctx, "NONE", filters, &stats)
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
			So(stats.APICalls(), ShouldEqual, int64(1))
		})

		Convey("When no expiration is in the DTE window", func() {
			src := marketdata.NewStaticSource().SetExpirations("FAR", "2025-06-20")
			rows, err := screening.NewFetcher(src, clock).FetchSymbol(ctx, "FAR", filters, &stats)
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
			So(stats.APICalls(), ShouldEqual, int64(1))
		})

		Convey("When the probe fails", func() {
			src := marketdata.NewStaticSource().
				SetExpirations("PRB", "2024-01-19").
				FailChain("PRB", "2024-01-19", model.SideCall, errors.New("timeout"))
			rows, err := screening.NewFetcher(src, clock).FetchSymbol(ctx, "PRB", filters, &stats)
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
			So(stats.APICalls(), ShouldEqual, int64(2))
		})

		Convey("When the probe carries no spot price", func() {
			src := marketdata.NewStaticSource().
				SetExpirations("NSP", "2024-01-19").
				SetChain("NSP", "2024-01-19", model.SideCall, chain(0, jan19, leg{50, 18}))
			rows, err := screening.NewFetcher(src, clock).FetchSymbol(ctx, "NSP", filters, &stats)
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
			So(stats.APICalls(), ShouldEqual, int64(2))
		})

		Convey("When one expiration fails after the probe", func() {
			src := fixture().FailChain("AAPL", "2024-01-26", model.SideCall, errors.New("502"))
			rows, err := screening.NewFetcher(src, clock).FetchSymbol(ctx, "AAPL", filters, &stats)

			Convey("Then it is skipped and the rest is kept", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
				So(stats.APICalls(), ShouldEqual, int64(4))
			})
		})
	})
}

func TestFetchSymbolWithoutStats(t *testing.T) {
	Convey("Given no stats counter", t, func() {
		f := screening.NewFetcher(fixture(), screening.WithClock(func() time.Time { return today }))

		rows, err := f.FetchSymbol(context.Background(), "AAPL", filters, nil)

		Convey("Then the symbol is still fetched", func() {
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 4)
		})
	})
}

func TestFetchSymbolWithPuts(t *testing.T) {
	Convey("Given puts are screened", t, func() {
		src := fixture().
			SetChain("AAPL", "2024-01-19", model.SidePut, &marketdata.ChainResponse{
				Status:       marketdata.StatusOK,
				OptionSymbol: []string{"P50", "P50b"},
				Side:         []string{"put", "put"},
				Strike:       []float64{50, 50},
				Bid:          []float64{3, 9},
				Ask:          []float64{5, 9},
				Mid:          []float64{4, 9},
				DTE:          []int{18, 18},
				Expiration:   []int64{jan19, jan19},
			}).
			FailChain("AAPL", "2024-01-26", model.SidePut, errors.New("boom"))
		f := screening.NewFetcher(src,
			screening.WithClock(func() time.Time { return today }),
			screening.WithPuts(true))
		var stats model.RetrievalStats

		rows, err := f.FetchSymbol(context.Background(), "AAPL", filters, &stats)

		Convey("Then one put retrieval is issued per qualifying expiration", func() {
			So(err, ShouldBeNil)
			So(stats.APICalls(), ShouldEqual, int64(6))
		})

		Convey("Then the first exact match is attached and the rest carry none", func() {
			So(len(rows), ShouldEqual, 4)
			for _, r := range rows {
				So(r.PutsScreened, ShouldBeTrue)
			}
			So(rows[0].Put, ShouldNotBeNil)
			So(rows[0].Put.Mid, ShouldEqual, 4.0)
			So(rows[1].Put, ShouldBeNil)
			So(rows[2].Put, ShouldBeNil)
		})

		Convey("Then the records show no-data sentinels for unmatched calls", func() {
			engine := pricing.NewEngine(pricing.Mid())
			matched := engine.Record("AAPL", rows[0])
			unmatched := engine.Record("AAPL", rows[1])
			So(matched.Put.PctPut.Value, ShouldAlmostEqual, 4.0/46.0*100, 1e-9)
			So(unmatched.Put.PutMid.String(), ShouldEqual, model.NoData)
			So(unmatched.Put.AnnPctPut.String(), ShouldEqual, model.NoData)
		})
	})
}

func TestPipelineRun(t *testing.T) {
	Convey("Given symbols AAPL, BAD and MSFT where BAD fails", t, func() {
		symbols := []string{"AAPL", "BAD", "MSFT"}

		Convey("When run sequentially", func() {
			res, err := newPipeline(fixture()).Run(context.Background(), symbols, filters)

			Convey("Then records for AAPL and MSFT are returned in symbol then expiration order", func() {
				So(err, ShouldBeNil)
				So(res.Empty(), ShouldBeFalse)
				So(strikes(res.Records), ShouldResemble, []float64{50, 75, 60, 70, 150})
				So(res.Records[4].Symbol, ShouldEqual, "MSFT")
				So(res.Records[0].ExpirationDisplayDate, ShouldEqual, "19/01/2024")
			})

			Convey("Then exactly one symbol error is reported, for BAD", func() {
				So(len(res.Errors), ShouldEqual, 1)
				So(res.Errors[0].Symbol, ShouldEqual, "BAD")
				So(res.Errors[0].Error, ShouldContainSubstring, "upstream 500")
			})

			Convey("Then the run carries its cost and configuration", func() {
				So(res.APICalls, ShouldEqual, int64(8))
				So(res.Basis, ShouldEqual, "mid")
				So(res.Labels, ShouldResemble, []string{"mid"})
				So(res.RunID.String(), ShouldNotBeEmpty)
			})
		})

		Convey("When run with several workers", func() {
			res, err := newPipeline(fixture(), screening.WithConcurrency(3)).Run(context.Background(), symbols, filters)

			Convey("Then the output matches the sequential run", func() {
				So(err, ShouldBeNil)
				So(strikes(res.Records), ShouldResemble, []float64{50, 75, 60, 70, 150})
				So(len(res.Errors), ShouldEqual, 1)
				So(res.Errors[0].Symbol, ShouldEqual, "BAD")
				So(res.APICalls, ShouldEqual, int64(8))
			})
		})

		Convey("When run twice", func() {
			p := newPipeline(fixture())
			first, err := p.Run(context.Background(), symbols, filters)
			So(err, ShouldBeNil)
			second, err := p.Run(context.Background(), symbols, filters)
			So(err, ShouldBeNil)

			Convey("Then the call counter restarts for each run", func() {
				So(first.APICalls, ShouldEqual, int64(8))
				So(second.APICalls, ShouldEqual, int64(8))
				So(second.RunID, ShouldNotEqual, first.RunID)
			})
		})
	})

	Convey("Given a caller that reuses its symbol slice", t, func() {
		symbols := []string{"AAPL", "MSFT"}
		res, err := newPipeline(fixture()).Run(context.Background(), symbols, filters)
		So(err, ShouldBeNil)
		symbols[0] = "TSLA"

		Convey("Then the result keeps its own copy", func() {
			So(res.Symbols, ShouldResemble, []string{"AAPL", "MSFT"})
		})
	})

	Convey("Given a provider answering an unknown symbol with 404 no_data", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"s":"no_data"}`))
		}))
		defer srv.Close()

		client := marketdata.NewClient(
			marketdata.WithBaseURL(srv.URL),
			marketdata.WithRateLimit(0, 0),
			marketdata.WithTimeout(2*time.Second),
		)
		res, err := newPipeline(client).Run(context.Background(), []string{"BAD"}, filters)

		Convey("Then the symbol is reported as a retrieval failure", func() {
			So(err, ShouldBeNil)
			So(res.Empty(), ShouldBeTrue)
			So(len(res.Errors), ShouldEqual, 1)
			So(res.Errors[0].Symbol, ShouldEqual, "BAD")
			So(res.APICalls, ShouldEqual, int64(1))
		})
	})

	Convey("Given a run that finds nothing", t, func() {
		src := marketdata.NewStaticSource().SetExpirations("NONE")
		res, err := newPipeline(src).Run(context.Background(), []string{"NONE"}, filters)

		Convey("Then the result is empty without being an error", func() {
			So(err, ShouldBeNil)
			So(res.Empty(), ShouldBeTrue)
			So(res.Errors, ShouldBeEmpty)
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newPipeline(fixture()).Run(ctx, []string{"AAPL", "MSFT"}, filters)
		So(errors.Is(err, context.Canceled), ShouldBeTrue)

		_, err = newPipeline(fixture(), screening.WithConcurrency(2)).Run(ctx, []string{"AAPL", "MSFT"}, filters)
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})

	Convey("Given a dual price basis", t, func() {
		f := screening.NewFetcher(fixture(), screening.WithClock(func() time.Time { return today }))
		res, err := screening.NewPipeline(f, pricing.NewEngine(pricing.Dual())).
			Run(context.Background(), []string{"MSFT"}, filters)

		Convey("Then every record carries mid and bid sets", func() {
			So(err, ShouldBeNil)
			So(len(res.Records), ShouldEqual, 1)
			So(len(res.Records[0].Metrics), ShouldEqual, 2)
			So(res.Records[0].Metrics[0].Label, ShouldEqual, "mid")
			So(res.Records[0].Metrics[1].Label, ShouldEqual, "bid")
		})
	})
}
