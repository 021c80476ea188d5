package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/covcall/internal/cli"
	"github.com/okian/covcall/internal/domain/model"
)

const fixture = "../adapters/marketdata/testdata/demo.json"

var newYear = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

func run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := cli.NewRootCmd(cli.WithClock(newYear))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--fixture", fixture, "--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type screenJSON struct {
	Summary  string            `json:"summary"`
	Basis    string            `json:"basis"`
	APICalls int64             `json:"api_calls"`
	Total    int               `json:"total"`
	Records  []json.RawMessage `json:"records"`
	Errors   []struct {
		Symbol string `json:"symbol"`
	} `json:"errors"`
}

func TestScreenCommand(t *testing.T) {
	Convey("Given the demo fixture and a clock at 2024-01-01", t, func() {
		Convey("When screening two symbols as a table", func() {
			out, err := run("screen", "aapl,msft")
			So(err, ShouldBeNil)

			Convey("Then both symbols appear with the summary line", func() {
				So(out, ShouldContainSubstring, "SYMBOL")
				So(out, ShouldContainSubstring, "AAPL")
				So(out, ShouldContainSubstring, "MSFT")
				So(out, ShouldContainSubstring, "ANN % CALL")
				So(out, ShouldContainSubstring, "Found 5 options. API calls:")
			})
		})

		Convey("When screening a single symbol", func() {
			out, err := run("screen", "AAPL")
			So(err, ShouldBeNil)

			Convey("Then the price moves into the heading", func() {
				So(out, ShouldContainSubstring, "AAPL  price 185.20")
				So(out, ShouldNotContainSubstring, "SYMBOL")
				So(out, ShouldContainSubstring, "Found 4 options.")
			})
		})

		Convey("When screening with JSON output", func() {
			out, err := run("--json", "screen", "AAPL", "MSFT", "BAD", "--sort", "strike", "--dir", "asc", "--basis", "mid")
			So(err, ShouldBeNil)

			var v screenJSON
			So(json.Unmarshal([]byte(out), &v), ShouldBeNil)

			Convey("Then records are ranked by strike and failures are reported", func() {
				So(v.Basis, ShouldEqual, "mid")
				So(v.Total, ShouldEqual, 5)
				So(v.Records, ShouldHaveLength, 5)
				So(v.Errors, ShouldHaveLength, 1)
				So(v.Errors[0].Symbol, ShouldEqual, "BAD")
				So(v.APICalls, ShouldBeGreaterThan, 0)

				strikes := make([]float64, len(v.Records))
				for i, raw := range v.Records {
					var r struct {
						Strike float64 `json:"strike"`
					}
					So(json.Unmarshal(raw, &r), ShouldBeNil)
					strikes[i] = r.Strike
				}
				So(strikes, ShouldResemble, []float64{120, 130, 140, 145, 250})
			})
		})

		Convey("When --limit truncates the view", func() {
			out, err := run("--json", "screen", "AAPL", "--limit", "2")
			So(err, ShouldBeNil)

			var v screenJSON
			So(json.Unmarshal([]byte(out), &v), ShouldBeNil)
			So(v.Total, ShouldEqual, 4)
			So(v.Records, ShouldHaveLength, 2)
		})

		Convey("When the DTE window excludes every expiration", func() {
			out, err := run("screen", "AAPL", "--min-dte", "30", "--max-dte", "40")

			Convey("Then the no-results message is printed without failing", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "No valid call options found after filtering.")
				So(out, ShouldContainSubstring, "API calls: 1")
			})
		})

		Convey("When every symbol fails", func() {
			out, err := run("screen", "BAD")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "No valid call options found after filtering.")
			So(out, ShouldContainSubstring, "BAD:")
		})

		Convey("When the request is invalid", func() {
			_, err := run("screen", "AAPL", "--min-strike", "90", "--max-strike", "10")
			So(err, ShouldNotBeNil)

			_, err = run("screen", "AAPL", "--sort", "nope")
			So(err, ShouldNotBeNil)

			_, err = run("screen", "AAPL", "--basis", "blend:150")
			So(err, ShouldNotBeNil)
		})

		Convey("When no symbols are given", func() {
			_, err := run("screen")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSymbolsCommand(t *testing.T) {
	Convey("Given a saved symbols file", t, func() {
		file := filepath.Join(t.TempDir(), "symbols.json")

		Convey("When symbols are added, listed and removed", func() {
			out, err := run("--symbols-file", file, "symbols", "add", "msft", "aapl")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "MSFT, AAPL")

			out, err = run("--symbols-file", file, "--json", "symbols", "list")
			So(err, ShouldBeNil)
			var list struct {
				Symbols []string `json:"symbols"`
			}
			So(json.Unmarshal([]byte(out), &list), ShouldBeNil)
			So(list.Symbols, ShouldResemble, []string{"MSFT", "AAPL"})

			out, err = run("--symbols-file", file, "symbols", "remove", "MSFT")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "AAPL")
			So(out, ShouldNotContainSubstring, "MSFT")

			Convey("Then --saved screens the remaining list", func() {
				out, err := run("--symbols-file", file, "screen", "--saved")
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "AAPL  price 185.20")
			})
		})

		Convey("When removing a symbol that was never saved", func() {
			_, err := run("--symbols-file", file, "symbols", "remove", "TSLA")
			So(err, ShouldNotBeNil)
		})

		Convey("When the list is empty", func() {
			out, err := run("--symbols-file", file, "symbols", "list")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "No saved symbols.")
		})
	})
}

func TestColumnsCommand(t *testing.T) {
	Convey("When listing columns", t, func() {
		out, err := run("columns")
		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, "annPctCall")
		So(out, ShouldContainSubstring, "expirationDate")
	})
}

func TestFormat(t *testing.T) {
	Convey("Given non-finite values", t, func() {
		So(cli.Num(math.NaN()), ShouldEqual, "NaN")
		So(cli.Num(math.Inf(1)), ShouldEqual, "Infinity")
		So(cli.Num(1.5), ShouldEqual, "1.50")
		So(cli.Pct(12.3456), ShouldEqual, "12.35%")
		So(cli.OptPct(model.Optional{}), ShouldEqual, "N/A")
	})
}
