package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"golang.org/x/term"

	service "github.com/okian/covcall/internal/app"
	"github.com/okian/covcall/internal/domain/model"
	"github.com/okian/covcall/internal/screening"
)

// Output writes human or JSON output for one command.
type Output struct {
	w        io.Writer
	jsonMode bool

	heading *color.Color
	success *color.Color
	warn    *color.Color
	failure *color.Color
}

// NewOutput creates an Output. Color is used only when w is a terminal
// and noColor is false.
func NewOutput(w io.Writer, jsonMode, noColor bool) *Output {
	o := &Output{
		w:        w,
		jsonMode: jsonMode,
		heading:  color.New(color.FgCyan, color.Bold),
		success:  color.New(color.FgGreen),
		warn:     color.New(color.FgYellow),
		failure:  color.New(color.FgRed),
	}
	if noColor || jsonMode || !isTerminal(w) {
		for _, c := range []*color.Color{o.heading, o.success, o.warn, o.failure} {
			c.DisableColor()
		}
	} else {
		for _, c := range []*color.Color{o.heading, o.success, o.warn, o.failure} {
			c.EnableColor()
		}
	}
	return o
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// IsJSON reports JSON mode.
func (o *Output) IsJSON() bool { return o.jsonMode }

// JSON writes v indented.
func (o *Output) JSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Println writes a plain line.
func (o *Output) Println(args ...any) {
	fmt.Fprintln(o.w, args...)
}

// Heading writes a highlighted line.
func (o *Output) Heading(format string, args ...any) {
	o.heading.Fprintf(o.w, format+"\n", args...)
}

// Success writes a green line.
func (o *Output) Success(format string, args ...any) {
	o.success.Fprintf(o.w, format+"\n", args...)
}

// Warn writes a yellow line.
func (o *Output) Warn(format string, args ...any) {
	o.warn.Fprintf(o.w, format+"\n", args...)
}

// Failures lists per-symbol retrieval errors.
func (o *Output) Failures(errs []screening.SymbolError) {
	for _, e := range errs {
		o.failure.Fprintf(o.w, "%s: %s\n", e.Symbol, e.Error)
	}
}

// View renders a ranked run as a table. Single-symbol runs drop the
// symbol and price columns and show the price in the heading instead.
func (o *Output) View(v *service.View) error {
	single := v.Single()
	if spot, ok := v.Spot(); ok {
		o.Heading("%s  price %s", v.Symbols[0], num(spot))
	}
	if len(v.Labels) > 1 {
		o.Println("Metrics:", v.Metrics, "("+strings.Join(v.Labels, "/")+")")
	}

	puts := len(v.Records) > 0 && v.Records[0].Put != nil
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', tabwriter.AlignRight)

	var head []string
	if !single {
		head = append(head, "SYMBOL", "PRICE")
	}
	head = append(head, "EXPIRATION", "DTE", "STRIKE", "STRIKE %", "BID", "ASK", "MID",
		"COST", "MAX PROFIT", "% CALL", "ANN % CALL")
	if puts {
		head = append(head, "PUT MID", "% PUT", "ANN % PUT")
	}
	fmt.Fprintln(tw, strings.Join(head, "\t")+"\t")

	for _, r := range v.Records {
		fmt.Fprintln(tw, strings.Join(row(r, v.Metrics, single, puts), "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	o.Success("%s", v.Summary())
	o.Failures(v.Errors)
	return nil
}

func row(r model.Record, label string, single, puts bool) []string {
	m := r.Active(label)
	var cells []string
	if !single {
		cells = append(cells, r.Symbol, num(r.SpotPrice))
	}
	cells = append(cells,
		r.ExpirationDisplayDate,
		fmt.Sprintf("%d", r.DTE),
		num(r.Strike),
		pct(r.PriceStrikePct),
		num(r.Bid),
		num(r.Ask),
		num(r.Mid),
		num(m.Cost),
		num(m.MaxProfit),
		pct(m.PctCall),
		pct(m.AnnPctCall),
	)
	if puts {
		leg := model.PutLeg{}
		if r.Put != nil {
			leg = *r.Put
		}
		cells = append(cells, optNum(leg.PutMid), optPct(leg.PctPut), optPct(leg.AnnPctPut))
	}
	return cells
}
