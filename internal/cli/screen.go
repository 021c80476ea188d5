package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	service "github.com/okian/covcall/internal/app"
	"github.com/okian/covcall/internal/domain/model"
	"github.com/okian/covcall/internal/domain/ranking"
	"github.com/okian/covcall/internal/screening"
)

type screenFlags struct {
	minStrike   float64
	maxStrike   float64
	minDTE      int
	maxDTE      int
	basis       string
	puts        bool
	concurrency int
	sort        string
	dir         string
	metrics     string
	limit       int
	saved       bool
	save        bool
}

// jsonView is the --json shape of a screening.
type jsonView struct {
	RunID    string                  `json:"run_id"`
	Basis    string                  `json:"basis"`
	Metrics  string                  `json:"metrics"`
	Summary  string                  `json:"summary"`
	APICalls int64                   `json:"api_calls"`
	Total    int                     `json:"total"`
	Records  []model.Record          `json:"records"`
	Errors   []screening.SymbolError `json:"errors"`
}

func (a *App) screenCmd() *cobra.Command {
	var f screenFlags
	cmd := &cobra.Command{
		Use:   "screen [symbols...]",
		Short: "Screen symbols for covered calls",
		Long: "Screen symbols for covered calls. Symbols may be separated by spaces or commas\n" +
			"and are upper-cased and de-duplicated. With --saved, the saved list is used\n" +
			"when no symbols are given.",
		Example: "  screener screen aapl,msft --min-dte 7 --max-dte 30 --sort annPctCall --dir desc",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := a.config(cmd)
			if err != nil {
				return err
			}

			fl := cmd.Flags()
			if fl.Changed("basis") {
				cfg.PriceBasis = f.basis
			}
			if fl.Changed("puts") {
				cfg.IncludePuts = f.puts
			}
			if fl.Changed("concurrency") {
				cfg.Concurrency = f.concurrency
			}
			if fl.Changed("limit") {
				cfg.MaxRows = f.limit
			}

			svc, err := a.open(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer svc.Stop()

			req := service.ScreenRequest{
				Symbols:  args,
				UseSaved: f.saved,
				Save:     f.save,
				View:     service.ViewRequest{Sort: f.sort, Direction: f.dir, Metrics: f.metrics},
			}
			if fl.Changed("min-strike") {
				req.MinStrikePct = &f.minStrike
			}
			if fl.Changed("max-strike") {
				req.MaxStrikePct = &f.maxStrike
			}
			if fl.Changed("min-dte") {
				req.MinDTE = &f.minDTE
			}
			if fl.Changed("max-dte") {
				req.MaxDTE = &f.maxDTE
			}

			out := a.output(cmd)
			view, err := svc.Screen(ctx, req)
			var nr *service.NoResultsError
			if errors.As(err, &nr) {
				if out.IsJSON() {
					return out.JSON(jsonView{Summary: service.NoResultsMessage, APICalls: nr.APICalls,
						Records: []model.Record{}, Errors: nonNil(nr.Errors)})
				}
				out.Warn("%s", service.NoResultsMessage)
				out.Println(fmt.Sprintf("API calls: %d", nr.APICalls))
				out.Failures(nr.Errors)
				return nil
			}
			if err != nil {
				return err
			}

			if out.IsJSON() {
				return out.JSON(jsonView{
					RunID:    view.RunID.String(),
					Basis:    view.Basis,
					Metrics:  view.Metrics,
					Summary:  view.Summary(),
					APICalls: view.APICalls,
					Total:    view.Total,
					Records:  view.Records,
					Errors:   nonNil(view.Errors),
				})
			}
			return out.View(view)
		},
	}

	fl := cmd.Flags()
	fl.Float64Var(&f.minStrike, "min-strike", 30, "minimum strike as % of price")
	fl.Float64Var(&f.maxStrike, "max-strike", 80, "maximum strike as % of price")
	fl.IntVar(&f.minDTE, "min-dte", 1, "minimum days to expiration")
	fl.IntVar(&f.maxDTE, "max-dte", 45, "maximum days to expiration")
	fl.StringVar(&f.basis, "basis", "", "price basis: mid, bid, dual or blend:<0-100>")
	fl.BoolVar(&f.puts, "puts", false, "match puts at the same strike and expiration")
	fl.IntVar(&f.concurrency, "concurrency", 1, "symbols retrieved in parallel")
	fl.StringVar(&f.sort, "sort", "", "sort column (see 'screener columns')")
	fl.StringVar(&f.dir, "dir", "", "sort direction: asc or desc")
	fl.StringVar(&f.metrics, "metrics", "", "metric set for dual basis: mid or bid")
	fl.IntVar(&f.limit, "limit", 0, "maximum rows shown; 0 shows all")
	fl.BoolVar(&f.saved, "saved", false, "screen the saved symbols when none are given")
	fl.BoolVar(&f.save, "save", false, "add the given symbols to the saved list")
	return cmd
}

func (a *App) columnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "List sortable columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cols := ranking.Columns()
			names := make([]string, len(cols))
			for i, c := range cols {
				names[i] = string(c)
			}
			out := a.output(cmd)
			if out.IsJSON() {
				return out.JSON(names)
			}
			out.Println(strings.Join(names, "\n"))
			return nil
		},
	}
}

func nonNil(errs []screening.SymbolError) []screening.SymbolError {
	if errs == nil {
		return []screening.SymbolError{}
	}
	return errs
}
