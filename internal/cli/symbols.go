package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	service "github.com/okian/covcall/internal/app"
)

func (a *App) symbolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Manage the saved symbol list",
	}
	cmd.AddCommand(
		a.symbolsSub("list", "Show saved symbols", cobra.NoArgs,
			func(ctx context.Context, svc *service.Service, _ []string) ([]string, error) {
				return svc.SavedSymbols(ctx)
			}),
		a.symbolsSub("add SYMBOL...", "Save symbols", cobra.MinimumNArgs(1),
			func(ctx context.Context, svc *service.Service, args []string) ([]string, error) {
				var saved []string
				for _, s := range args {
					var err error
					if saved, err = svc.AddSymbol(ctx, s); err != nil {
						return nil, err
					}
				}
				return saved, nil
			}),
		a.symbolsSub("remove SYMBOL...", "Remove saved symbols", cobra.MinimumNArgs(1),
			func(ctx context.Context, svc *service.Service, args []string) ([]string, error) {
				var saved []string
				for _, s := range args {
					var err error
					if saved, err = svc.RemoveSymbol(ctx, s); err != nil {
						return nil, err
					}
				}
				return saved, nil
			}),
	)
	return cmd
}

type symbolsOp func(ctx context.Context, svc *service.Service, args []string) ([]string, error)

func (a *App) symbolsSub(use, short string, args cobra.PositionalArgs, op symbolsOp) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := a.config(cmd)
			if err != nil {
				return err
			}
			svc, err := a.open(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer svc.Stop()

			saved, err := op(ctx, svc, args)
			if err != nil {
				return err
			}
			out := a.output(cmd)
			if out.IsJSON() {
				return out.JSON(map[string][]string{"symbols": saved})
			}
			if len(saved) == 0 {
				out.Println("No saved symbols.")
				return nil
			}
			out.Println(strings.Join(saved, ", "))
			return nil
		},
	}
}
