package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	service "github.com/ralucacrepcea/scoreapp/internal/app"
	"github.com/ralucacrepcea/scoreapp/internal/export"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "export ranking|live|full",
		Short:     "Write a CSV export of the persisted scores",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(export.KindRanking), string(export.KindLive), string(export.KindFull)},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			kind := export.Kind(args[0])
			report, err := e.svc.Report(ctx, service.View{Live: kind == export.KindLive})
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := export.Write(w, kind, report); err != nil {
				return err
			}
			e.log.Info(ctx, "export written",
				logger.String("kind", string(kind)),
				logger.Int("teams", len(report.Teams)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newReconcileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <round> [total]",
		Short: "Reconcile the checkpoints of a round, optionally setting a new count",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			var res any
			if len(args) == 2 {
				total, err := strconv.Atoi(args[1])
				if err != nil || total < 0 {
					return fmt.Errorf("invalid checkpoint total %q", args[1])
				}
				res, err = e.svc.SetRoundTotal(ctx, args[0], total)
				if err != nil {
					return err
				}
			} else {
				res, err = e.svc.ReconcileRound(ctx, args[0])
				if err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", res)
			return err
		},
	}
}
