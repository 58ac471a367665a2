package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Lunedor/plex-parity/internal/scan"
	"github.com/Lunedor/plex-parity/internal/showcache"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <key>",
		Short: "Re-evaluate one show with a deep audit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(ws *workspace) error {
				res, err := ws.orch.RefreshShow(cmd.Context(), args[0])
				if err != nil && !errors.Is(err, scan.ErrUnresolved) {
					return err
				}
				if printErr := printShowResult(cmd, ctx.wantJSON(), res); printErr != nil {
					return printErr
				}
				return err
			})
		},
	}
}

func newOverrideCommand(ctx *commandContext) *cobra.Command {
	overrideCmd := &cobra.Command{
		Use:   "override",
		Short: "Pin or remove a manual TMDB id for a show",
	}

	overrideCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <tmdb-id>",
		Short: "Pin a TMDB id and refresh the show",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(ws *workspace) error {
				res, err := ws.orch.SetOverride(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printShowResult(cmd, ctx.wantJSON(), res)
			})
		},
	})

	overrideCmd.AddCommand(&cobra.Command{
		Use:   "clear <key>",
		Short: "Remove a manual TMDB id and remap the show",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(ws *workspace) error {
				res, err := ws.orch.ClearOverride(cmd.Context(), args[0])
				if err != nil && !errors.Is(err, scan.ErrUnresolved) {
					return err
				}
				if printErr := printShowResult(cmd, ctx.wantJSON(), res); printErr != nil {
					return printErr
				}
				return err
			})
		},
	})

	return overrideCmd
}

func printShowResult(cmd *cobra.Command, asJSON bool, res showcache.Result) error {
	if asJSON {
		return writeJSON(cmd, res)
	}
	writeShowResult(cmd.OutOrStdout(), res)
	return nil
}

func writeShowResult(out io.Writer, res showcache.Result) {
	fmt.Fprintf(out, "%s [%s]\n", showLabel(res.Title, res.Year), res.Key)
	tmdb := "unmatched"
	if res.CatalogID > 0 {
		tmdb = strconv.FormatInt(res.CatalogID, 10)
		if res.Source != "" {
			tmdb += " (" + res.Source + ")"
		}
	}
	fmt.Fprintf(out, "  TMDB:     %s\n", tmdb)
	fmt.Fprintf(out, "  IMDb:     %s\n", dash(res.SecondaryID))
	fmt.Fprintf(out, "  Status:   %s\n", res.Status)
	fmt.Fprintf(out, "  Missing:  %s\n", dash(joinCodes(res.Missing, 0)))
	if res.IgnoreAll {
		fmt.Fprintln(out, "  Ignored:  all missing episodes")
	}
	if res.NextAir != nil {
		fmt.Fprintf(out, "  Next air: %s %s\n", res.NextAir.Date, res.NextAir.Code)
	}
}
