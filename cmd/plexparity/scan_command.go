package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lunedor/plex-parity/internal/logging"
	"github.com/Lunedor/plex-parity/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the library for missing and upcoming episodes",
		Long: "Scan the Plex library against TMDB.\n\n" +
			"full audits every show and every plausible season. incremental only visits new,\n" +
			"changed or still-active shows. refresh re-evaluates active cached shows without\n" +
			"listing the library. Both require a completed full scan.",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := scan.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withEngine(func(ws *workspace) error {
				out := cmd.OutOrStdout()
				progress := out
				if ctx.wantJSON() {
					progress = io.Discard
				}
				state, err := runScan(runCtx, ws, mode, progress)
				if err != nil {
					if errors.Is(err, scan.ErrFullScanRequired) {
						return fmt.Errorf("%w; run `plexparity scan --mode full` first", err)
					}
					return err
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, scanSummary(state))
				}
				printScanSummary(out, state)
				if state.Status == scan.StatusFailed {
					return errors.New(state.Err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", string(scan.ModeFull), "Scan mode: full, incremental or refresh")
	return cmd
}

// runScan drives one scan to a terminal state from the calling goroutine.
// Cancelling ctx requests a cooperative cancel; the final Step then runs on a
// background context so the run is recorded as cancelled.
func runScan(ctx context.Context, ws *workspace, mode scan.Mode, out io.Writer) (scan.State, error) {
	if n, err := ws.history.AbandonOpen(ctx, time.Now()); err != nil {
		ws.logger.Debug("abandoned runs not closed", logging.Error(err))
	} else if n > 0 {
		ws.logger.Info("marked interrupted scan runs", logging.Int64("runs", n))
	}

	if err := ws.orch.Start(ctx, mode); err != nil {
		return ws.orch.State(), err
	}
	state := ws.orch.State()
	fmt.Fprintln(out, state.LastStatus)
	if state.Status == scan.StatusIdle {
		return state, nil
	}

	cancelled := false
	last := state.LastStatus
	for {
		stepCtx := ctx
		if ctx.Err() != nil {
			if !cancelled {
				fmt.Fprintln(out, "Cancelling after the current show...")
				_ = ws.orch.Cancel()
				cancelled = true
			}
			stepCtx = context.Background()
		}

		next, err := ws.orch.Step(stepCtx)
		if err != nil {
			if ctx.Err() != nil && !cancelled {
				continue
			}
			return next, err
		}
		if next.LastStatus != last {
			fmt.Fprintf(out, "[%d/%d] %s\n", next.Cursor, next.Total, next.LastStatus)
			last = next.LastStatus
		}
		if next.Status.Terminal() {
			return next, nil
		}
	}
}

type scanSummaryJSON struct {
	RunID     string   `json:"run_id,omitempty"`
	Mode      string   `json:"mode,omitempty"`
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Processed int      `json:"processed"`
	Total     int      `json:"total"`
	Missing   int      `json:"shows_with_missing"`
	Unmatched []string `json:"unmatched"`
	Error     string   `json:"error,omitempty"`
}

func scanSummary(state scan.State) scanSummaryJSON {
	missing := 0
	for _, res := range state.Results {
		if len(res.Missing) > 0 {
			missing++
		}
	}
	unmatched := state.Unmatched
	if unmatched == nil {
		unmatched = []string{}
	}
	return scanSummaryJSON{
		RunID:     state.RunID,
		Mode:      string(state.Mode),
		Status:    string(state.Status),
		Message:   state.LastStatus,
		Processed: state.Cursor,
		Total:     state.Total,
		Missing:   missing,
		Unmatched: unmatched,
		Error:     state.Err,
	}
}

func printScanSummary(out io.Writer, state scan.State) {
	if state.Status == scan.StatusIdle {
		return
	}
	summary := scanSummary(state)
	fmt.Fprintf(out, "\n%s: %d/%d shows processed, %d with missing episodes, %d unmatched\n",
		summary.Message, summary.Processed, summary.Total, summary.Missing, len(summary.Unmatched))
	for _, label := range summary.Unmatched {
		fmt.Fprintf(out, "  unmatched: %s\n", label)
	}
	if len(summary.Unmatched) > 0 {
		fmt.Fprintln(out, "Use `plexparity override set <key> <tmdb-id>` to map unmatched shows.")
	}
}
