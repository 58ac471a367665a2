package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/Lunedor/plex-parity/internal/logging"
	"github.com/Lunedor/plex-parity/internal/scan"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var scheduleFlag string
	var modeFlag string
	var runNow bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run scans on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			schedule := strings.TrimSpace(scheduleFlag)
			if schedule == "" {
				schedule = cfg.Scan.Schedule
			}
			if schedule == "" {
				return errors.New("no schedule: set scan.schedule or pass --schedule")
			}
			modeName := modeFlag
			if modeName == "" {
				modeName = cfg.Scan.ScheduleMode
			}
			mode, err := scan.ParseMode(modeName)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withEngine(func(ws *workspace) error {
				logger := logging.NewComponentLogger(ws.logger, "watch")
				job := func() { scheduledScan(runCtx, ws, mode, logger) }

				cronLogger := cronLog{logger: logger}
				scheduler := cron.New(
					cron.WithLogger(cronLogger),
					cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
				)
				if _, err := scheduler.AddFunc(schedule, job); err != nil {
					return fmt.Errorf("invalid schedule %q: %w", schedule, err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Watching with schedule %q (%s scans). Press Ctrl+C to stop.\n", schedule, mode)
				if runNow {
					job()
				}
				scheduler.Start()
				<-runCtx.Done()
				<-scheduler.Stop().Done()
				fmt.Fprintln(cmd.OutOrStdout(), "Watch stopped")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&scheduleFlag, "schedule", "", "Cron expression (defaults to scan.schedule)")
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Scan mode (defaults to scan.schedule_mode)")
	cmd.Flags().BoolVar(&runNow, "now", false, "Run one scan immediately before waiting for the schedule")
	return cmd
}

// scheduledScan runs one scan, falling back to a full scan until the first
// full scan has completed.
func scheduledScan(ctx context.Context, ws *workspace, mode scan.Mode, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	state, err := runScan(ctx, ws, mode, io.Discard)
	if errors.Is(err, scan.ErrFullScanRequired) {
		logger.Info("full scan required, running full scan instead", logging.String(logging.FieldScanMode, string(mode)))
		state, err = runScan(ctx, ws, scan.ModeFull, io.Discard)
	}
	if err != nil {
		logging.WarnWithContext(logger, "scheduled scan failed", "watch_scan_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "results are stale until the next scheduled run"),
		)
		return
	}
	logger.Info("scheduled scan finished",
		logging.String(logging.FieldRunID, state.RunID),
		logging.String("status", string(state.Status)),
		logging.String("message", state.LastStatus),
		logging.Int("processed", state.Cursor),
		logging.Int("unmatched", len(state.Unmatched)),
	)
}

// cronLog adapts slog to the cron.Logger interface.
type cronLog struct {
	logger *slog.Logger
}

func (l cronLog) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLog) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, logging.Error(err))...)
}
