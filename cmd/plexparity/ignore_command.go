package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIgnoreCommand(ctx *commandContext) *cobra.Command {
	ignoreCmd := &cobra.Command{
		Use:   "ignore",
		Short: "Hide missing episodes or whole shows from results",
	}

	var undoEpisode bool
	episodeCmd := &cobra.Command{
		Use:   "episode <key> <code>",
		Short: "Ignore one missing episode code (e.g. S01E03)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWriter(func(ws *workspace) error {
				if err := ws.shows.SetEpisodeIgnore(args[0], args[1], !undoEpisode); err != nil {
					return fmt.Errorf("ignore %s %s: %w", args[0], args[1], err)
				}
				if err := ws.shows.Save(); err != nil {
					return fmt.Errorf("persist show cache: %w", err)
				}
				entry, _ := ws.shows.Get(args[0])
				verb := "Ignoring"
				if undoEpisode {
					verb = "No longer ignoring"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s for %s (%d still missing)\n",
					verb, args[1], showLabel(entry.Title, entry.Year), len(entry.Missing))
				return nil
			})
		},
	}
	episodeCmd.Flags().BoolVar(&undoEpisode, "undo", false, "Remove the ignore instead")

	var undoShow bool
	showCmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Ignore every missing episode of a show",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWriter(func(ws *workspace) error {
				if err := ws.shows.SetShowIgnoreAll(args[0], !undoShow); err != nil {
					return fmt.Errorf("ignore %s: %w", args[0], err)
				}
				if err := ws.shows.Save(); err != nil {
					return fmt.Errorf("persist show cache: %w", err)
				}
				entry, _ := ws.shows.Get(args[0])
				state := "hidden"
				if undoShow {
					state = "visible"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Missing episodes of %s are now %s\n", showLabel(entry.Title, entry.Year), state)
				return nil
			})
		},
	}
	showCmd.Flags().BoolVar(&undoShow, "undo", false, "Remove the ignore instead")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List ignored episodes and shows",
		RunE: func(cmd *cobra.Command, args []string) error {
			shows, err := ctx.openShows()
			if err != nil {
				return err
			}
			ignored := shows.IgnoredEpisodes()
			if ctx.wantJSON() {
				if ignored == nil {
					return writeJSON(cmd, []any{})
				}
				return writeJSON(cmd, ignored)
			}
			out := cmd.OutOrStdout()
			if len(ignored) == 0 {
				fmt.Fprintln(out, "Nothing is ignored")
				return nil
			}
			rows := make([][]string, 0, len(ignored))
			for _, item := range ignored {
				rows = append(rows, []string{
					item.Key,
					showLabel(item.Title, item.Year),
					yesNo(item.All),
					dash(joinCodes(item.Codes, 10)),
				})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Key", "Show", "All", "Episodes"}, rows, nil))
			return nil
		},
	}

	ignoreCmd.AddCommand(episodeCmd, showCmd, listCmd)
	return ignoreCmd
}
