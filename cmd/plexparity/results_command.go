package main

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lunedor/plex-parity/internal/showcache"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var upcoming bool
	var unmatched bool
	var all bool

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show cached missing episodes, upcoming episodes or unmatched shows",
		RunE: func(cmd *cobra.Command, args []string) error {
			if upcoming && unmatched {
				return errors.New("--upcoming and --unmatched are mutually exclusive")
			}
			shows, err := ctx.openShows()
			if err != nil {
				return err
			}
			results := shows.Results()
			switch {
			case upcoming:
				return printUpcoming(cmd, ctx.wantJSON(), results, time.Now())
			case unmatched:
				return printUnmatched(cmd, ctx.wantJSON(), results)
			default:
				return printMissing(cmd, ctx.wantJSON(), results, all)
			}
		},
	}

	cmd.Flags().BoolVar(&upcoming, "upcoming", false, "List upcoming episodes by air date")
	cmd.Flags().BoolVar(&unmatched, "unmatched", false, "List shows without a TMDB mapping")
	cmd.Flags().BoolVar(&all, "all", false, "Include shows with nothing missing")
	return cmd
}

func printMissing(cmd *cobra.Command, asJSON bool, results []showcache.Result, all bool) error {
	selected := make([]showcache.Result, 0, len(results))
	for _, res := range results {
		if res.CatalogID == 0 {
			continue
		}
		if all || len(res.Missing) > 0 {
			selected = append(selected, res)
		}
	}
	if asJSON {
		return writeJSON(cmd, selected)
	}
	out := cmd.OutOrStdout()
	if len(selected) == 0 {
		fmt.Fprintln(out, "No missing episodes")
		return nil
	}

	rows := make([][]string, 0, len(selected))
	for _, res := range selected {
		next := "-"
		if res.NextAir != nil {
			next = res.NextAir.Date + " " + res.NextAir.Code
		}
		rows = append(rows, []string{
			res.Key,
			showLabel(res.Title, res.Year),
			res.Status,
			strconv.Itoa(len(res.Missing)),
			dash(joinCodes(res.Missing, 8)),
			next,
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Key", "Show", "Status", "Missing", "Episodes", "Next"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}

type upcomingRow struct {
	Key   string `json:"key"`
	Show  string `json:"show"`
	Code  string `json:"code"`
	Date  string `json:"date"`
	Days  int    `json:"days_until"`
	Valid bool   `json:"-"`
}

func printUpcoming(cmd *cobra.Command, asJSON bool, results []showcache.Result, now time.Time) error {
	var items []upcomingRow
	for _, res := range results {
		for _, item := range res.Upcoming {
			days, ok := item.DaysUntil(now)
			items = append(items, upcomingRow{
				Key:   res.Key,
				Show:  showLabel(res.Title, res.Year),
				Code:  item.Code,
				Date:  item.Date,
				Days:  days,
				Valid: ok,
			})
		}
	}
	slices.SortFunc(items, func(a, b upcomingRow) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.Show, b.Show), cmp.Compare(a.Code, b.Code))
	})
	if asJSON {
		if items == nil {
			items = []upcomingRow{}
		}
		return writeJSON(cmd, items)
	}
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No upcoming episodes")
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		days := "?"
		if item.Valid {
			days = strconv.Itoa(item.Days)
		}
		rows = append(rows, []string{item.Date, days, item.Show, item.Code})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Date", "Days", "Show", "Episode"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}

func printUnmatched(cmd *cobra.Command, asJSON bool, results []showcache.Result) error {
	var selected []showcache.Result
	for _, res := range results {
		if res.CatalogID == 0 {
			selected = append(selected, res)
		}
	}
	if asJSON {
		if selected == nil {
			selected = []showcache.Result{}
		}
		return writeJSON(cmd, selected)
	}
	out := cmd.OutOrStdout()
	if len(selected) == 0 {
		fmt.Fprintln(out, "Every cached show is matched")
		return nil
	}
	rows := make([][]string, 0, len(selected))
	for _, res := range selected {
		scanned := "-"
		if !res.LastScanAt.IsZero() {
			scanned = res.LastScanAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{res.Key, showLabel(res.Title, res.Year), scanned})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Key", "Show", "Last scan"}, rows, nil))
	fmt.Fprintln(out, "Map a show with `plexparity override set <key> <tmdb-id>`.")
	return nil
}
