package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/xeonx/timeago"

	"github.com/gotrs-io/uiflow/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs or per-scenario pass rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		store, err := openHistory(ctx, c)
		if err != nil {
			return &exitError{code: exitFatal, err: err}
		}
		if store == nil {
			return &exitError{code: exitFatal, err: errors.New("history is not configured (set history.driver and history.dsn)")}
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		stats, _ := cmd.Flags().GetBool("stats")
		all, _ := cmd.Flags().GetBool("all-profiles")
		prof := c.Target.Profile
		if all {
			prof = ""
		}

		if stats {
			return printStats(ctx, store, prof, limit)
		}
		return printRuns(ctx, store, prof, limit)
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of runs to show, or the stats window")
	historyCmd.Flags().Bool("stats", false, "show per-scenario pass rates over the last runs")
	historyCmd.Flags().Bool("all-profiles", false, "include runs of every profile")
}

func printRuns(ctx context.Context, store *history.Store, prof string, limit int) error {
	runs, err := store.Recent(ctx, prof, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RUN\tPROFILE\tSTARTED\tPASSED\tFAILED\tSKIPPED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			shortID(r.ID), r.Profile, timeago.English.Format(r.StartedAt),
			r.Passed, r.Failed, r.Skipped, time.Duration(r.DurationMs)*time.Millisecond)
	}
	return w.Flush()
}

func printStats(ctx context.Context, store *history.Store, prof string, window int) error {
	stats, err := store.ScenarioStats(ctx, prof, window)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}
	fmt.Printf("Pass rates over the last %d run(s)\n\n", window)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tRUNS\tPASSED\tFAILED\tPASS RATE")
	for _, s := range stats {
		fmt.Fprintf(w, "TC%02d\t%s\t%d\t%d\t%d\t%.1f%%\n", s.Position, s.Name, s.Runs, s.Passed, s.Failed, s.PassRate())
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
