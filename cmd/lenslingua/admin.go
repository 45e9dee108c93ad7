package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (c *cli) pruneCmd() *cobra.Command {
	var maxPerUser int
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Apply history retention limits to every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("max-per-user") {
				maxPerUser = c.app.Config.HistoryMaxPerUser
			}
			if !cmd.Flags().Changed("older-than") {
				olderThan = c.app.Config.HistoryMaxAge
			}
			var cutoff time.Time
			if olderThan > 0 {
				cutoff = time.Now().Add(-olderThan)
			}
			removed, err := c.app.History.Prune(cmd.Context(), maxPerUser, cutoff)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]int{"removed": removed})
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Removed %d records\n", removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxPerUser, "max-per-user", 0, "keep at most this many records per account (0 = unlimited)")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "remove records older than this age (0 = keep)")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the audit log for one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day := time.Now().UTC()
			if date != "" {
				parsed, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				day = parsed
			}
			stats, err := c.app.DailyStats(day)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			fmt.Fprintln(cmd.OutOrStdout(), stats.GenerateReportSummary())
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to report (YYYY-MM-DD, UTC); today when omitted")
	return cmd
}
