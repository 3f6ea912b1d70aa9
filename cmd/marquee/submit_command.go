package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceFlag string
		yearFlag   int
		waitFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "submit <query>",
		Short: "Submit a movie query to the pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New("query is required")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			queryID, err := client.Submit(query, sourceFlag, yearFlag)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s\n", queryID)
			if !waitFlag {
				return nil
			}
			return followQuery(cmd, client, queryID)
		},
	}

	cmd.Flags().StringVar(&sourceFlag, "source", "text", "Query source: text, filename, or caption")
	cmd.Flags().IntVar(&yearFlag, "year", 0, "Release year hint")
	cmd.Flags().BoolVar(&waitFlag, "wait", false, "Poll until the query reaches a terminal state")
	return cmd
}

// followQuery polls the daemon until the query is done or failed, surfacing
// the awaiting-selection state so the user knows to run "marquee select".
func followQuery(cmd *cobra.Command, client *apiClient, queryID string) error {
	var lastStatus string
	for {
		view, err := client.Query(queryID)
		if err != nil {
			return err
		}
		if view.Status != lastStatus {
			lastStatus = view.Status
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", view.Status)
		}
		switch view.Status {
		case "done":
			if view.ChannelRef != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Published: %s\n", view.ChannelRef)
			}
			return nil
		case "failed":
			return fmt.Errorf("query failed: %s", view.ErrorMessage)
		case "awaiting_selection":
			fmt.Fprintf(cmd.OutOrStdout(), "Run 'marquee select %s <movie-id>' to pick a match\n", queryID)
			return nil
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func newSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select <query-id> <movie-id>",
		Short: "Resolve a query that is awaiting selection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var candidateID int64
			if _, err := fmt.Sscanf(args[1], "%d", &candidateID); err != nil {
				return fmt.Errorf("movie-id must be numeric: %w", err)
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Select(args[0], candidateID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Selection accepted")
			return nil
		},
	}
}
