package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon queue and catalog counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.Status()
			if err != nil {
				return err
			}

			if jsonFlag {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}

			rows := [][]string{
				{"Received", strconv.Itoa(view.Queue.Received)},
				{"In flight", strconv.Itoa(view.Queue.InFlight)},
				{"Awaiting selection", strconv.Itoa(view.Queue.Suspended)},
				{"Done", strconv.Itoa(view.Queue.Done)},
				{"Failed", strconv.Itoa(view.Queue.Failed)},
				{"Total", strconv.Itoa(view.Queue.Total)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Queue", "Count"}, rows,
				[]columnAlignment{alignLeft, alignRight}))

			rows = [][]string{
				{"Metadata records", strconv.Itoa(view.Catalog.Records)},
				{"Query keys", strconv.Itoa(view.Catalog.QueryKeys)},
				{"Posters", strconv.Itoa(view.Catalog.Posters)},
				{"Publications", strconv.Itoa(view.Catalog.Publications)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Catalog", "Count"}, rows,
				[]columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit status as JSON")
	return cmd
}
