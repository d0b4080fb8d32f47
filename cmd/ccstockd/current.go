package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ccstock-backend/internal/placement"
	"ccstock-backend/internal/projection"
	"ccstock-backend/internal/store"
)

func newCurrentCommand(load configLoader) *cobra.Command {
	var (
		filter string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "current",
		Short: "Print where every machine in storage currently is",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			gormDB, closeDB, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := cmd.Context()
			svc := placement.NewService(store.NewGormStore(gormDB), nil, nil)
			machines, err := svc.Machines(ctx)
			if err != nil {
				return err
			}
			events, err := svc.History(ctx, "")
			if err != nil {
				return err
			}
			rows := projection.Current(machines, projection.Project(events), filter)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return writeTable(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().StringVarP(&filter, "query", "q", "", "Case-insensitive filter on machine or location id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func writeTable(w io.Writer, rows []projection.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MACHINE\tLOCATION\tSINCE\tBY")
	for _, r := range rows {
		loc, since, by := "-", "-", "-"
		if r.Latest != nil {
			loc = r.Latest.Location()
			since = r.Latest.Timestamp.Local().Format("2006-01-02 15:04")
			by = r.Latest.UserEmail
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Machine.ID, loc, since, by)
	}
	return tw.Flush()
}
