package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ccstock-backend/internal/placement"
	"ccstock-backend/internal/store"
)

func newImportCommand(load configLoader) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:       "import machines|locations",
		Short:     "Bulk register machine or location ids from a file or stdin",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"machines", "locations"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if kind != "machines" && kind != "locations" {
				return fmt.Errorf("unknown import kind %q (want machines or locations)", kind)
			}

			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read ids: %w", err)
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			gormDB, closeDB, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			svc := placement.NewService(store.NewGormStore(gormDB), nil, nil)
			var res placement.ImportResult
			if kind == "machines" {
				res, err = svc.ImportMachines(cmd.Context(), string(raw))
			} else {
				res, err = svc.ImportLocations(cmd.Context(), string(raw))
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "added %d, already present %d\n", res.Added, res.Existing)
			for _, tok := range res.Rejected {
				fmt.Fprintf(out, "rejected %q\n", tok)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read ids from this file instead of stdin")
	return cmd
}
