package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vgmdb/internal/catalog"
	"vgmdb/internal/config"
	"vgmdb/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var runLimit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog record counts and recent imports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				registry := catalog.NewRegistry()
				counts, err := st.Counts(cmd.Context(), registry)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Catalog: %s\n\n", st.Path())

				rows := make([][]string, 0, len(counts))
				for _, schema := range registry.Schemas() {
					rows = append(rows, []string{
						string(schema.Type),
						strconv.Itoa(counts[schema.Type]),
					})
				}
				table := renderTable(
					[]string{"Model", "Records"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				)
				fmt.Fprintln(out, table)

				runs, err := st.RecentRuns(cmd.Context(), runLimit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "\nNo imports recorded")
					return nil
				}

				runRows := make([][]string, 0, len(runs))
				for _, run := range runs {
					runRows = append(runRows, []string{
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						run.Mode,
						strconv.Itoa(run.Total),
						strconv.Itoa(run.Created),
						strconv.Itoa(run.Updated),
					})
				}
				runTable := renderTable(
					[]string{"Started", "Mode", "Total", "Created", "Updated"},
					runRows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
				)
				fmt.Fprintln(out, "\nRecent imports")
				fmt.Fprintln(out, runTable)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&runLimit, "runs", 10, "Number of recent import runs to show")
	return cmd
}
