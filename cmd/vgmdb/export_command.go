package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vgmdb/internal/catalog"
	"vgmdb/internal/config"
	"vgmdb/internal/fixture"
	"vgmdb/internal/store"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var appFilter string
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog to fixture files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				format, err := resolveFormat(formatFlag, cfg)
				if err != nil {
					return err
				}
				dir := strings.TrimSpace(outputDir)
				if dir == "" {
					dir = cfg.Paths.FixtureDir
				}

				exporter := &fixture.Exporter{
					Store:    st,
					Registry: catalog.NewRegistry(),
					Log:      ctx.logger(),
				}
				summary, err := exporter.Export(cmd.Context(), fixture.ExportOptions{
					Dir:    dir,
					App:    strings.TrimSpace(appFilter),
					Format: format,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, file := range summary.Files {
					fmt.Fprintln(out, file)
				}
				fmt.Fprintf(out, "Exported %d records across %d files\n", summary.Records, len(summary.Files))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for fixture files (defaults to the configured fixture directory)")
	cmd.Flags().StringVar(&appFilter, "app", "", "Export only one logical group (accounts, games, songs, sources)")
	cmd.Flags().StringVar(&formatFlag, "format", "", "Fixture format: yaml or json (defaults to the configured format)")
	return cmd
}

func resolveFormat(flag string, cfg *config.Config) (fixture.Format, error) {
	value := strings.TrimSpace(flag)
	if value == "" {
		value = cfg.Fixtures.Format
	}
	return fixture.ParseFormat(value)
}
