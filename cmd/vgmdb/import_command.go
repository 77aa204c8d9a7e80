package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vgmdb/internal/catalog"
	"vgmdb/internal/config"
	"vgmdb/internal/fixture"
	"vgmdb/internal/importlock"
	"vgmdb/internal/store"
)

type importFlags struct {
	fixtureDir string
	file       string
	errorFile  string
	dryRun     bool
}

func (f *importFlags) register(cmd *cobra.Command, withDryRun bool) {
	cmd.Flags().StringVarP(&f.fixtureDir, "fixture-dir", "d", "", "Directory holding fixture files (defaults to the configured fixture directory)")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Load a single fixture file instead of a directory")
	cmd.Flags().StringVar(&f.errorFile, "error-file", "", "Also write the validation report to this file")
	if withDryRun {
		cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Validate without writing to the catalog")
	}
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	flags := &importFlags{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load fixture files into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := fixture.Commit
			if flags.dryRun {
				mode = fixture.DryRun
			}
			return runImport(ctx, cmd, flags, mode)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	flags := &importFlags{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check fixture files without writing to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(ctx, cmd, flags, fixture.DryRun)
		},
	}
	flags.register(cmd, false)
	return cmd
}

func runImport(ctx *commandContext, cmd *cobra.Command, flags *importFlags, mode fixture.Mode) error {
	return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
		registry := catalog.NewRegistry()
		entries, err := loadEntries(cfg, registry, flags)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No fixture entries found")
			return nil
		}

		if mode == fixture.Commit {
			lock, err := importlock.Acquire(cfg.Paths.DataDir)
			if err != nil {
				return err
			}
			defer lock.Release()
		}

		importer := &fixture.Importer{
			Store:    st,
			Registry: registry,
			Log:      ctx.logger(),
		}
		summary, err := importer.Run(cmd.Context(), entries, mode)
		if summary != nil && summary.Failed() {
			renderProblems(cmd.ErrOrStderr(), summary.Problems)
			if path := strings.TrimSpace(flags.errorFile); path != "" {
				if werr := writeErrorFile(path, summary.Problems); werr != nil {
					return werr
				}
			}
			if mode == fixture.DryRun {
				return fmt.Errorf("validation found %d problems", len(summary.Problems))
			}
			return fmt.Errorf("import aborted; nothing was written")
		}
		if err != nil {
			return err
		}

		switch mode {
		case fixture.DryRun:
			fmt.Fprintf(out, "Validated %d entries; no problems found\n", summary.Total)
		default:
			fmt.Fprintf(out, "Imported %d entries: %d created, %d updated\n", summary.Total, summary.Created, summary.Updated)
		}
		return nil
	})
}

func loadEntries(cfg *config.Config, registry *catalog.Registry, flags *importFlags) ([]fixture.Entry, error) {
	if file := strings.TrimSpace(flags.file); file != "" {
		return fixture.ReadFile(file)
	}
	dir := strings.TrimSpace(flags.fixtureDir)
	if dir == "" {
		dir = cfg.Paths.FixtureDir
	}
	return fixture.ReadDir(dir, registry)
}
