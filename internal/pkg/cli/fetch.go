package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/build"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/export"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/fetcher"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/model"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/runtracker"
)

const (
	fetchCommandName      = "fetch"
	fetchShortDescription = `Fetch an account snapshot via the dbt Cloud API`
	fetchLongDescription  = `Command "fetch"

Fetch connections, repositories, projects, environments, jobs
and environment variables of the dbt Cloud account.

The snapshot is printed to stdout, unless "--output" or "--output-dir" is used.
With "--output-dir" the run is numbered and the snapshot, reports
and line items are written to the directory.
`
)

type fetchFlags struct {
	output    string
	outputDir string
	format    string
	compact   bool
	noReports bool
}

func FetchCommand(root *RootCommand) *cobra.Command {
	f := &fetchFlags{}
	cmd := &cobra.Command{
		Use:   fetchCommandName,
		Short: fetchShortDescription,
		Long:  fetchLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(f.format)
			if err != nil {
				return err
			}
			if f.output != "" && !cmd.Flags().Changed("format") {
				format = export.FormatOf(f.output)
			}

			// Validate options
			if err := root.Options.Validate(cmd.Context()); err != nil {
				return err
			}

			// Fetch
			progress := root.newProgress(f.output != "" || f.outputDir != "", "Fetching projects")
			snapshot, err := fetcher.
				New(root.APIClient(), root.Logger, fetcher.WithProjectCallback(progress.project)).
				FetchAccountSnapshot(cmd.Context())
			progress.finish()
			if err != nil {
				return err
			}

			// Print to stdout
			if f.output == "" && f.outputDir == "" {
				content, err := export.EncodeSnapshot(snapshot, format, f.compact)
				if err != nil {
					return err
				}
				if _, err := root.stdout.Write(content); err != nil {
					return err
				}
				printSummaryTable(root.stderr, snapshot)
				return nil
			}

			writer := export.NewWriter(root.fs, root.Logger)

			// Write single file
			if f.output != "" {
				content, err := export.EncodeSnapshot(snapshot, format, f.compact)
				if err != nil {
					return err
				}
				path := root.Path(f.output)
				if err := writer.WriteFile(path, content); err != nil {
					return err
				}
				root.Logger.Infof(`Wrote snapshot to "%s"`, path)
			}

			// Write all artifacts of the run
			if f.outputDir != "" {
				opts := export.RunOptions{Format: format, Compact: f.compact, SkipReports: f.noReports}
				if err := root.writeRun(cmd, root.Path(f.outputDir), snapshot, opts); err != nil {
					return err
				}
			}

			printSummaryTable(root.stdout, snapshot)
			return nil
		},
	}

	cmd.Flags().SortFlags = true
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "path to write the snapshot file")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "directory to write the numbered run artifacts")
	cmd.Flags().StringVar(&f.format, "format", string(export.FormatJSON), `snapshot format, "json" or "yaml"`)
	cmd.Flags().BoolVar(&f.compact, "compact", false, "emit compact JSON")
	cmd.Flags().BoolVar(&f.noReports, "no-reports", false, "skip markdown reports in the output directory")
	return cmd
}

// writeRun records a new run and writes its artifacts to the directory.
func (root *RootCommand) writeRun(cmd *cobra.Command, dir string, snapshot *model.AccountSnapshot, opts export.RunOptions) error {
	tracker, err := runtracker.New(filepath.Join(dir, runtracker.ControlFileName), root.Logger, runtracker.WithClock(root.clock))
	if err != nil {
		return err
	}

	run, err := tracker.StartRun(cmd.Context(), snapshot.AccountID)
	if err != nil {
		return err
	}

	opts.Version = build.BuildVersion
	opts.GeneratedAt = root.clock.Now()
	artifacts, err := export.NewWriter(root.fs, root.Logger).WriteRun(dir, run, snapshot, opts)
	for _, path := range []string{artifacts.Snapshot, artifacts.Summary, artifacts.Outline, artifacts.LineItems} {
		if path != "" {
			root.Logger.Infof(`Wrote "%s"`, path)
		}
	}
	if err != nil {
		return err
	}

	root.Logger.Infof(`Run %d of account %d finished.`, run.RunID, run.AccountID)
	return nil
}
