package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/build"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/export"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/report"
)

const (
	reportShortDescription = `Generate reports from a snapshot file`
	reportLongDescription  = `Command "report"

Regenerate the summary, the detailed outline and line items
from a previously exported snapshot, no API request is made.

The artifacts are written to the "--output-dir",
by default to the directory of the snapshot file.
`
)

type reportFlags struct {
	outputDir string
	print     bool
}

func ReportCommand(root *RootCommand) *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "report SNAPSHOT_FILE",
		Short: reportShortDescription,
		Long:  reportLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.Path(args[0])
			snapshot, err := export.NewWriter(root.fs, root.Logger).ReadSnapshot(path)
			if err != nil {
				return err
			}
			root.Logger.Debugf(`Loaded snapshot of account %d from "%s"`, snapshot.AccountID, path)

			outputDir := root.Path(f.outputDir)
			if outputDir == "" {
				outputDir = filepath.Dir(path)
			}
			if err := root.writeRun(cmd, outputDir, snapshot, export.RunOptions{SkipSnapshot: true}); err != nil {
				return err
			}

			if f.print {
				root.printMarkdown(report.Summary(snapshot, root.clock.Now(), build.BuildVersion))
			}
			return nil
		},
	}

	cmd.Flags().SortFlags = true
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "directory to write the reports")
	cmd.Flags().BoolVar(&f.print, "print", false, "print the summary to the terminal")
	return cmd
}
