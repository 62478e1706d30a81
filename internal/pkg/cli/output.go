package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	stripmd "github.com/writeas/go-strip-markdown"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/model"
)

const (
	markdownLineWidth = 100
	markdownLeftPad   = 2
)

// progress of the fetch, shown only in an interactive terminal. A nil progress is a no-op.
type progress struct {
	bar *progressbar.ProgressBar
}

// newProgress creates a spinner on stderr if it is a terminal and it is not used by logs.
func (root *RootCommand) newProgress(enabled bool, description string) *progress {
	if !enabled || root.Options.Verbose || !isTerminal(root.stderr) {
		return nil
	}
	return &progress{bar: progressbar.NewOptions(
		-1,
		progressbar.OptionSetWriter(root.stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)}
}

func (p *progress) project(project *model.Project) {
	if p == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("Fetched project %q", project.Name))
	_ = p.bar.Add(1)
}

func (p *progress) finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}

// printSummaryTable prints counts of the main resources.
func printSummaryTable(w io.Writer, snapshot *model.AccountSnapshot) {
	counts := snapshot.Counts()
	heading := color.New(color.Bold)
	_, _ = heading.Fprintln(w, "Snapshot Summary")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Metric\tValue")
	for _, row := range []struct {
		name  string
		value int
	}{
		{"Projects", counts.Projects},
		{"Connections", counts.Connections},
		{"Repositories", counts.Repositories},
	} {
		_, _ = fmt.Fprintln(tw, row.name+"\t"+strconv.Itoa(row.value))
	}
	_ = tw.Flush()
}

// printMarkdown renders the markdown in a terminal, otherwise it prints plain text.
func (root *RootCommand) printMarkdown(source string) {
	if isTerminal(root.stdout) {
		_, _ = root.stdout.Write(markdown.Render(source, markdownLineWidth, markdownLeftPad))
		return
	}
	_, _ = io.WriteString(root.stdout, stripmd.Strip(source)+"\n")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
