// Package cli contains the cobra commands of the importer.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/build"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/dbtcloud"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/env"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/log"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/options"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/utils/errors"
)

const rootShortDescription = `Export a dbt Cloud account to a snapshot and reports`

type Cmd = cobra.Command

type RootCommand struct {
	*Cmd
	Options    *options.Options
	Logger     log.Logger
	envs       *env.Map
	fs         afero.Fs
	clock      clockwork.Clock
	transport  http.RoundTripper
	stdout     io.Writer
	stderr     io.Writer
	logFile    *log.File
	workingDir string
}

type Option func(root *RootCommand)

// WithTransport replaces the HTTP transport of the API client, for tests.
func WithTransport(transport http.RoundTripper) Option {
	return func(root *RootCommand) {
		root.transport = transport
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(root *RootCommand) {
		root.clock = clock
	}
}

func WithFs(fs afero.Fs) Option {
	return func(root *RootCommand) {
		root.fs = fs
	}
}

// NewRootCommand creates parent of all sub-commands.
func NewRootCommand(stdin io.Reader, stdout io.Writer, stderr io.Writer, envs *env.Map, opts ...Option) *RootCommand {
	root := &RootCommand{
		Options: options.New(),
		Logger:  log.NewNopLogger(), // temporary logger, we don't have a path to the log file yet
		envs:    envs,
		fs:      afero.NewOsFs(),
		clock:   clockwork.NewRealClock(),
		stdout:  stdout,
		stderr:  stderr,
	}
	for _, o := range opts {
		o(root)
	}

	root.Cmd = &Cmd{
		Use:           build.AppName,
		Version:       build.Version(),
		Short:         rootShortDescription,
		SilenceUsage:  true,
		SilenceErrors: true, // custom error handling, see printError
		RunE: func(cmd *cobra.Command, args []string) error {
			// Print help if no command specified
			return cmd.Help()
		},
	}

	// Setup in/out
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("{{.Version}}")

	// Persistent flags for all sub-commands
	flags := root.PersistentFlags()
	flags.BoolP("help", "h", false, "print help for command")
	root.Options.BindPersistentFlags(flags)

	// Root command flags
	root.Flags().SortFlags = true
	root.Flags().BoolP("version", "V", false, "print version")

	// Init when flags are parsed
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Working directory
		workingDir, _ := cmd.Flags().GetString("working-dir")
		if workingDir == "" {
			var err error
			if workingDir, err = os.Getwd(); err != nil {
				return errors.Errorf("cannot get current working directory: %w", err)
			}
		}
		root.workingDir = workingDir

		// Load values from flags and envs, ".env" files have the lowest priority
		envs := env.LoadDotEnv(root.Logger, root.envs, root.fs, []string{workingDir})
		loadErr := root.Options.Load(cmd.Flags(), envs)

		// Setup logger, the snapshot printed to stdout must not be mixed with logs
		root.setupLogger(snapshotToStdout(cmd))
		root.Logger.Debugf("Working dir: %s", workingDir)
		return loadErr
	}

	// Sub-commands
	root.AddCommand(
		FetchCommand(root),
		ReportCommand(root),
	)

	return root
}

// Execute command or sub-command.
func (root *RootCommand) Execute(ctx context.Context) (exitCode int) {
	defer func() {
		exitCode = root.tearDown(exitCode, recover())
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		root.printError(err)
		return 1
	}
	return 0
}

// Path resolves a path relative to the working directory.
func (root *RootCommand) Path(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root.workingDir, path)
}

func (root *RootCommand) APIClient() *dbtcloud.Client {
	opts := []dbtcloud.Option{dbtcloud.WithClock(root.clock)}
	if root.transport != nil {
		opts = append(opts, dbtcloud.WithTransport(root.transport))
	}
	return dbtcloud.New(root.Options.ClientConfig(), root.Logger, opts...)
}

func (root *RootCommand) printError(errRaw error) {
	err := errRaw
	var apiErr *dbtcloud.ApiError
	if errors.As(errRaw, &apiErr) {
		switch {
		case apiErr.IsUnauthorized():
			err = errors.PrefixErrorf(errRaw, `invalid API token, please check "--api-token" flag or ENV variable "%s"`, env.NewNamingConvention(env.Prefix).FlagToEnv("api-token"))
		case apiErr.IsForbidden():
			err = errors.PrefixErrorf(errRaw, `the API token has no access to the account %d`, root.Options.AccountID)
		}
	}

	root.Logger.Debugf("Command failed: %s", errRaw)
	root.PrintErrln(errors.PrefixError(err, "Error").Error())
}

func (root *RootCommand) setupLogger(infoToStderr bool) {
	// Get log file
	var logFileErr error
	if root.Options.LogFilePath != "" {
		root.logFile, logFileErr = log.NewLogFile(root.Path(root.Options.LogFilePath))
	}

	// Create logger
	stdout := root.stdout
	if infoToStderr {
		stdout = root.stderr
	}
	root.Logger = log.NewCliLogger(stdout, root.stderr, root.logFile, root.Options.Verbose)

	// Warn if user specified log file + it cannot be opened
	if logFileErr != nil {
		root.Logger.Warnf("Cannot open log file: %s", logFileErr)
	}

	// Log info
	root.Logger.Debug(root.Version)
	root.Logger.Debugf("Running command %v", os.Args)
	root.Logger.Debug(root.Options.Dump())
	if root.logFile == nil {
		root.Logger.Debug("Log file: -")
	} else {
		root.Logger.Debug("Log file: " + root.logFile.Path())
	}
}

// tearDown does clean-up after command execution.
func (root *RootCommand) tearDown(exitCode int, panicErr any) int {
	if panicErr != nil {
		root.Logger.Errorf("Unexpected panic: %s", panicErr)
		root.Logger.Debugf("Trace:\n%s", debug.Stack())
		if root.logFile != nil {
			root.PrintErrln(fmt.Sprintf("Details can be found in the log file %q.", root.logFile.Path()))
		}
		exitCode = 1
	}

	_ = root.Logger.Sync()
	root.logFile.TearDown()
	return exitCode
}

func snapshotToStdout(cmd *cobra.Command) bool {
	if cmd.Name() != fetchCommandName {
		return false
	}
	return !cmd.Flags().Changed("output") && !cmd.Flags().Changed("output-dir")
}
