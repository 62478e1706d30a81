package cli

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/env"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/export"
)

const (
	v2URL = "https://cloud.example.com/api/v2/accounts/1"
	v3URL = "https://cloud.example.com/api/v3/accounts/1"
)

type testRoot struct {
	*RootCommand
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
	transport *httpmock.MockTransport
	dir       string
}

func newTestRoot(t *testing.T, envs map[string]string) *testRoot {
	t.Helper()
	tr := &testRoot{
		stdout:    &bytes.Buffer{},
		stderr:    &bytes.Buffer{},
		transport: httpmock.NewMockTransport(),
		dir:       t.TempDir(),
	}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	tr.RootCommand = NewRootCommand(strings.NewReader(""), tr.stdout, tr.stderr, env.FromMap(envs), WithTransport(tr.transport), WithClock(clock))
	return tr
}

func (tr *testRoot) run(args ...string) int {
	tr.SetArgs(append(args, "--working-dir", tr.dir))
	return tr.Execute(context.Background())
}

func validEnvs() map[string]string {
	return map[string]string{
		"DBT_SOURCE_HOST":            "https://cloud.example.com/",
		"DBT_SOURCE_ACCOUNT_ID":      "1",
		"DBT_SOURCE_API_TOKEN":       "secret-token",
		"DBT_SOURCE_API_MAX_RETRIES": "0",
	}
}

func (tr *testRoot) registerAccount() {
	respond := func(url string, body any) {
		tr.transport.RegisterResponder(http.MethodGet, url, httpmock.NewJsonResponderOrPanic(http.StatusOK, body))
	}
	respond(v2URL+"/", map[string]any{"data": map[string]any{"name": "Acme"}})
	respond(v3URL+"/connections/", map[string]any{"data": []any{
		map[string]any{"id": 1, "name": "Snowflake", "type": "snowflake"},
	}})
	respond(v2URL+"/repositories/", map[string]any{"data": []any{
		map[string]any{"id": 2, "remote_url": "git@github.com:acme/analytics.git"},
	}})
	respond(v2URL+"/projects/", map[string]any{"data": []any{
		map[string]any{"id": 10, "name": "Analytics", "repository_id": 2},
	}})
	respond(v2URL+"/environments/", map[string]any{"data": []any{
		map[string]any{"id": 100, "name": "Prod", "type": "deployment", "connection_id": 1},
	}})
	respond(v2URL+"/jobs/", map[string]any{"data": []any{
		map[string]any{"id": 1000, "name": "Nightly", "environment_id": 100, "execute_steps": []string{"dbt build"}},
	}})
	respond(v3URL+"/projects/10/environment-variables/environment/", map[string]any{"data": map[string]any{"variables": map[string]any{}}})
}

func TestRootSubCommands(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t, nil)

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Equal(t, []string{"fetch", "report"}, names)
}

func TestRootCmdPersistentFlags(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t, nil)

	var names []string
	root.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		names = append(names, flag.Name)
	})
	assert.Equal(t, []string{
		"account-id",
		"api-backoff-factor",
		"api-max-retries",
		"api-retry-after",
		"api-timeout",
		"api-token",
		"help",
		"host",
		"log-file",
		"ssl-verify",
		"verbose",
		"verbose-api",
		"working-dir",
	}, names)
}

func TestRootVersion(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t, nil)
	root.SetArgs([]string{"--version"})
	assert.Equal(t, 0, root.Execute(context.Background()))
	assert.Contains(t, root.stdout.String(), "Version:")
}

func TestFetch_InvalidOptions(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t, nil)

	assert.Equal(t, 1, root.run("fetch"))
	assert.Contains(t, root.stderr.String(), "invalid configuration:")
	assert.Contains(t, root.stderr.String(), "--host (DBT_SOURCE_HOST) is a required field")
	assert.Zero(t, root.transport.GetTotalCallCount())
}

func TestFetch_Stdout(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t, validEnvs())
	root.registerAccount()

	require.Equal(t, 0, root.run("fetch", "--compact"), root.stderr.String())

	// Stdout contains only the snapshot
	snapshot, err := export.DecodeSnapshot(root.stdout.Bytes(), export.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.AccountID)
	assert.Equal(t, "Acme", *snapshot.AccountName)
	require.Len(t, snapshot.Projects, 1)
	assert.Equal(t, "prod", snapshot.Projects[0].Jobs[0].EnvironmentKey)
	assert.Equal(t, 1, strings.Count(root.stdout.String(), "\n"))

	// Logs and the summary go to stderr
	assert.Contains(t, root.stderr.String(), "Snapshot Summary")
	assert.Contains(t, root.stderr.String(), "Projects      1")
}

func TestFetch_OutputFile(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t, validEnvs())
	root.registerAccount()

	require.Equal(t, 0, root.run("fetch", "--output", "out/snapshot.yaml"), root.stderr.String())

	content, err := os.ReadFile(filepath.Join(root.dir, "out", "snapshot.yaml"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "account_id: 1\n"))
	assert.Contains(t, root.stdout.String(), "Wrote snapshot to")
	assert.Contains(t, root.stdout.String(), "Repositories  1")
}

func TestFetch_OutputDir(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t, validEnvs())
	root.registerAccount()

	require.Equal(t, 0, root.run("fetch", "--output-dir", "runs"), root.stderr.String())

	files, err := filepath.Glob(filepath.Join(root.dir, "runs", "*"))
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.ElementsMatch(t, []string{
		"importer_runs.json",
		"importer_runs.json.lock",
		"account_1_run_001__snapshot__20240102_030405.json",
		"account_1_run_001__summary__20240102_030405.md",
		"account_1_run_001__outline__20240102_030405.md",
		"account_1_run_001__line_items__20240102_030405.json",
	}, names)
	assert.Contains(t, root.stdout.String(), "Run 1 of account 1 finished.")
}

func TestFetch_Unauthorized(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t, validEnvs())
	root.transport.RegisterNoResponder(httpmock.NewStringResponder(http.StatusUnauthorized, `{"status":{"code":401}}`))

	assert.Equal(t, 1, root.run("fetch"))
	assert.Contains(t, root.stderr.String(), `invalid API token, please check "--api-token" flag or ENV variable "DBT_SOURCE_API_TOKEN"`)
	assert.Contains(t, root.stderr.String(), "dbt Cloud API error 401")
}

func TestFetch_DotEnv(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t, map[string]string{"DBT_SOURCE_API_MAX_RETRIES": "0"})
	root.registerAccount()
	dotEnv := "DBT_SOURCE_HOST=https://cloud.example.com\nDBT_SOURCE_ACCOUNT_ID=1\nDBT_SOURCE_API_TOKEN=from-file\n"
	require.NoError(t, os.WriteFile(filepath.Join(root.dir, ".env"), []byte(dotEnv), 0o600))

	require.Equal(t, 0, root.run("fetch", "--output", "snapshot.json"), root.stderr.String())
	assert.Equal(t, "from-file", root.Options.APIToken)
}

func TestFetch_InvalidFormat(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t, validEnvs())
	assert.Equal(t, 1, root.run("fetch", "--format", "xml"))
	assert.Contains(t, root.stderr.String(), `unexpected format "xml"`)
}

func TestReport(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t, nil)

	snapshot := `{"account_id": 5, "account_name": "Acme", "globals": {"connections": {}, "repositories": {}}, "projects": []}`
	require.NoError(t, os.WriteFile(filepath.Join(root.dir, "snapshot.json"), []byte(snapshot), 0o600))

	require.Equal(t, 0, root.run("report", "snapshot.json", "--output-dir", "reports", "--print"), root.stderr.String())

	_, err := os.Stat(filepath.Join(root.dir, "reports", "account_5_run_001__summary__20240102_030405.md"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root.dir, "reports", "account_5_run_001__line_items__20240102_030405.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root.dir, "reports", "account_5_run_001__snapshot__20240102_030405.json"))
	assert.True(t, os.IsNotExist(err))

	// Printed as plain text, stdout is not a terminal
	assert.Contains(t, root.stdout.String(), "dbt Cloud Account Import Summary")
}

func TestReport_MissingFile(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t, nil)
	assert.Equal(t, 1, root.run("report", "missing.json"))
	assert.Contains(t, root.stderr.String(), `cannot read snapshot`)
}
