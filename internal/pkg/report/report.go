// Package report renders human-readable markdown reports of an account snapshot.
package report

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/model"
)

const (
	TimeFormat = "2006-01-02 15:04:05 UTC"
	notApplied = "N/A"
)

// Summary renders counts of resources by type, globally and per project.
func Summary(snapshot *model.AccountSnapshot, generatedAt time.Time, version string) string {
	w := newWriter()
	counts := snapshot.Counts()

	w.line("# dbt Cloud Account Import Summary")
	w.line("")
	w.header(generatedAt, version)
	w.line("**Account ID:** %d", snapshot.AccountID)
	w.line("**Account Name:** %s", orNA(snapshot.AccountName))
	w.line("")
	w.line("## Global Resources")
	w.line("")
	w.line("- **Connections:** %d", counts.Connections)
	w.line("- **Repositories:** %d", counts.Repositories)
	w.line("")
	w.line("## Projects Overview")
	w.line("")
	w.line("**Total Projects:** %d", counts.Projects)
	w.line("")
	w.line("### Aggregate Counts")
	w.line("")
	w.line("- **Total Environments:** %d", counts.Environments)
	w.line("- **Total Jobs:** %d", counts.Jobs)
	w.line("- **Total Environment Variables:** %d", counts.Variables)
	w.line("- **Total Environment Variable Secrets:** %d", counts.SecretVariables)
	w.line("")
	w.line("---")
	w.line("")
	w.line("## Projects Detail")
	w.line("")

	for _, p := range sortedProjects(snapshot.Projects) {
		regular, secret := p.VariablesCount()
		w.line("### %s (PRJ ID: %s)", p.Name, idOrNA(p.ID))
		w.line("")
		w.line("- **Environments:** %d", len(p.Environments))
		w.line("- **Jobs:** %d", len(p.Jobs))
		w.line("- **Environment Variables:** %d", regular)
		w.line("- **Environment Variable Secrets:** %d", secret)
		w.line("")
	}

	return w.String()
}

// Outline renders a detailed tree of all resources with their ids and names.
func Outline(snapshot *model.AccountSnapshot, generatedAt time.Time, version string) string {
	w := newWriter()

	w.line("# dbt Cloud Account Detailed Outline")
	w.line("")
	w.header(generatedAt, version)
	w.line("")
	w.line("## Account")
	w.line("")
	w.line("- **ID:** %d", snapshot.AccountID)
	w.line("- **Name:** %s", orNA(snapshot.AccountName))
	w.line("")
	w.line("---")
	w.line("")
	w.line("## Global Resources")
	w.line("")

	if connections := snapshot.Globals.Connections; len(connections) > 0 {
		w.line("### Connections")
		w.line("")
		w.line("| Key | ID | Name | Type |")
		w.line("|-----|----|------|------|")
		for _, key := range slices.Sorted(maps.Keys(connections)) {
			c := connections[key]
			w.line("| `%s` | %s | %s | %s |", key, idOrNA(c.ID), orNA(c.Name), orNA(c.Type))
		}
		w.line("")
	}

	if repositories := snapshot.Globals.Repositories; len(repositories) > 0 {
		w.line("### Repositories")
		w.line("")
		w.line("| Key | ID | Remote URL | Clone Strategy |")
		w.line("|-----|----|------------|----------------|")
		for _, key := range slices.Sorted(maps.Keys(repositories)) {
			r := repositories[key]
			w.line("| `%s` | %s | %s | %s |", key, idOrNA(r.ID), stringOrNA(r.RemoteURL), orNA(r.GitCloneStrategy))
		}
		w.line("")
	}

	w.line("---")
	w.line("")
	w.line("## Projects")
	w.line("")

	for i, p := range sortedProjects(snapshot.Projects) {
		if i > 0 {
			w.line("---")
			w.line("")
		}
		w.project(p)
	}

	return w.String()
}

type writer struct {
	strings.Builder
}

func newWriter() *writer {
	return &writer{}
}

func (w *writer) line(format string, a ...any) {
	if len(a) == 0 {
		w.WriteString(format)
	} else {
		fmt.Fprintf(w, format, a...)
	}
	w.WriteByte('\n')
}

func (w *writer) header(generatedAt time.Time, version string) {
	w.line("**Generated:** %s", generatedAt.UTC().Format(TimeFormat))
	w.line("**Importer Version:** %s", version)
}

func (w *writer) project(p *model.Project) {
	w.line("### %s", p.Name)
	w.line("")
	w.line("  - **Project ID:** %s", idOrNA(p.ID))
	w.line("  - **Key:** `%s`", p.Key)
	if p.RepositoryKey != nil {
		w.line("  - **Repository:** `%s`", *p.RepositoryKey)
	}
	w.line("")

	var regular, secret []*model.EnvironmentVariable
	for _, v := range p.EnvironmentVariables {
		if v.IsSecret() {
			secret = append(secret, v)
		} else {
			regular = append(regular, v)
		}
	}
	w.variables("Environment Variables", regular)
	w.variables("Environment Variable Secrets", secret)

	if len(p.Environments) > 0 {
		w.line("#### Environments")
		w.line("")
		for _, env := range p.Environments {
			w.environment(env, p.JobsOf(env.Key))
		}
		w.line("")
	}

	w.line("")
}

// variables renders values of the variables, secret values are already masked by the API.
func (w *writer) variables(title string, variables []*model.EnvironmentVariable) {
	if len(variables) == 0 {
		return
	}

	w.line("#### %s", title)
	w.line("")
	for _, v := range variables {
		w.line("**`%s`** - %d value(s)", v.Name, v.ValuesCount())
		w.line("")
		if v.ValuesCount() == 0 {
			continue
		}

		w.line("| Environment | Value |")
		w.line("|-------------|-------|")
		if v.ProjectDefault != nil && *v.ProjectDefault != "" {
			w.line("| Project (default) | `%s` |", *v.ProjectDefault)
		}
		for _, envName := range slices.Sorted(maps.Keys(v.EnvironmentValues)) {
			w.line("| %s | `%s` |", envName, v.EnvironmentValues[envName])
		}
		w.line("")
	}
	w.line("")
}

func (w *writer) environment(env *model.Environment, jobs []*model.Job) {
	w.line("##### (ENV ID: %s) **%s** - Type: `%s` - Version: `%s`", idOrNA(env.ID), env.Name, env.Type, orNA(env.DbtVersion))

	if len(jobs) == 0 {
		w.line("")
		if env.Type == "development" {
			w.line("  - *No jobs configured. Development environment.*")
		} else {
			w.line("  - *No jobs configured.*")
		}
		w.line("")
		return
	}

	w.line("")
	w.line("**%s Jobs**", env.Name)
	w.line("")
	w.line("| ID | Job Name | Type | Execute Steps |")
	w.line("|----|----------|------|---------------|")
	for _, job := range jobs {
		steps := "*None*"
		if len(job.ExecuteSteps) > 0 {
			quoted := make([]string, len(job.ExecuteSteps))
			for i, step := range job.ExecuteSteps {
				quoted[i] = "`" + step + "`"
			}
			steps = strings.Join(quoted, "<br>")
		}
		w.line("| %s | %s | `%s` | %s |", idOrNA(job.ID), job.Name, job.Settings.StringOr("job_type", "other"), steps)
	}
	w.line("")
}

func sortedProjects(projects []*model.Project) []*model.Project {
	out := slices.Clone(projects)
	slices.SortStableFunc(out, func(a, b *model.Project) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func orNA(v *string) string {
	if v == nil {
		return notApplied
	}
	return stringOrNA(*v)
}

func stringOrNA(v string) string {
	if v == "" {
		return notApplied
	}
	return v
}

func idOrNA(id *int64) string {
	if id == nil || *id == 0 {
		return notApplied
	}
	return strconv.FormatInt(*id, 10)
}
