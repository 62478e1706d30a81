package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/model"
)

func ptr[T any](v T) *T {
	return &v
}

var generatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func testSnapshot() *model.AccountSnapshot {
	return &model.AccountSnapshot{
		AccountID:   12345,
		AccountName: ptr("Acme"),
		Globals: model.Globals{
			Connections: map[string]*model.Connection{
				"snowflake_prod": {Key: "snowflake_prod", ID: ptr(int64(7)), Name: ptr("Snowflake Prod"), Type: ptr("snowflake")},
				"connection_8":   {Key: "connection_8", ID: ptr(int64(8))},
			},
			Repositories: map[string]*model.Repository{
				"analytics": {Key: "analytics", ID: ptr(int64(3)), RemoteURL: "git@github.com:acme/analytics.git", GitCloneStrategy: ptr("deploy_key")},
			},
		},
		Projects: []*model.Project{
			{
				Key:           "zeta",
				ID:            ptr(int64(101)),
				Name:          "Zeta",
				RepositoryKey: ptr("analytics"),
				Environments: []*model.Environment{
					{Key: "dev", ID: ptr(int64(210)), Name: "Dev", Type: "development"},
				},
			},
			{
				Key:  "analytics",
				ID:   ptr(int64(100)),
				Name: "Analytics",
				Environments: []*model.Environment{
					{Key: "prod", ID: ptr(int64(200)), Name: "Prod", Type: "deployment", DbtVersion: ptr("1.7.0")},
				},
				EnvironmentVariables: []*model.EnvironmentVariable{
					{Name: "DBT_ENV_SECRET_PASSWORD", EnvironmentValues: map[string]string{"Prod": "*****"}},
					{Name: "DBT_TARGET", ProjectDefault: ptr("dev"), EnvironmentValues: map[string]string{"Prod": "prod", "CI": "ci"}},
					{Name: "DBT_EMPTY"},
				},
				Jobs: []*model.Job{
					{Key: "nightly", ID: ptr(int64(300)), Name: "Nightly", EnvironmentKey: "prod", ExecuteSteps: []string{"dbt deps", "dbt build"}, Settings: model.Bag{"job_type": "scheduled"}},
					{Key: "adhoc", ID: ptr(int64(301)), Name: "Adhoc", EnvironmentKey: "prod"},
				},
			},
		},
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	expected := `# dbt Cloud Account Import Summary

**Generated:** 2024-01-02 03:04:05 UTC
**Importer Version:** 1.2.3
**Account ID:** 12345
**Account Name:** Acme

## Global Resources

- **Connections:** 2
- **Repositories:** 1

## Projects Overview

**Total Projects:** 2

### Aggregate Counts

- **Total Environments:** 2
- **Total Jobs:** 2
- **Total Environment Variables:** 2
- **Total Environment Variable Secrets:** 1

---

## Projects Detail

### Analytics (PRJ ID: 100)

- **Environments:** 1
- **Jobs:** 2
- **Environment Variables:** 2
- **Environment Variable Secrets:** 1

### Zeta (PRJ ID: 101)

- **Environments:** 1
- **Jobs:** 0
- **Environment Variables:** 0
- **Environment Variable Secrets:** 0

`
	assert.Equal(t, expected, Summary(testSnapshot(), generatedAt, "1.2.3"))
}

func TestSummary_Empty(t *testing.T) {
	t.Parallel()
	out := Summary(&model.AccountSnapshot{AccountID: 1}, generatedAt, "dev")
	assert.Contains(t, out, "**Account Name:** N/A\n")
	assert.Contains(t, out, "**Total Projects:** 0\n")
	assert.True(t, strings.HasSuffix(out, "## Projects Detail\n\n"))
}

func TestOutline(t *testing.T) {
	t.Parallel()

	expected := "# dbt Cloud Account Detailed Outline\n" +
		"\n" +
		"**Generated:** 2024-01-02 03:04:05 UTC\n" +
		"**Importer Version:** 1.2.3\n" +
		"\n" +
		"## Account\n" +
		"\n" +
		"- **ID:** 12345\n" +
		"- **Name:** Acme\n" +
		"\n" +
		"---\n" +
		"\n" +
		"## Global Resources\n" +
		"\n" +
		"### Connections\n" +
		"\n" +
		"| Key | ID | Name | Type |\n" +
		"|-----|----|------|------|\n" +
		"| `connection_8` | 8 | N/A | N/A |\n" +
		"| `snowflake_prod` | 7 | Snowflake Prod | snowflake |\n" +
		"\n" +
		"### Repositories\n" +
		"\n" +
		"| Key | ID | Remote URL | Clone Strategy |\n" +
		"|-----|----|------------|----------------|\n" +
		"| `analytics` | 3 | git@github.com:acme/analytics.git | deploy_key |\n" +
		"\n" +
		"---\n" +
		"\n" +
		"## Projects\n" +
		"\n" +
		"### Analytics\n" +
		"\n" +
		"  - **Project ID:** 100\n" +
		"  - **Key:** `analytics`\n" +
		"\n" +
		"#### Environment Variables\n" +
		"\n" +
		"**`DBT_TARGET`** - 3 value(s)\n" +
		"\n" +
		"| Environment | Value |\n" +
		"|-------------|-------|\n" +
		"| Project (default) | `dev` |\n" +
		"| CI | `ci` |\n" +
		"| Prod | `prod` |\n" +
		"\n" +
		"**`DBT_EMPTY`** - 0 value(s)\n" +
		"\n" +
		"\n" +
		"#### Environment Variable Secrets\n" +
		"\n" +
		"**`DBT_ENV_SECRET_PASSWORD`** - 1 value(s)\n" +
		"\n" +
		"| Environment | Value |\n" +
		"|-------------|-------|\n" +
		"| Prod | `*****` |\n" +
		"\n" +
		"\n" +
		"#### Environments\n" +
		"\n" +
		"##### (ENV ID: 200) **Prod** - Type: `deployment` - Version: `1.7.0`\n" +
		"\n" +
		"**Prod Jobs**\n" +
		"\n" +
		"| ID | Job Name | Type | Execute Steps |\n" +
		"|----|----------|------|---------------|\n" +
		"| 300 | Nightly | `scheduled` | `dbt deps`<br>`dbt build` |\n" +
		"| 301 | Adhoc | `other` | *None* |\n" +
		"\n" +
		"\n" +
		"\n" +
		"---\n" +
		"\n" +
		"### Zeta\n" +
		"\n" +
		"  - **Project ID:** 101\n" +
		"  - **Key:** `zeta`\n" +
		"  - **Repository:** `analytics`\n" +
		"\n" +
		"#### Environments\n" +
		"\n" +
		"##### (ENV ID: 210) **Dev** - Type: `development` - Version: `N/A`\n" +
		"\n" +
		"  - *No jobs configured. Development environment.*\n" +
		"\n" +
		"\n" +
		"\n"
	assert.Equal(t, expected, Outline(testSnapshot(), generatedAt, "1.2.3"))
}

func TestOutline_NoGlobals(t *testing.T) {
	t.Parallel()
	out := Outline(&model.AccountSnapshot{AccountID: 1}, generatedAt, "dev")
	assert.Contains(t, out, "## Global Resources\n\n---\n\n## Projects\n")
	assert.NotContains(t, out, "### Connections")
	assert.NotContains(t, out, "### Repositories")
}
