// Package model contains the account snapshot, an immutable tree of dbt Cloud account resources.
//
// Resources reference each other by key, not by pointer. A Job references its Environment
// by Job.EnvironmentKey, an Environment references its Connection by Environment.ConnectionKey.
package model

import (
	"strings"
)

const SecretVariablePrefix = "DBT_ENV_SECRET"

type Connection struct {
	Key     string  `json:"key" yaml:"key"`
	ID      *int64  `json:"id" yaml:"id"`
	Name    *string `json:"name" yaml:"name"`
	Type    *string `json:"type" yaml:"type"`
	Details Bag     `json:"details" yaml:"details"`
}

type Repository struct {
	Key              string  `json:"key" yaml:"key"`
	ID               *int64  `json:"id" yaml:"id"`
	RemoteURL        string  `json:"remote_url" yaml:"remote_url"`
	GitCloneStrategy *string `json:"git_clone_strategy" yaml:"git_clone_strategy"`
	Metadata         Bag     `json:"metadata" yaml:"metadata"`
}

// Credential of an Environment, it is owned by the Environment.
type Credential struct {
	TokenName string  `json:"token_name" yaml:"token_name"`
	Schema    string  `json:"schema" yaml:"schema"`
	Catalog   *string `json:"catalog" yaml:"catalog"`
}

type Environment struct {
	Key                     string     `json:"key" yaml:"key"`
	ID                      *int64     `json:"id" yaml:"id"`
	Name                    string     `json:"name" yaml:"name"`
	Type                    string     `json:"type" yaml:"type"`
	ConnectionKey           string     `json:"connection_key" yaml:"connection_key"`
	Credential              Credential `json:"credential" yaml:"credential"`
	DbtVersion              *string    `json:"dbt_version" yaml:"dbt_version"`
	CustomBranch            *string    `json:"custom_branch" yaml:"custom_branch"`
	EnableModelQueryHistory *bool      `json:"enable_model_query_history" yaml:"enable_model_query_history"`
	Metadata                Bag        `json:"metadata" yaml:"metadata"`
}

type Job struct {
	Key            string   `json:"key" yaml:"key"`
	ID             *int64   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	EnvironmentKey string   `json:"environment_key" yaml:"environment_key"`
	ExecuteSteps   []string `json:"execute_steps" yaml:"execute_steps"`
	Triggers       Bag      `json:"triggers" yaml:"triggers"`
	Settings       Bag      `json:"settings" yaml:"settings"`
}

// EnvironmentVariable of a project.
// EnvironmentValues maps an environment name to the value.
type EnvironmentVariable struct {
	Name              string            `json:"name" yaml:"name"`
	ProjectDefault    *string           `json:"project_default" yaml:"project_default"`
	EnvironmentValues map[string]string `json:"environment_values" yaml:"environment_values"`
}

// IsSecret returns true for "DBT_ENV_SECRET*" variables.
func (v *EnvironmentVariable) IsSecret() bool {
	return strings.HasPrefix(v.Name, SecretVariablePrefix)
}

// ValuesCount returns the number of environment values, plus one for a non-empty project default.
func (v *EnvironmentVariable) ValuesCount() int {
	count := len(v.EnvironmentValues)
	if v.ProjectDefault != nil && *v.ProjectDefault != "" {
		count++
	}
	return count
}

type Project struct {
	Key                  string                 `json:"key" yaml:"key"`
	ID                   *int64                 `json:"id" yaml:"id"`
	Name                 string                 `json:"name" yaml:"name"`
	RepositoryKey        *string                `json:"repository_key" yaml:"repository_key"`
	Environments         []*Environment         `json:"environments" yaml:"environments"`
	EnvironmentVariables []*EnvironmentVariable `json:"environment_variables" yaml:"environment_variables"`
	Jobs                 []*Job                 `json:"jobs" yaml:"jobs"`
	Metadata             Bag                    `json:"metadata" yaml:"metadata"`
}

// JobsOf returns jobs bound to the environment key, in the original order.
func (p *Project) JobsOf(environmentKey string) []*Job {
	var out []*Job
	for _, job := range p.Jobs {
		if job.EnvironmentKey == environmentKey {
			out = append(out, job)
		}
	}
	return out
}

// VariablesCount returns the number of regular and secret variables.
func (p *Project) VariablesCount() (regular, secret int) {
	for _, v := range p.EnvironmentVariables {
		if v.IsSecret() {
			secret++
		} else {
			regular++
		}
	}
	return regular, secret
}

// Globals are account-wide resources not owned by any project.
type Globals struct {
	Connections  map[string]*Connection `json:"connections" yaml:"connections"`
	Repositories map[string]*Repository `json:"repositories" yaml:"repositories"`
}

// AccountSnapshot is the root of the snapshot tree.
type AccountSnapshot struct {
	AccountID   int64      `json:"account_id" yaml:"account_id"`
	AccountName *string    `json:"account_name" yaml:"account_name"`
	Globals     Globals    `json:"globals" yaml:"globals"`
	Projects    []*Project `json:"projects" yaml:"projects"`
}

// Counts aggregated over the whole snapshot.
type Counts struct {
	Connections     int
	Repositories    int
	Projects        int
	Environments    int
	Jobs            int
	Variables       int
	SecretVariables int
}

func (s *AccountSnapshot) Counts() Counts {
	c := Counts{
		Connections:  len(s.Globals.Connections),
		Repositories: len(s.Globals.Repositories),
		Projects:     len(s.Projects),
	}
	for _, p := range s.Projects {
		c.Environments += len(p.Environments)
		c.Jobs += len(p.Jobs)
		regular, secret := p.VariablesCount()
		c.Variables += regular
		c.SecretVariables += secret
	}
	return c
}
