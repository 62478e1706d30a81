package fetcher

import (
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/dbtcloud"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/model"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/utils/errors"
)

const (
	defaultEnvironmentType = "development"
	projectDefaultKey      = "project"
)

type apiConnection struct {
	ID   *int64  `mapstructure:"id"`
	Name *string `mapstructure:"name"`
	Type *string `mapstructure:"type"`
}

type apiRepository struct {
	ID               *int64  `mapstructure:"id"`
	Name             *string `mapstructure:"name"`
	RemoteURL        *string `mapstructure:"remote_url"`
	GitCloneStrategy *string `mapstructure:"git_clone_strategy"`
}

type apiProject struct {
	ID           *int64  `mapstructure:"id"`
	Name         *string `mapstructure:"name"`
	RepositoryID *int64  `mapstructure:"repository_id"`
}

type apiCredential struct {
	TokenName *string `mapstructure:"token_name"`
	Schema    *string `mapstructure:"schema"`
	Catalog   *string `mapstructure:"catalog"`
}

type apiEnvironment struct {
	ID                      *int64         `mapstructure:"id"`
	Name                    *string        `mapstructure:"name"`
	Type                    *string        `mapstructure:"type"`
	ConnectionID            *int64         `mapstructure:"connection_id"`
	Credentials             map[string]any `mapstructure:"credentials"`
	Credential              map[string]any `mapstructure:"credential"`
	DbtVersion              *string        `mapstructure:"dbt_version"`
	CustomBranch            *string        `mapstructure:"custom_branch"`
	EnableModelQueryHistory *bool          `mapstructure:"enable_model_query_history"`
}

type apiJobEnvironment struct {
	ID   *int64  `mapstructure:"id"`
	Name *string `mapstructure:"name"`
}

type apiJob struct {
	ID            *int64             `mapstructure:"id"`
	Name          *string            `mapstructure:"name"`
	EnvironmentID *int64             `mapstructure:"environment_id"`
	Environment   *apiJobEnvironment `mapstructure:"environment"`
	ExecuteSteps  []string           `mapstructure:"execute_steps"`
	Triggers      map[string]any     `mapstructure:"triggers"`
}

// decode maps the record to the target struct, numbers and strings are converted if needed.
// Null and missing values leave the target field unset.
func decode(record dbtcloud.Record, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]any(record))
}

func requireName(kind string, record dbtcloud.Record, name *string) error {
	if name == nil {
		return errors.Errorf(`%s record without "name" (id: %v)`, kind, record["id"])
	}
	return nil
}

// credential returns the first non-empty of "credentials" and "credential" objects.
func (v *apiEnvironment) credential() (model.Credential, error) {
	raw := v.Credentials
	if len(raw) == 0 {
		raw = v.Credential
	}

	var c apiCredential
	if len(raw) > 0 {
		if err := decode(raw, &c); err != nil {
			return model.Credential{}, err
		}
	}

	out := model.Credential{Catalog: c.Catalog}
	if c.TokenName != nil {
		out.TokenName = *c.TokenName
	}
	if c.Schema != nil {
		out.Schema = *c.Schema
	}
	return out, nil
}

// environmentRef returns the id of the embedded environment object, or the "environment_id" field.
func (v *apiJob) environmentRef() (id *int64, name *string) {
	if v.Environment != nil {
		if v.Environment.ID != nil && *v.Environment.ID != 0 {
			id = v.Environment.ID
		}
		name = v.Environment.Name
	}
	if id == nil {
		id = v.EnvironmentID
	}
	return id, name
}

// decodeEnvironmentVariables parses the v3 environment variables payload:
//
//	{"data": {"variables": {"NAME": {"project": {"value": "..."}, "<environment name>": {"value": "..."}}}}}
//
// Variables are sorted by name.
func decodeEnvironmentVariables(body dbtcloud.Record) ([]*model.EnvironmentVariable, error) {
	data, ok := body["data"].(map[string]any)
	if !ok {
		return nil, errors.New(`unexpected environment variables payload: "data" is not an object`)
	}

	variables, ok := data["variables"].(map[string]any)
	if !ok {
		if data["variables"] == nil {
			return []*model.EnvironmentVariable{}, nil
		}
		return nil, errors.New(`unexpected environment variables payload: "data.variables" is not an object`)
	}

	out := make([]*model.EnvironmentVariable, 0, len(variables))
	for name, rawValues := range variables {
		variable := &model.EnvironmentVariable{Name: name, EnvironmentValues: make(map[string]string)}
		values, _ := rawValues.(map[string]any)
		for envName, rawDetails := range values {
			details, ok := rawDetails.(map[string]any)
			if !ok {
				continue
			}
			value, found := details["value"]
			if envName == projectDefaultKey {
				if found && value != nil {
					str := cast.ToString(value)
					variable.ProjectDefault = &str
				}
				continue
			}
			if found {
				variable.EnvironmentValues[envName] = cast.ToString(value)
			}
		}
		out = append(out, variable)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}
