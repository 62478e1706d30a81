// Package lineitems assigns deterministic element mapping ids to all snapshot resources
// and produces flat, numbered line item records for the conversion worksheet.
package lineitems

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/model"
)

const (
	DefaultStartNumber = 1001
	MappingIDLength    = 12
)

// Element type codes.
const (
	CodeAccount     = "ACC"
	CodeConnection  = "CON"
	CodeRepository  = "REP"
	CodeProject     = "PRJ"
	CodeVariable    = "VAR"
	CodeEnvironment = "ENV"
	CodeJob         = "JOB"
)

const (
	VariantRegular = "regular"
	VariantSecret  = "secret"
)

type Record struct {
	ElementTypeCode      string  `json:"element_type_code"`
	ElementMappingID     string  `json:"element_mapping_id"`
	LineItemNumber       int     `json:"line_item_number"`
	Name                 string  `json:"name"`
	DbtID                *int64  `json:"dbt_id"`
	Key                  *string `json:"key"`
	State                any     `json:"state"`
	IncludeInConversion  bool    `json:"include_in_conversion"`
	ResourceGroup        string  `json:"resource_group,omitempty"`
	ProjectKey           string  `json:"project_key,omitempty"`
	ProjectName          string  `json:"project_name,omitempty"`
	Variant              string  `json:"variant,omitempty"`
	ParentProjectID      string  `json:"parent_project_id,omitempty"`
	EnvironmentKey       string  `json:"environment_key,omitempty"`
	EnvironmentMappingID string  `json:"environment_mapping_id,omitempty"`
}

// ShortHash returns the first "length" hex chars of the SHA-256 of the value.
func ShortHash(value string, length int) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:length]
}

// MappingID returns the element mapping id of the element.
func MappingID(code, identifier string) string {
	return ShortHash(code+":"+identifier, MappingIDLength)
}

// Build creates line items for the snapshot, the snapshot is not modified.
//
// Order: account, connections, repositories (both by key), then each project followed by its
// variables and environments, each environment followed by its jobs. Jobs bound to no environment
// of the project follow the last environment.
func Build(snapshot *model.AccountSnapshot, startNumber int) []Record {
	b := &builder{}

	accountID := strconv.FormatInt(snapshot.AccountID, 10)
	accountName := "Account " + accountID
	if snapshot.AccountName != nil && *snapshot.AccountName != "" {
		accountName = *snapshot.AccountName
	}
	b.add(Record{ElementTypeCode: CodeAccount, Name: accountName}, accountID, nil)

	for _, key := range slices.Sorted(maps.Keys(snapshot.Globals.Connections)) {
		c := snapshot.Globals.Connections[key]
		b.add(
			Record{ElementTypeCode: CodeConnection, Name: firstNonEmpty(deref(c.Name), key), DbtID: c.ID, Key: &c.Key, ResourceGroup: "Connections"},
			identifier(c.ID, deref(c.Name), c.Key),
			stateOf(c.Details),
		)
	}

	for _, key := range slices.Sorted(maps.Keys(snapshot.Globals.Repositories)) {
		r := snapshot.Globals.Repositories[key]
		b.add(
			Record{ElementTypeCode: CodeRepository, Name: key, DbtID: r.ID, Key: &r.Key, ResourceGroup: "Repositories"},
			identifier(r.ID, "", r.Key),
			stateOf(r.Metadata),
		)
	}

	for _, p := range snapshot.Projects {
		projectName := firstNonEmpty(p.Name, p.Key)
		projectID := b.add(
			Record{ElementTypeCode: CodeProject, Name: projectName, DbtID: p.ID, Key: &p.Key, ProjectKey: p.Key},
			identifier(p.ID, p.Name, p.Key),
			stateOf(p.Metadata),
		)

		for _, v := range p.EnvironmentVariables {
			variant := VariantRegular
			if v.IsSecret() {
				variant = VariantSecret
			}
			b.add(
				Record{ElementTypeCode: CodeVariable, Name: v.Name, ProjectKey: p.Key, ProjectName: projectName, Variant: variant, ParentProjectID: projectID},
				identifier(nil, v.Name, ""),
				nil,
			)
		}

		bound := make(map[string]bool)
		for _, env := range p.Environments {
			envID := b.add(
				Record{ElementTypeCode: CodeEnvironment, Name: env.Name, DbtID: env.ID, Key: &env.Key, ProjectKey: p.Key, ProjectName: projectName, ParentProjectID: projectID},
				identifier(env.ID, env.Name, env.Key),
				stateOf(env.Metadata),
			)
			bound[env.Key] = true
			for _, job := range p.JobsOf(env.Key) {
				b.addJob(p, projectName, projectID, job, envID)
			}
		}

		for _, job := range p.Jobs {
			if !bound[job.EnvironmentKey] {
				b.addJob(p, projectName, projectID, job, "")
			}
		}
	}

	for i := range b.records {
		b.records[i].LineItemNumber = startNumber + i
	}
	return b.records
}

type builder struct {
	records []Record
}

func (b *builder) add(record Record, identifier string, state any) string {
	if identifier == "" {
		identifier = firstNonEmpty(record.Name, record.ElementTypeCode)
	}
	record.ElementMappingID = MappingID(record.ElementTypeCode, identifier)
	record.State = state
	record.IncludeInConversion = !IsInactiveState(state)
	b.records = append(b.records, record)
	return record.ElementMappingID
}

func (b *builder) addJob(p *model.Project, projectName, projectID string, job *model.Job, envID string) {
	b.add(
		Record{
			ElementTypeCode:      CodeJob,
			Name:                 job.Name,
			DbtID:                job.ID,
			Key:                  &job.Key,
			ProjectKey:           p.Key,
			ProjectName:          projectName,
			ParentProjectID:      projectID,
			EnvironmentKey:       job.EnvironmentKey,
			EnvironmentMappingID: envID,
		},
		identifier(job.ID, job.Name, job.Key),
		stateOf(job.Settings),
	)
}

// identifier of an element: non-zero id, name or key.
func identifier(id *int64, name, key string) string {
	if id != nil && *id != 0 {
		return strconv.FormatInt(*id, 10)
	}
	return firstNonEmpty(name, key)
}

// stateOf returns the "state" attribute of the raw API record, nil if it is not present.
func stateOf(bag model.Bag) any {
	v, _ := bag.Get("state")
	return v
}

// IsInactiveState returns true for numeric states 0, 2 and for inactive/deleted/soft_deleted/disabled.
func IsInactiveState(state any) bool {
	switch v := state.(type) {
	case nil, bool:
		return false
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "inactive", "deleted", "soft_deleted", "disabled":
			return true
		}
		return false
	default:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return false
		}
		return n == 0 || n == 2
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
