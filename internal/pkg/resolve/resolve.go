// Package resolve maps numeric ids referenced by API records to keys of already fetched entities.
//
// Resolution never fails. Depending on the reference kind an unresolved id produces
// a synthetic fallback key or no key at all.
package resolve

import (
	"iter"
	"maps"
	"slices"
	"strconv"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/model"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/utils/strhelper"
)

const (
	UnknownConnectionKey  = "connection_unknown"
	UnknownEnvironmentKey = "env_unknown"
)

// KeyByID returns the key of the first entity with the id, it is a linear scan.
func KeyByID[E model.Entity](entities iter.Seq[E], id int64) (string, bool) {
	for entity := range entities {
		if entityID := entity.EntityID(); entityID != nil && *entityID == id {
			return entity.EntityKey(), true
		}
	}
	return "", false
}

// ConnectionKey resolves the connection of an environment.
// A missing id resolves to "connection_unknown", an id without match to "connection_<id>".
func ConnectionKey(connections map[string]*model.Connection, id *int64) string {
	if id == nil {
		return UnknownConnectionKey
	}
	if key, found := KeyByID(maps.Values(connections), *id); found {
		return key
	}
	return "connection_" + strconv.FormatInt(*id, 10)
}

// RepositoryKey resolves the repository of a project, the result is nil if there is no match.
func RepositoryKey(repositories map[string]*model.Repository, id *int64) *string {
	if id == nil {
		return nil
	}
	if key, found := KeyByID(maps.Values(repositories), *id); found {
		return &key
	}
	return nil
}

// EnvironmentRef is a reference from a job to an environment of the same project.
type EnvironmentRef struct {
	ID   *int64
	Name *string
}

// EnvironmentKey resolves the environment of a job.
//
// Order: key of the environment with the id, slug of the referenced name,
// "env_<id>", "env_unknown". Zero id is the same as no id.
func EnvironmentKey(environments []*model.Environment, ref EnvironmentRef) string {
	hasID := ref.ID != nil && *ref.ID != 0
	if hasID {
		if key, found := KeyByID(slices.Values(environments), *ref.ID); found {
			return key
		}
	}
	if ref.Name != nil && *ref.Name != "" {
		return strhelper.Slugify(*ref.Name)
	}
	if hasID {
		return "env_" + strconv.FormatInt(*ref.ID, 10)
	}
	return UnknownEnvironmentKey
}
