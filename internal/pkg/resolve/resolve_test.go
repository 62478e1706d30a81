package resolve

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/model"
)

func ptr[T any](v T) *T {
	return &v
}

func TestKeyByID(t *testing.T) {
	t.Parallel()

	environments := []*model.Environment{
		{Key: "dev", ID: nil},
		{Key: "prod", ID: ptr(int64(100))},
	}

	key, found := KeyByID(slices.Values(environments), 100)
	assert.True(t, found)
	assert.Equal(t, "prod", key)

	_, found = KeyByID(slices.Values(environments), 999)
	assert.False(t, found)

	_, found = KeyByID(maps.Values(map[string]*model.Connection{}), 1)
	assert.False(t, found)
}

func TestConnectionKey(t *testing.T) {
	t.Parallel()

	connections := map[string]*model.Connection{
		"snowflake_prod": {Key: "snowflake_prod", ID: ptr(int64(1))},
		"no_id":          {Key: "no_id"},
	}

	assert.Equal(t, "snowflake_prod", ConnectionKey(connections, ptr(int64(1))))
	assert.Equal(t, "connection_42", ConnectionKey(connections, ptr(int64(42))))
	assert.Equal(t, "connection_unknown", ConnectionKey(connections, nil))
	assert.Equal(t, "connection_unknown", ConnectionKey(nil, nil))
}

func TestRepositoryKey(t *testing.T) {
	t.Parallel()

	repositories := map[string]*model.Repository{
		"git_x_repo_git": {Key: "git_x_repo_git", ID: ptr(int64(1))},
	}

	key := RepositoryKey(repositories, ptr(int64(1)))
	require.NotNil(t, key)
	assert.Equal(t, "git_x_repo_git", *key)

	// No fallback for repositories
	assert.Nil(t, RepositoryKey(repositories, ptr(int64(2))))
	assert.Nil(t, RepositoryKey(repositories, nil))
}

func TestEnvironmentKey(t *testing.T) {
	t.Parallel()

	environments := []*model.Environment{
		{Key: "prod", ID: ptr(int64(100)), Name: "Prod"},
		{Key: "dev", ID: ptr(int64(101)), Name: "Dev"},
	}

	cases := []struct {
		name     string
		ref      EnvironmentRef
		expected string
	}{
		{"id match", EnvironmentRef{ID: ptr(int64(101))}, "dev"},
		{"id match wins over name", EnvironmentRef{ID: ptr(int64(100)), Name: ptr("Dev")}, "prod"},
		{"name fallback", EnvironmentRef{ID: ptr(int64(999)), Name: ptr("Staging Env")}, "staging_env"},
		{"id fallback", EnvironmentRef{ID: ptr(int64(999))}, "env_999"},
		{"empty name", EnvironmentRef{ID: ptr(int64(999)), Name: ptr("")}, "env_999"},
		{"zero id", EnvironmentRef{ID: ptr(int64(0))}, "env_unknown"},
		{"nothing", EnvironmentRef{}, "env_unknown"},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, EnvironmentKey(environments, c.ref), c.name)
	}

	assert.Equal(t, "env_999", EnvironmentKey(nil, EnvironmentRef{ID: ptr(int64(999))}))
}
