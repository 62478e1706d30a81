package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserAgent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "dbtcloud-importer/"+BuildVersion, UserAgent())
}

func TestVersion(t *testing.T) {
	t.Parallel()
	assert.Contains(t, Version(), "Version:    "+BuildVersion+"\n")
	assert.Contains(t, Version(), "Go version: ")
}
