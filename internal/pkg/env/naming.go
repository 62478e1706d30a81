package env

import (
	"fmt"

	"github.com/iancoleman/strcase"
)

const Prefix = "DBT_SOURCE_"

type NamingConvention struct {
	prefix string
}

func NewNamingConvention(prefix string) *NamingConvention {
	return &NamingConvention{prefix: prefix}
}

// FlagToEnv converts flag name to ENV variable name
// for example "api-token" -> "DBT_SOURCE_API_TOKEN".
func (n *NamingConvention) FlagToEnv(flagName string) string {
	if len(flagName) == 0 {
		panic(fmt.Errorf("flag name cannot be empty"))
	}

	return n.prefix + strcase.ToScreamingSnake(flagName)
}

// Files are ".env" files loaded from the working directory, in order of precedence.
func Files() []string {
	return []string{
		".env",
		".env.local",
		".env.importer",
	}
}
