// Package options loads the importer configuration from flags, ENV variables and ".env" files.
package options

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/dbtcloud"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/env"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/utils/errors"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/validator"
)

const (
	DefaultTimeout       = 30.0
	DefaultMaxRetries    = 5
	DefaultBackoffFactor = 1.5
)

// Options contains parsed flags and ENV variables.
type Options struct {
	Verbose           bool    `flag:"verbose"`                             // verbose mode, print details to console
	VerboseAPI        bool    `flag:"verbose-api"`                         // dump all API requests and responses
	LogFilePath       string  `flag:"log-file"`                            // path to the log file
	Host              string  `flag:"host" validate:"required,url"`        // dbt Cloud host, eg. "https://cloud.getdbt.com"
	AccountID         int64   `flag:"account-id" validate:"required,gt=0"` // dbt Cloud account ID
	APIToken          string  `flag:"api-token" validate:"required"`       // API token
	Timeout           float64 `flag:"api-timeout" validate:"gt=0"`         // request timeout in seconds
	MaxRetries        int     `flag:"api-max-retries" validate:"gte=0"`    // retries of a failed request
	BackoffFactor     float64 `flag:"api-backoff-factor" validate:"gte=0"` // first backoff delay in seconds
	RespectRetryAfter bool    `flag:"api-retry-after"`                     // wait by the Retry-After header on 429
	VerifySSL         bool    `flag:"ssl-verify"`                          // verify TLS certificates
	WorkingDirectory  string  `flag:"working-dir"`                         // working directory
}

func New() *Options {
	return &Options{}
}

// BindPersistentFlags for all commands.
func (o *Options) BindPersistentFlags(flags *pflag.FlagSet) {
	flags.SortFlags = true
	flags.BoolP("verbose", "v", false, "print details")
	flags.Bool("verbose-api", false, "log each API request and response")
	flags.StringP("log-file", "l", "", "path to a log file for details")
	flags.StringP("working-dir", "d", "", "use other working directory")
	flags.String("host", "", `dbt Cloud host, eg. "https://cloud.getdbt.com"`)
	flags.String("account-id", "", "dbt Cloud account ID")
	flags.String("api-token", "", "dbt Cloud API token")
	flags.Float64("api-timeout", DefaultTimeout, "request timeout in seconds")
	flags.Int("api-max-retries", DefaultMaxRetries, "max retries of a failed request")
	flags.Float64("api-backoff-factor", DefaultBackoffFactor, "first backoff delay in seconds, doubled on each retry")
	flags.String("api-retry-after", "true", "respect the Retry-After header of a rate-limited response")
	flags.String("ssl-verify", "true", "verify TLS certificates")
}

// Load all sources of Options: flags, ENV variables (including ".env" files).
// Priority: flag explicitly set > ENV > flag default.
func (o *Options) Load(flags *pflag.FlagSet, envs env.Provider) error {
	naming := env.NewNamingConvention(env.Prefix)
	parser := viper.New()

	// Bind flags
	if err := parser.BindPFlags(flags); err != nil {
		return err
	}

	// ENVs have lower priority than a changed flag
	fromEnv := make(map[string]any)
	flags.VisitAll(func(flag *pflag.Flag) {
		if value, found := envs.Lookup(naming.FlagToEnv(flag.Name)); found && value != "" {
			fromEnv[flag.Name] = value
		}
	})
	if err := parser.MergeConfigMap(fromEnv); err != nil {
		return err
	}

	// For each Options struct field with "flag" tag -> load value from parser
	errs := errors.NewMultiError()
	reflection := reflect.Indirect(reflect.ValueOf(o))
	types := reflection.Type()
	for i := 0; i < reflection.NumField(); i++ {
		flag := types.Field(i).Tag.Get("flag")
		if flag == "" {
			continue
		}

		// Flag is not defined and ENV is not set
		raw := parser.Get(flag)
		if str, ok := raw.(string); raw == nil || ok && str == "" {
			continue
		}

		value, err := convert(raw, types.Field(i).Type.Kind())
		if err != nil {
			errs.Append(errors.Errorf(`invalid value "%v" of %s: %w`, raw, fieldName(naming, flag), err))
			continue
		}
		reflection.Field(i).Set(reflect.ValueOf(value).Convert(types.Field(i).Type))
	}

	// Normalize the values into a uniform form
	o.normalize()

	return errs.ErrorOrNil()
}

func (o *Options) normalize() {
	o.Host = strings.TrimRight(strings.TrimSpace(o.Host), "/")
	o.APIToken = strings.TrimSpace(o.APIToken)
}

// Validate options, all violations are reported together.
func (o *Options) Validate(ctx context.Context) error {
	naming := env.NewNamingConvention(env.Prefix)
	v := validator.New(validator.WithFieldName(func(field reflect.StructField) string {
		if flag := field.Tag.Get("flag"); flag != "" {
			return fieldName(naming, flag)
		}
		return field.Name
	}))

	if err := v.Validate(ctx, *o); err != nil {
		return errors.PrefixError(err, "invalid configuration")
	}
	return nil
}

// ClientConfig converts options to the API client configuration.
func (o *Options) ClientConfig() dbtcloud.Config {
	return dbtcloud.Config{
		Host:              o.Host,
		AccountID:         o.AccountID,
		Token:             o.APIToken,
		Timeout:           time.Duration(o.Timeout * float64(time.Second)),
		MaxRetries:        o.MaxRetries,
		BackoffFactor:     o.BackoffFactor,
		RespectRetryAfter: o.RespectRetryAfter,
		VerifySSL:         o.VerifySSL,
		Verbose:           o.VerboseAPI,
	}
}

// Dump Options for debugging, hide API token.
func (o *Options) Dump() string {
	re := regexp.MustCompile(`(APIToken:"[^"]{1,7})[^"]*(")`)
	str := fmt.Sprintf("Parsed options: %#v", *o)
	return re.ReplaceAllString(str, `$1*****$2`)
}

func convert(raw any, kind reflect.Kind) (any, error) {
	switch kind {
	case reflect.String:
		return cast.ToStringE(raw)
	case reflect.Bool:
		return parseBool(raw)
	case reflect.Int:
		return cast.ToIntE(raw)
	case reflect.Int64:
		return cast.ToInt64E(raw)
	case reflect.Float64:
		return cast.ToFloat64E(raw)
	default:
		panic(errors.Errorf(`unexpected options field kind "%s"`, kind))
	}
}

// parseBool accepts "1", "true", "yes", "on" (case-insensitive) as true, anything else is false.
func parseBool(raw any) (bool, error) {
	if v, ok := raw.(bool); ok {
		return v, nil
	}
	str, err := cast.ToStringE(raw)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, nil
	}
}

func fieldName(naming *env.NamingConvention, flag string) string {
	return fmt.Sprintf(`--%s (%s)`, flag, naming.FlagToEnv(flag))
}
