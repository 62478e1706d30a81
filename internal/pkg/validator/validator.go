// Package validator validates structs by "validate" tags and reports all violations as one error.
package validator

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslation "github.com/go-playground/validator/v10/translations/en"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/utils/errors"
)

const nestedName = "__nested__"

type Validation struct {
	Tag  string
	Func validator.Func
}

// FieldNameFunc returns the field name used in error messages, "-" skips the field.
type FieldNameFunc func(field reflect.StructField) string

type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

type config struct {
	fieldName FieldNameFunc
	rules     []Validation
}

type Option func(c *config)

// WithFieldName sets field names in error messages, the JSON field name is the default.
func WithFieldName(fn FieldNameFunc) Option {
	return func(c *config) {
		c.fieldName = fn
	}
}

func WithRules(rules ...Validation) Option {
	return func(c *config) {
		c.rules = append(c.rules, rules...)
	}
}

func New(opts ...Option) *Validator {
	cfg := config{fieldName: jsonFieldName}
	for _, o := range opts {
		o(&cfg)
	}

	validate := validator.New()

	// Register default EN translator
	enLocale := en.New()
	enTranslator, found := ut.New(enLocale, enLocale).GetTranslator("en")
	if !found {
		panic(fmt.Errorf("en translator was not found"))
	}
	if err := enTranslation.RegisterDefaultTranslations(validate, enTranslator); err != nil {
		panic(fmt.Errorf("translator was not registered: %w", err))
	}

	// Register custom validation rules
	for _, rule := range cfg.rules {
		if err := validate.RegisterValidation(rule.Tag, rule.Func); err != nil {
			panic(err)
		}
	}

	// Set "__nested__" name for anonymous fields, so they can be removed from the error namespace.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if fld.Anonymous {
			return nestedName
		}
		return cfg.fieldName(fld)
	})

	return &Validator{validate: validate, translator: enTranslator}
}

// Validate the value, all violations are returned as one multi error.
func (v *Validator) Validate(ctx context.Context, value any) error {
	return v.ValidateCtx(ctx, value, "dive", "")
}

func (v *Validator) ValidateCtx(ctx context.Context, value any, tag string, namespace string) error {
	if err := v.validate.VarCtx(ctx, value, tag); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.processValidateError(validationErrs, namespace)
		}
		return err
	}
	return nil
}

func (v *Validator) processValidateError(err validator.ValidationErrors, prefix string) error {
	result := errors.NewMultiError()
	for _, e := range err {
		// Prefix error message by field namespace
		fieldPrefix := prefix
		if namespace := processNamespace(e.Namespace()); namespace != "" {
			if fieldPrefix != "" {
				fieldPrefix += "."
			}
			fieldPrefix += namespace
		}
		msg := e.Translate(v.translator)
		if fieldPrefix != "" {
			msg = fieldPrefix + "." + msg
		}
		result.Append(errors.New(msg))
	}
	return result.ErrorOrNil()
}

// Remove struct name (first part), field name (last part) and __nested__ parts.
func processNamespace(namespace string) string {
	namespace = strings.ReplaceAll(namespace, nestedName+".", "")
	parts := strings.Split(namespace, ".")
	if len(parts) <= 2 {
		return ""
	}
	return strings.Join(parts[1:len(parts)-1], ".")
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}
