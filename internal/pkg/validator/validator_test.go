package validator

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct1 struct {
	Field1      string        `json:"field1" validate:"required"`
	Field2      int           `json:"field2" validate:"gt=0"`
	Field3      string        `json:"-" validate:"required"`
	Nested      []testStruct2 `validate:"dive"`
	testStruct2               // anonymous
}

type testStruct2 struct {
	Field4 string `json:"field4" validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()
	err := New().Validate(context.Background(), testStruct1{Nested: []testStruct2{{}, {}}})
	expected := `
- field1 is a required field
- field2 must be greater than 0
- Field3 is a required field
- Nested[0].field4 is a required field
- Nested[1].field4 is a required field
- field4 is a required field
`
	require.Error(t, err)
	assert.Equal(t, strings.TrimSpace(expected), err.Error())
}

func TestValidateStructWithNamespace(t *testing.T) {
	t.Parallel()
	err := New().ValidateCtx(context.Background(), testStruct2{}, "dive", "my.value")
	require.Error(t, err)
	assert.Equal(t, "my.value.field4 is a required field", err.Error())
}

func TestValidateValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, New().Validate(context.Background(), testStruct1{Field1: "a", Field2: 1, Field3: "b", testStruct2: testStruct2{Field4: "c"}}))
}

func TestValidateFieldName(t *testing.T) {
	t.Parallel()

	type options struct {
		Host string `flag:"host" validate:"required,url"`
	}

	v := New(WithFieldName(func(field reflect.StructField) string {
		return "--" + field.Tag.Get("flag")
	}))

	err := v.Validate(context.Background(), options{})
	require.Error(t, err)
	assert.Equal(t, "--host is a required field", err.Error())

	err = v.Validate(context.Background(), options{Host: "foo"})
	require.Error(t, err)
	assert.Equal(t, "--host must be a valid URL", err.Error())
}

func TestValidateCustomRule(t *testing.T) {
	t.Parallel()

	type value struct {
		Name string `json:"name" validate:"lowercase_only"`
	}

	v := New(WithRules(Validation{
		Tag: "lowercase_only",
		Func: func(fl validator.FieldLevel) bool {
			return strings.ToLower(fl.Field().String()) == fl.Field().String()
		},
	}))

	assert.NoError(t, v.Validate(context.Background(), value{Name: "abc"}))
	err := v.Validate(context.Background(), value{Name: "ABC"})
	require.Error(t, err)
	// There is no translation for a custom rule
	assert.Contains(t, err.Error(), "name")
}
