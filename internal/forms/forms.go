// Package forms validates request bodies and reports failures per JSON
// field.
package forms

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
)

// New returns a validator that names fields by their json tag and checks
// crmapi.Money as a float.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if m, ok := field.Interface().(crmapi.Money); ok {
			f, _ := m.Float64()
			return f
		}
		return nil
	}, crmapi.Money{})
	return v
}

// Fields maps a validation error to per-field messages. Fields without an
// entry in messages get "Invalid value". It returns nil when err is not a
// validation failure.
func Fields(err error, messages map[string]string) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()]
		if !ok {
			msg = "Invalid value"
		}
		out[fe.Field()] = msg
	}
	return out
}
