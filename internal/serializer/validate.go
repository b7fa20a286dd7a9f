package serializer

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/snippets-api/internal/highlight"
)

var validate = newValidator()

// newValidator builds the validator used for Fields.
//
// Field names in errors come from the json tag, so a failure on Fields.Language
// is reported under "language", the same key the client sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "language", func(fl validator.FieldLevel) bool {
		return highlight.IsLanguage(fl.Field().String())
	})
	mustRegister(v, "style", func(fl validator.FieldLevel) bool {
		return highlight.IsStyle(fl.Field().String())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("serializer: registering %q validation: %v", tag, err))
	}
}

// validateFields runs struct validation and converts failures into
// client-facing messages keyed by field name.
func validateFields(f Fields) map[string][]string {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string][]string{"non_field_errors": {err.Error()}}
	}

	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = append(out[fe.Field()], fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank", "required":
		return "This field may not be blank."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "language":
		return invalidChoice(fe.Value(), highlight.Languages())
	case "style":
		return invalidChoice(fe.Value(), highlight.Styles())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

// invalidChoice names the rejected value and the complete allowed set.
func invalidChoice(value any, allowed []string) string {
	return fmt.Sprintf("\"%v\" is not a valid choice. Choose one of: %s.", value, strings.Join(allowed, ", "))
}
