// path: internal/httpapi/validate.go
package httpapi

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// formatValidationErrors turns validator field errors into a
// field->message map, generalized from the teacher's
// middleware.FormatValidationErrors for this package's own DTOs.
func formatValidationErrors(err error) map[string]string {
	fields := make(map[string]string)

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["_"] = err.Error()
		return fields
	}

	for _, e := range verrs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			fields[field] = field + " is required"
		case "min":
			fields[field] = field + " must have at least " + e.Param() + " item(s)"
		case "uuid4":
			fields[field] = field + " must be a valid UUID"
		case "oneof":
			fields[field] = field + " must be one of: " + e.Param()
		default:
			fields[field] = field + " failed validation: " + e.Tag()
		}
	}
	return fields
}
