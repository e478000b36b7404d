package httpapi

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// bindErrorMessage converts binding failures into a stable one-line message
// instead of leaking validator internals to the client.
func bindErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		field := strings.ToLower(validationErrs[0].Field())
		switch validationErrs[0].Tag() {
		case "required":
			return field + " is required"
		default:
			return field + " is invalid"
		}
	}
	return "invalid json"
}
