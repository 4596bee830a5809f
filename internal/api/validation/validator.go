package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Issue describes a single field-level violation.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationError converts a binding error into the full list of
// field-level issues, not just the first one. Non-validator errors
// (malformed JSON and friends) collapse into a single body-level issue.
func FormatValidationError(err error) []Issue {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []Issue{{Field: "body", Message: err.Error()}}
	}

	issues := make([]Issue, 0, len(validationErrors))
	for _, e := range validationErrors {
		issues = append(issues, Issue{
			Field:   jsonField(e.Field()),
			Message: issueMessage(e),
		})
	}
	return issues
}

func issueMessage(e validator.FieldError) string {
	label := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "email":
		return "Please enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, e.Param())
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", label, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

// jsonField maps an exported struct field name to its JSON form.
func jsonField(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}
