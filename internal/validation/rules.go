// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/json"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/ledgersync/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// PathSegment validates that a string can be used as a single remote path segment.
var PathSegment = validation.NewStringRuleWithError(
	func(s string) bool {
		return !strings.ContainsAny(s, "/\\") && s != "." && s != ".."
	},
	validation.NewError("validation_path_segment", "must not contain path separators"),
)

// JSONText validates that a non-empty string holds a valid JSON document.
var JSONText = validation.NewStringRuleWithError(
	func(s string) bool {
		return json.Valid([]byte(s))
	},
	validation.NewError("validation_json_text", "must be valid JSON"),
)
