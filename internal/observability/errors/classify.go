// Package errors tags errors with a stable type name for logs.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	apperrors "github.com/target/mmk-admin-console/internal/errors"
)

// Classify returns a normalized error type name suitable for tagging logs.
// Backend answers are tagged "api_<code>"; transport failures and plain
// errors are tagged with the innermost concrete type in snake_case-ish form.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var appErr *apperrors.AppError
	if goerrors.As(err, &appErr) {
		if appErr.StatusCode == 0 && appErr.Cause != nil {
			return typeName(innermost(appErr.Cause))
		}
		return "api_" + string(appErr.Code)
	}
	return typeName(innermost(err))
}

func innermost(err error) error {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(t.String())
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
