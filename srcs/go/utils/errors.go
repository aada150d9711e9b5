package utils

import (
	"fmt"
	"strings"
)

type mergedError struct {
	hint string
	errs []error
}

func (e *mergedError) Error() string {
	msgs := make([]string, len(e.errs))
	for i, err := range e.errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s failed with %s: %s", e.hint, Pluralize(len(e.errs), "error", "errors"), strings.Join(msgs, ", "))
}

func (e *mergedError) Unwrap() []error { return e.errs }

// MergeErrors summarizes the non-nil errors of errs, it returns nil if there is none.
// errors.Is and errors.As see through the result to every merged error.
func MergeErrors(errs []error, hint string) error {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &mergedError{hint: hint, errs: failed}
}
