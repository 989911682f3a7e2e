package util

import (
	"errors"
	"strings"
)

// ErrPublic is an error whose message is safe to forward verbatim to an end
// user, it must not carry any internal detail.
type ErrPublic string

func (e ErrPublic) Error() string {
	return string(e)
}

func ConcatErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	filtered := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err.Error())
		}
	}

	if len(filtered) == 0 {
		return nil
	}

	return errors.New(strings.Join(filtered, "; "))
}
