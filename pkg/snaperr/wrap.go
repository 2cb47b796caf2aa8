package snaperr

import (
	cerr "github.com/cockroachdb/errors"
)

// WrapValidation annotates a configuration-validation failure with a stack
// trace and hint, without changing its classification.
func WrapValidation(err error) error {
	return cerr.WithHint(cerr.WithStack(err), "resolved configuration failed validation")
}
