package config

import (
	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// Validate checks the invariants the engine depends on before it starts
// touching the filesystem: every job needs a host, a directory, dir-name
// overrides, and at least one hourly slot, enforced via struct tags on Job
// and Retention rather than hand-rolled field checks.
func Validate(jobs []Job) error {
	for _, j := range jobs {
		if err := structValidator.Struct(j); err != nil {
			return cerr.Wrapf(err, "host %q directory %q", j.Host, j.Directory)
		}
	}
	return nil
}
