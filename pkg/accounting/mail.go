package accounting

import (
	"context"
	"fmt"

	cerr "github.com/cockroachdb/errors"

	"github.com/ewildgoose/snapback2/pkg/execrun"
)

// MailConfig names the mail submission program and its intended
// recipient.
type MailConfig struct {
	Program     string
	AdminEmail  string
	AlwaysEmail bool
}

// ShouldEmail reports whether the run log should be mailed: either the
// operator always wants email, or this run logged at least one error.
func ShouldEmail(cfg MailConfig, errorsLogged bool) bool {
	if cfg.AdminEmail == "" {
		return false
	}
	return cfg.AlwaysEmail || errorsLogged
}

// SendRunLog submits subject/body to cfg.Program via stdin, the way a
// sendmail-compatible submission program expects (-t-style: headers then
// a blank line then the body). A failure here is logged but never fatal
// to the run.
func SendRunLog(ctx context.Context, runner execrun.Runner, cfg MailConfig, subject, body string) error {
	if cfg.Program == "" {
		return cerr.New("no mail submission program configured")
	}

	message := fmt.Sprintf("To: %s\nSubject: %s\n\n%s", cfg.AdminEmail, subject, body)

	_, err := runner.Run(ctx, execrun.Options{
		Command: cfg.Program,
		Args:    []string{"-t"},
		Stdin:   message,
	})
	if err != nil {
		return cerr.Wrap(err, "sending run log email")
	}
	return nil
}
