// Package accounting implements the run logger and billing side of a
// backup run: scanning the external sync's transcript for byte counts,
// appending charge records, and sending the administrator's run-summary
// email when warranted.
package accounting

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
)

// Ledger accumulates per-client byte counts across a run's transcript.
type Ledger struct {
	charges map[string]int64
	current string
}

func NewLedger() *Ledger {
	return &Ledger{charges: map[string]int64{}}
}

var clientLine = regexp.MustCompile(`^client (\S+)`)
var wroteReadLine = regexp.MustCompile(`wrote (\d+) bytes read (\d+) bytes`)

// ScanLine feeds one transcript line to the ledger. "client <fqdn>" lines
// (written by the engine itself before each sync invocation) mark which
// client subsequent byte counts belong to; "wrote N bytes read M bytes"
// lines contribute their read count (M) to the current client's total.
func (l *Ledger) ScanLine(line string) {
	if m := clientLine.FindStringSubmatch(line); m != nil {
		l.current = m[1]
		return
	}
	if m := wroteReadLine.FindStringSubmatch(line); m != nil && l.current != "" {
		read, err := strconv.ParseInt(m[2], 10, 64)
		if err == nil {
			l.charges[l.current] += read
		}
	}
}

// Scan feeds every line of transcript through ScanLine.
func (l *Ledger) Scan(transcript string) {
	scanner := bufio.NewScanner(strings.NewReader(transcript))
	for scanner.Scan() {
		l.ScanLine(scanner.Text())
	}
}

// ClientLine formats the marker line the engine writes to the transcript
// before invoking sync for client, so later scanning can attribute bytes.
func ClientLine(client string) string {
	return "client " + client
}

// Charges returns the accumulated per-client totals.
func (l *Ledger) Charges() map[string]int64 {
	return l.charges
}

// AppendChargeFile appends one "host:YYYYMMDD:bytes" line per client with
// a nonzero total to path.
func AppendChargeFile(path string, charges map[string]int64, when time.Time) error {
	if len(charges) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return cerr.Wrapf(err, "opening charge file %s", path)
	}
	defer f.Close()

	date := when.Format("20060102")
	for client, bytes := range charges {
		if bytes == 0 {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s:%s:%d\n", client, date, bytes); err != nil {
			return cerr.Wrapf(err, "writing charge file %s", path)
		}
	}
	return nil
}
