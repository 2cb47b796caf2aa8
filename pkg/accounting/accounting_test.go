package accounting

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewildgoose/snapback2/pkg/execrun"
)

func TestLedger_ScanAttributesBytesToCurrentClient(t *testing.T) {
	l := NewLedger()
	l.Scan("client foo.example.com\n" +
		"sending incremental file list\n" +
		"wrote 1024 bytes read 512 bytes  204800.00 bytes/sec\n" +
		"client bar.example.com\n" +
		"wrote 2048 bytes read 256 bytes  102400.00 bytes/sec\n")

	assert.Equal(t, int64(512), l.Charges()["foo.example.com"])
	assert.Equal(t, int64(256), l.Charges()["bar.example.com"])
}

func TestLedger_WroteReadLineBeforeAnyClientIsIgnored(t *testing.T) {
	l := NewLedger()
	l.Scan("wrote 1024 bytes read 512 bytes\nclient foo.example.com\n")
	assert.Empty(t, l.Charges())
}

func TestLedger_MultipleSyncsForSameClientAccumulate(t *testing.T) {
	l := NewLedger()
	l.Scan("client foo.example.com\nwrote 10 bytes read 100 bytes\nwrote 10 bytes read 50 bytes\n")
	assert.Equal(t, int64(150), l.Charges()["foo.example.com"])
}

func TestClientLine(t *testing.T) {
	assert.Equal(t, "client foo.example.com", ClientLine("foo.example.com"))
}

func TestAppendChargeFile_SkipsZeroChargesAndFormatsDate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "charges")

	when := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	err := AppendChargeFile(path, map[string]int64{"foo.example.com": 1000, "empty.example.com": 0}, when)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "foo.example.com:20260806:1000\n", string(data))
}

func TestAppendChargeFile_NoChargesWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "charges")

	err := AppendChargeFile(path, map[string]int64{}, time.Now())
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAppendChargeFile_AppendsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "charges")
	when := time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC)

	require.NoError(t, AppendChargeFile(path, map[string]int64{"a": 1}, when))
	require.NoError(t, AppendChargeFile(path, map[string]int64{"a": 2}, when))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a:20260806:1\na:20260806:2\n", string(data))
}

func TestShouldEmail(t *testing.T) {
	cases := []struct {
		name         string
		cfg          MailConfig
		errorsLogged bool
		want         bool
	}{
		{"no admin address means never", MailConfig{AdminEmail: ""}, true, false},
		{"always email wins even without errors", MailConfig{AdminEmail: "a@b.com", AlwaysEmail: true}, false, true},
		{"errors logged trigger email", MailConfig{AdminEmail: "a@b.com"}, true, true},
		{"no errors and not always means skip", MailConfig{AdminEmail: "a@b.com"}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShouldEmail(tc.cfg, tc.errorsLogged))
		})
	}
}

type recordingRunner struct {
	gotOpts execrun.Options
	err     error
}

func (r *recordingRunner) Run(_ context.Context, opts execrun.Options) (*execrun.Result, error) {
	r.gotOpts = opts
	if r.err != nil {
		return nil, r.err
	}
	return &execrun.Result{ExitCode: 0}, nil
}

func TestSendRunLog_BuildsHeadersAndFeedsStdin(t *testing.T) {
	runner := &recordingRunner{}
	cfg := MailConfig{Program: "/usr/sbin/sendmail", AdminEmail: "admin@example.com"}

	err := SendRunLog(context.Background(), runner, cfg, "nightly report", "all jobs completed")
	require.NoError(t, err)

	assert.Equal(t, "/usr/sbin/sendmail", runner.gotOpts.Command)
	assert.Equal(t, []string{"-t"}, runner.gotOpts.Args)
	assert.Contains(t, runner.gotOpts.Stdin, "To: admin@example.com")
	assert.Contains(t, runner.gotOpts.Stdin, "Subject: nightly report")
	assert.Contains(t, runner.gotOpts.Stdin, "all jobs completed")
}

func TestSendRunLog_NoProgramConfiguredIsAnError(t *testing.T) {
	runner := &recordingRunner{}
	err := SendRunLog(context.Background(), runner, MailConfig{AdminEmail: "admin@example.com"}, "subj", "body")
	assert.Error(t, err)
}

func TestSendRunLog_WrapsRunnerFailure(t *testing.T) {
	runner := &recordingRunner{err: assert.AnError}
	cfg := MailConfig{Program: "/usr/sbin/sendmail", AdminEmail: "admin@example.com"}
	err := SendRunLog(context.Background(), runner, cfg, "subj", "body")
	assert.Error(t, err)
}
