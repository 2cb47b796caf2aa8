package launchloop

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// OtherInstances reports the PIDs of other running processes named
// binaryName, excluding the current process. It uses pgrep -x for an exact
// match on the binary name, then verifies each PID by resolving
// /proc/<pid>/exe, since pgrep alone can false-positive on substrings.
func OtherInstances(binaryName string, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	currentPID := os.Getpid()

	out, err := exec.Command("pgrep", "-x", binaryName).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, cerr.Wrap(err, "checking for running instances")
	}

	var others []string
	for _, pidStr := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		pidStr = strings.TrimSpace(pidStr)
		if pidStr == "" {
			continue
		}

		target, err := os.Readlink(fmt.Sprintf("/proc/%s/exe", pidStr))
		if err != nil {
			logger.Debug("cannot resolve exe link, process may have exited", zap.String("pid", pidStr))
			continue
		}
		if base := lastComponent(target); base != binaryName {
			continue
		}
		if pidStr != strconv.Itoa(currentPID) {
			others = append(others, pidStr)
		}
	}
	return others, nil
}

func lastComponent(path string) string {
	if i := strings.LastIndex(path, "/"); i != -1 {
		return path[i+1:]
	}
	return path
}
