// Package destination chooses which backup volume a job writes to: either
// a single fixed path, or the least-recently-used member of a candidate
// list.
package destination

import (
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
)

// ErrMissingDestination is returned when neither a destination list nor a
// fixed destination resolves to a usable path.
var ErrMissingDestination = cerr.New("no destination configured")

// StatMTime returns the modification time of the hourly.0 slot under
// candidate/host/dir, or the zero time if it is missing or unstatable.
// Callers supply this so the selector has no direct filesystem dependency.
type StatMTime func(candidate, host, dir, hourlyDirName string) time.Time

// Policy is the resolved destination configuration for a job: either a
// fixed path, or a list to select from by least-recent use.
type Policy struct {
	Fixed string
	List  []string
}

// Select implements the algorithm in full: a non-empty DestinationList
// whose first element is not literally "none" is treated as LRU
// candidates; otherwise the fixed Destination is used.
func Select(policy Policy, host, dir, hourlyDirName string, stat StatMTime) (string, error) {
	candidates := usableList(policy.List)
	if len(candidates) > 0 {
		return selectLRU(candidates, host, dir, hourlyDirName, stat), nil
	}

	if policy.Fixed == "" {
		return "", ErrMissingDestination
	}
	return policy.Fixed, nil
}

func usableList(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	if strings.EqualFold(strings.TrimSpace(list[0]), "none") {
		return nil
	}
	return list
}

// selectLRU returns the candidate with the smallest hourly.0 mtime,
// treating missing slots as time zero so an empty destination always
// wins. Ties break by first-encountered order.
func selectLRU(candidates []string, host, dir, hourlyDirName string, stat StatMTime) string {
	best := candidates[0]
	bestTime := stat(best, host, dir, hourlyDirName)

	for _, c := range candidates[1:] {
		t := stat(c, host, dir, hourlyDirName)
		if t.Before(bestTime) {
			best = c
			bestTime = t
		}
	}
	return best
}
