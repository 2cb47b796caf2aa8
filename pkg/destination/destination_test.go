package destination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statFrom(times map[string]time.Time) StatMTime {
	return func(candidate, host, dir, hourlyDirName string) time.Time {
		return times[candidate]
	}
}

func TestSelect_FixedWhenNoList(t *testing.T) {
	got, err := Select(Policy{Fixed: "/backup/a"}, "host", "/data", "hourly", statFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, "/backup/a", got)
}

func TestSelect_NoneLiteralFallsBackToFixed(t *testing.T) {
	got, err := Select(Policy{Fixed: "/backup/a", List: []string{"none"}}, "host", "/data", "hourly", statFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, "/backup/a", got)
}

func TestSelect_MissingDestinationFails(t *testing.T) {
	_, err := Select(Policy{}, "host", "/data", "hourly", statFrom(nil))
	assert.ErrorIs(t, err, ErrMissingDestination)
}

func TestSelect_LRUSpread(t *testing.T) {
	policy := Policy{List: []string{"/backup/A", "/backup/B"}}

	// Run 1: both empty (zero time), A wins by order.
	got, err := Select(policy, "host", "/data", "hourly", statFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, "/backup/A", got)

	// Run 2: A now has a recent mtime, B is still empty -> B wins.
	now := time.Now()
	got, err = Select(policy, "host", "/data", "hourly", statFrom(map[string]time.Time{
		"/backup/A": now,
	}))
	require.NoError(t, err)
	assert.Equal(t, "/backup/B", got)

	// Run 3: both have mtimes, A is older -> A wins.
	got, err = Select(policy, "host", "/data", "hourly", statFrom(map[string]time.Time{
		"/backup/A": now.Add(-time.Hour),
		"/backup/B": now,
	}))
	require.NoError(t, err)
	assert.Equal(t, "/backup/A", got)
}

func TestSelect_NeverUsedBeatsUsed(t *testing.T) {
	policy := Policy{List: []string{"/backup/A", "/backup/B"}}
	got, err := Select(policy, "host", "/data", "hourly", statFrom(map[string]time.Time{
		"/backup/A": time.Now(),
	}))
	require.NoError(t, err)
	assert.Equal(t, "/backup/B", got)
}
