package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_InnerOverridesScalar(t *testing.T) {
	global := NewScope("global", nil)
	global.Add("destination", "/backup")

	host := NewScope("host1", global)
	host.Add("destination", "/backup/host1")

	assert.Equal(t, "/backup/host1", host.String("destination", ""))
	assert.Equal(t, "/backup", global.String("destination", ""))
}

func TestScope_InheritsFromParentWhenUnset(t *testing.T) {
	global := NewScope("global", nil)
	global.Add("hourlies", "4")
	host := NewScope("host1", global)

	assert.Equal(t, uint(4), host.Uint("hourlies", 0))
}

func TestScope_AccumulatedAcrossScopes(t *testing.T) {
	global := NewScope("global", nil)
	global.Add("exclude", "*.tmp")
	host := NewScope("host1", global)
	host.Add("exclude", "*.log")

	assert.ElementsMatch(t, []string{"*.log", "*.tmp"}, host.LookupAccumulated("exclude"))
}

func TestScope_BoolGrammar(t *testing.T) {
	cases := map[string]bool{
		"yes": true, "Y": true, "ON": true, "true": true, "1": true,
		"no": false, "off": false, "0": false, "garbage": false,
	}
	for raw, want := range cases {
		s := NewScope("global", nil)
		s.Add("autotime", raw)
		assert.Equal(t, want, s.Bool("autotime", false), "input %q", raw)
	}
}

func TestScope_CaseInsensitiveKeys(t *testing.T) {
	s := NewScope("global", nil)
	s.Add("Destination", "/backup")
	assert.Equal(t, "/backup", s.String("DESTINATION", ""))
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"5m":      5 * time.Minute,
		"5 min":   5 * time.Minute,
		"30s":     30 * time.Second,
		"2h":      2 * time.Hour,
		"1d":      24 * time.Hour,
		"1 week":  7 * 24 * time.Hour,
	}
	for raw, want := range cases {
		got, err := ParseDuration(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseDuration_UnknownUnitFails(t *testing.T) {
	_, err := ParseDuration("5 fortnights")
	assert.Error(t, err)
}

func TestParseDuration_MissingUnitFails(t *testing.T) {
	_, err := ParseDuration("5")
	assert.Error(t, err)
}
