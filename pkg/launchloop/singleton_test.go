package launchloop

import "testing"

import "github.com/stretchr/testify/assert"

func TestLastComponent(t *testing.T) {
	assert.Equal(t, "snapback2-loop", lastComponent("/usr/local/bin/snapback2-loop"))
	assert.Equal(t, "snapback2-loop", lastComponent("snapback2-loop"))
	assert.Equal(t, "", lastComponent("/usr/local/bin/"))
}

func TestOtherInstances_NoMatchingProcessReturnsEmpty(t *testing.T) {
	others, err := OtherInstances("snapback2-loop-name-that-should-never-be-running", nil)
	assert.NoError(t, err)
	assert.Empty(t, others)
}
