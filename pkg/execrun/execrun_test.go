package execrun

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_DryRunSkipsExecution(t *testing.T) {
	result, err := ExecRunner{}.Run(context.Background(), Options{
		Command: "/bin/false",
		DryRun:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRun_SuccessCapturesOutput(t *testing.T) {
	result, err := ExecRunner{}.Run(context.Background(), Options{
		Command: "/bin/echo",
		Args:    []string{"hello"},
	})
	require.NoError(t, err)
	assert.Contains(t, result.Output, "hello")
}

func TestRun_FailureIsWrapped(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), Options{
		Command: "/bin/false",
		Retries: 2,
	})
	assert.Error(t, err)
}

func TestBuildCommandString(t *testing.T) {
	assert.Equal(t, "rsync -avz a b", buildCommandString("rsync", []string{"-avz", "a", "b"}))
}
