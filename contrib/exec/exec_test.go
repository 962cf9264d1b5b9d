package exec_test

import (
	"testing"

	"github.com/byte4ever/contribgen/contrib/exec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEx_success(t *testing.T) {
	t.Parallel()

	out, err := exec.Ex("", "echo", "hello")

	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestEx_with_dir(t *testing.T) {
	t.Parallel()

	out, err := exec.Ex("/tmp", "pwd")

	require.NoError(t, err)
	assert.Contains(t, out, "/tmp")
}

func TestEx_failure(t *testing.T) {
	t.Parallel()

	_, err := exec.Ex("", "false")

	assert.Error(t, err)
}

func TestExEnv_extra_env(t *testing.T) {
	t.Parallel()

	out, err := exec.ExEnv(
		"",
		[]string{"CONTRIBGEN_PROBE=set"},
		"sh", "-c", "echo $CONTRIBGEN_PROBE",
	)

	require.NoError(t, err)
	assert.Contains(t, out, "set")
}

func TestExEnv_nil_env_inherits(t *testing.T) {
	t.Setenv("CONTRIBGEN_INHERIT", "yes")

	out, err := exec.ExEnv(
		"", nil,
		"sh", "-c", "echo $CONTRIBGEN_INHERIT",
	)

	require.NoError(t, err)
	assert.Contains(t, out, "yes")
}
