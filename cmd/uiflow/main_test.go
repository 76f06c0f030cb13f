package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/uiflow/internal/config"
)

func TestExitError(t *testing.T) {
	base := errors.New("2 of 10 scenario(s) failed")
	err := error(&exitError{code: exitFailures, err: base})

	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, exitFailures, ee.code)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, base.Error(), err.Error())
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "wait-ready", "scenarios", "profiles", "history", "monitor", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestBindFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	loader = config.NewLoader("")

	require.NoError(t, runCmd.Flags().Set("strict", "true"))
	require.NoError(t, runCmd.Flags().Set("format", "json,xlsx"))
	require.NoError(t, bindFlags(runCmd))

	v := loader.Viper()
	assert.True(t, v.GetBool("run.strict"))
	assert.Equal(t, []string{"json", "xlsx"}, v.GetStringSlice("report.formats"))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0f8fad5b", shortID("0f8fad5b-d9cb-469f-a165-70867728950e"))
	assert.Equal(t, "abc", shortID("abc"))
}
