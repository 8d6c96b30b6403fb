package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"capture", "pipeline", "validate", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestValidatePhaseFlagDefaultsToAll(t *testing.T) {
	flag := validateCmd.Flags().Lookup("phase")
	require.NotNil(t, flag)
	assert.Equal(t, "all", flag.DefValue)
}

func TestPreRunMarksLoggerReady(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	loggerReady = false
	t.Cleanup(func() { loggerReady = false })

	// Whether config building succeeds or fails, the pre-run must leave a
	// usable logger behind so Execute can report errors through it.
	_ = rootCmd.PersistentPreRunE(rootCmd, nil)
	assert.True(t, loggerReady)
}

func TestApplyRunFlagsOverridesConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	require.NoError(t, initializeViper())

	require.NoError(t, captureCmd.Flags().Set("url", "https://flags.example.com"))
	require.NoError(t, captureCmd.Flags().Set("email", "flag@example.com"))
	t.Cleanup(func() {
		captureCmd.Flags().Set("url", "")
		captureCmd.Flags().Set("email", "")
	})

	require.NoError(t, applyRunFlags(captureCmd))
	require.NotNil(t, cfg)
	assert.Equal(t, "https://flags.example.com", cfg.Platform.BaseURL)
	assert.Equal(t, "flag@example.com", cfg.Auth.Email)
}
