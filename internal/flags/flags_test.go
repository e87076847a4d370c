package flags

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCommand creates a new cobra.Command with the run flags registered.
func newTestCommand() *cobra.Command {
	cmd := new(cobra.Command)

	SetDefaults()
	RegisterRunFlags(cmd)

	return cmd
}

func TestRegisterRunFlagsDefaults(t *testing.T) {
	viper.Reset()

	cmd := newTestCommand()
	flags := cmd.PersistentFlags()

	system, err := flags.GetString("system")
	require.NoError(t, err)
	assert.Empty(t, system)

	verbose, err := flags.GetBool("verbose")
	require.NoError(t, err)
	assert.False(t, verbose)

	logLevel, err := flags.GetString("log-level")
	require.NoError(t, err)
	assert.Equal(t, "info", logLevel)

	logFormat, err := flags.GetString("log-format")
	require.NoError(t, err)
	assert.Equal(t, "auto", logFormat)
}

func TestRegisterRunFlagsFromEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("MERCURY_SYSTEM", "/etc/mercury/system.yaml")
	t.Setenv("MERCURY_METRICS_ADDR", ":9090")
	t.Setenv("MERCURY_WATCHDOG_CRON", "@every 30s")

	cmd := newTestCommand()
	flags := cmd.PersistentFlags()

	system, err := flags.GetString("system")
	require.NoError(t, err)
	assert.Equal(t, "/etc/mercury/system.yaml", system)

	metricsAddr, err := flags.GetString("metrics-addr")
	require.NoError(t, err)
	assert.Equal(t, ":9090", metricsAddr)

	watchdogCron, err := flags.GetString("watchdog-cron")
	require.NoError(t, err)
	assert.Equal(t, "@every 30s", watchdogCron)
}

func TestRequireSystemFlag(t *testing.T) {
	viper.Reset()

	cmd := newTestCommand()
	flags := cmd.PersistentFlags()

	_, err := RequireSystemFlag(flags)
	require.ErrorIs(t, err, errMissingSystemFlag)

	require.NoError(t, flags.Set("system", "/etc/mercury/system.yaml"))

	path, err := RequireSystemFlag(flags)
	require.NoError(t, err)
	assert.Equal(t, "/etc/mercury/system.yaml", path)
}

func TestSetupLoggingRejectsInvalidLevel(t *testing.T) {
	viper.Reset()

	cmd := newTestCommand()
	flags := cmd.PersistentFlags()
	require.NoError(t, flags.Set("log-level", "not-a-level"))

	err := SetupLogging(flags)
	require.ErrorIs(t, err, errInvalidLogLevel)
}

func TestSetupLoggingRejectsInvalidFormat(t *testing.T) {
	viper.Reset()

	cmd := newTestCommand()
	flags := cmd.PersistentFlags()
	require.NoError(t, flags.Set("log-format", "not-a-format"))

	err := SetupLogging(flags)
	require.ErrorIs(t, err, errInvalidLogFormat)
}

func TestSetupLoggingVerboseOverridesLevel(t *testing.T) {
	viper.Reset()

	cmd := newTestCommand()
	flags := cmd.PersistentFlags()
	require.NoError(t, flags.Set("log-level", "warn"))
	require.NoError(t, flags.Set("verbose", "true"))

	require.NoError(t, SetupLogging(flags))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}
