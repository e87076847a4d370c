// Package flags manages command-line flags and environment variables for
// Mercury's configuration.
package flags

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Errors for flag and environment configuration.
var (
	// errInvalidLogFormat indicates an invalid log format was specified in configuration.
	errInvalidLogFormat = errors.New("invalid log format specified")
	// errInvalidLogLevel indicates an invalid log level was specified in configuration.
	errInvalidLogLevel = errors.New("invalid log level specified")
	// errSetFlagFailed indicates a failure to read a flag's value during configuration.
	errSetFlagFailed = errors.New("failed to get flag value")
)

// RegisterRunFlags adds the run command's flags to rootCmd's persistent flags.
//
// Parameters:
//   - rootCmd: The Cobra command to register the flags on (the run subcommand).
func RegisterRunFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP(
		"system",
		"s",
		envString("MERCURY_SYSTEM"),
		"Path to the system description document")

	flags.BoolP(
		"verbose",
		"v",
		envBool("MERCURY_VERBOSE"),
		"Enable verbose (debug-level) logging")

	flags.String(
		"metrics-addr",
		envString("MERCURY_METRICS_ADDR"),
		"Address to serve Prometheus metrics on (disabled if empty)")

	flags.String(
		"watchdog-cron",
		envString("MERCURY_WATCHDOG_CRON"),
		"Cron expression scheduling the liveness watchdog sweep (disabled if empty)")

	flags.String(
		"log-level",
		envString("MERCURY_LOG_LEVEL"),
		"Set minimum log level (panic, fatal, error, warn, info, debug, trace)")

	flags.String(
		"log-format",
		envString("MERCURY_LOG_FORMAT"),
		"Set log format (auto, json, logfmt, pretty)")

	flags.Bool(
		"no-color",
		envBool("MERCURY_NO_COLOR"),
		"Disable color output in the log")
}

// envString fetches a string from an environment variable.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envBool fetches a boolean from an environment variable.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// SetDefaults sets default environment variable values.
//
// It configures fallback values for unset flags.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("MERCURY_LOG_LEVEL", "info")
	viper.SetDefault("MERCURY_LOG_FORMAT", "auto")
	viper.SetDefault("MERCURY_METRICS_ADDR", "")
	viper.SetDefault("MERCURY_WATCHDOG_CRON", "")
}

// SetupLogging configures logrus from the run command's flags.
//
// Parameters:
//   - flags: Flag set holding log-format, log-level, no-color, and verbose.
//
// Returns:
//   - error: Non-nil if the log format or level is invalid.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		logrus.WithField("flag", "log-format").WithError(err).Debug("Failed to get log-format flag")

		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		logrus.WithField("flag", "no-color").WithError(err).Debug("Failed to get no-color flag")

		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	verbose, err := flags.GetBool("verbose")
	if err != nil {
		logrus.WithField("flag", "verbose").WithError(err).Debug("Failed to get verbose flag")

		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		logrus.WithField("flag", "log-level").WithError(err).Debug("Failed to get log-level flag")

		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if verbose {
		rawLogLevel = "debug"
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		logrus.WithError(err).WithField("level", rawLogLevel).Debug("Invalid log level specified")

		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)
	logrus.WithFields(logrus.Fields{
		"format": logFormat,
		"level":  logLevel,
	}).Debug("Configured logging settings")

	return nil
}

// configureLogFormat sets the logrus formatter.
//
// Parameters:
//   - logFormat: Desired format.
//   - noColor: Disable colors if true.
//
// Returns:
//   - error: Non-nil if format invalid, nil on success.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		logrus.WithField("format", logFormat).Debug("Invalid log format specified")

		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}

// RequireSystemFlag extracts and validates the --system flag.
//
// Returns:
//   - string: Path to the system description document.
//   - error: Non-nil if the flag is unset.
func RequireSystemFlag(flags *pflag.FlagSet) (string, error) {
	path, err := flags.GetString("system")
	if err != nil {
		return "", fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if path == "" {
		return "", errMissingSystemFlag
	}

	return path, nil
}

var errMissingSystemFlag = errors.New("--system is required")
