// Package flags manages command-line flags and environment variables for
// Mercury's configuration, following the same cobra/pflag/viper conventions
// used across the rest of this codebase.
//
// Key components:
//   - RegisterRunFlags: Adds the run command's flags.
//   - SetDefaults: Establishes default environment variable values.
//   - SetupLogging: Configures logrus based on flags.
package flags
