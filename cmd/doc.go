// Package cmd contains the command-line interface (CLI) definitions and
// execution logic for Mercury.
//
// Key components:
//   - rootCmd: The mercuryd root command.
//   - runCmd: The run subcommand, supervising a system description.
//
// Usage example:
//
//	cmd.Execute() // Runs the CLI from main.go
//	// mercuryd run --system /etc/mercury/system.yaml
//
// The package integrates with internal/config, internal/substitution,
// internal/watchdog, internal/notify, and internal/logging, using Cobra for
// CLI parsing and logrus for logging.
package cmd
