// Package config loads a system description document from disk and decodes
// it as YAML. Building the runtime dependency graph from the result is left
// to the caller.
package config
