// Package types defines the data model Mercury's core operates on: managed
// processes, their failure policies, and the system description an external
// collaborator (a config loader) assembles from a declarative source.
package types
