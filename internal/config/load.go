package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zippylabs/mercury/pkg/types"
)

// ErrNoProcesses indicates a system description was read and parsed
// successfully but declares no processes at all.
var ErrNoProcesses = errors.New("system description declares no processes")

// Load reads and decodes the system description document at path.
//
// It does not build the dependency graph or resolve failure policies — that
// happens once the serial-number placeholder has been substituted, since
// substitution rewrites executable paths, arguments, and environment entries
// in place before the graph is built from them.
func Load(path string) (types.SystemDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.SystemDescription{}, fmt.Errorf("reading system description %s: %w", path, err)
	}

	var sys types.SystemDescription

	if err := yaml.Unmarshal(data, &sys); err != nil {
		return types.SystemDescription{}, fmt.Errorf("parsing system description %s: %w", path, err)
	}

	if len(sys.Processes) == 0 {
		return types.SystemDescription{}, fmt.Errorf("%s: %w", path, ErrNoProcesses)
	}

	return sys, nil
}
