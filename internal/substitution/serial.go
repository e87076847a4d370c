// Package substitution replaces the literal serial-number placeholder token
// in a system description with the host's actual serial number, read once at
// startup from the filesystem.
package substitution

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/zippylabs/mercury/pkg/types"
)

// Token is the placeholder literal that gets replaced by the host's serial
// number wherever it appears in an executable path, argument, or environment
// key/value.
const Token = "ZIPPY-SERIAL-NUMBER"

// SerialPath is the fixed location the host's serial number is read from.
const SerialPath = "/zippy-persistent/ZIPPY-SERIAL-NUMBER"

// serialPattern matches the dashed-hex serial identifier format; it is
// module-level so the regex is compiled exactly once, mirroring the original
// implementation's note that this should behave like a memoized constant.
var serialPattern = regexp.MustCompile(
	`^[0-9A-F]{8}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{12}$`,
)

// tokenPattern is the compiled placeholder matcher, reused across every call
// to Substitute so repeated startup substitutions don't each pay recompile cost.
var tokenPattern = regexp.MustCompile(regexp.QuoteMeta(Token))

// Substitute performs a literal, non-overlapping, left-to-right replacement
// of Token with serial in s. It is idempotent on any input that does not
// contain Token.
func Substitute(s, serial string) string {
	return tokenPattern.ReplaceAllString(s, serial)
}

// InSystemDescription substitutes Token for serial in every process's
// executable path, arguments, and environment keys/values. Key rewrites
// preserve their original value pairing.
func InSystemDescription(sys types.SystemDescription, serial string) types.SystemDescription {
	out := types.SystemDescription{Processes: make([]types.ManagedProcess, len(sys.Processes))}

	for i, p := range sys.Processes {
		substituted := p
		substituted.ExecutablePath = Substitute(p.ExecutablePath, serial)

		substituted.Arguments = make([]string, len(p.Arguments))
		for j, arg := range p.Arguments {
			substituted.Arguments[j] = Substitute(arg, serial)
		}

		if p.Environment != nil {
			substituted.Environment = make(map[string]string, len(p.Environment))
			for k, v := range p.Environment {
				substituted.Environment[Substitute(k, serial)] = Substitute(v, serial)
			}
		}

		out.Processes[i] = substituted
	}

	return out
}

// ReadHostSerial reads and validates the host serial number from SerialPath.
func ReadHostSerial() (string, error) {
	data, err := os.ReadFile(SerialPath)
	if err != nil {
		return "", fmt.Errorf("reading host serial number from %s: %w", SerialPath, err)
	}

	serial := strings.ToUpper(strings.TrimSpace(string(data)))
	if !serialPattern.MatchString(serial) {
		return "", fmt.Errorf("host serial number %q at %s does not match the expected dashed-hex format", serial, SerialPath)
	}

	return serial, nil
}
