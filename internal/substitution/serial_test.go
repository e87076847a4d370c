package substitution_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zippylabs/mercury/internal/substitution"
	"github.com/zippylabs/mercury/pkg/types"
)

func TestSubstituteIdempotentWithoutToken(t *testing.T) {
	t.Parallel()

	in := "/opt/zippy/bin/telemetry"
	assert.Equal(t, in, substitution.Substitute(in, "AB12CD34-0000-0000-0000-000000000000"))
}

func TestSubstituteLiteralNonOverlapping(t *testing.T) {
	t.Parallel()

	in := "/opt/ZIPPY-SERIAL-NUMBER/bin/ZIPPY-SERIAL-NUMBER"
	got := substitution.Substitute(in, "AB12CD34-0000-0000-0000-000000000000")
	assert.Equal(t, "/opt/AB12CD34-0000-0000-0000-000000000000/bin/AB12CD34-0000-0000-0000-000000000000", got)
}

func TestInSystemDescriptionPreservesKeyValuePairing(t *testing.T) {
	t.Parallel()

	sys := types.SystemDescription{
		Processes: []types.ManagedProcess{
			{
				ProcessName:     "telemetry",
				ExecutablePath:  "/opt/ZIPPY-SERIAL-NUMBER/bin/telemetry",
				Arguments:       []string{"--id", "ZIPPY-SERIAL-NUMBER"},
				Environment:     map[string]string{"ZIPPY-SERIAL-NUMBER_HOME": "/data/ZIPPY-SERIAL-NUMBER"},
			},
		},
	}

	serial := "AB12CD34-0000-0000-0000-000000000000"
	out := substitution.InSystemDescription(sys, serial)

	p := out.Processes[0]
	assert.Equal(t, "/opt/AB12CD34-0000-0000-0000-000000000000/bin/telemetry", p.ExecutablePath)
	assert.Equal(t, []string{"--id", serial}, p.Arguments)
	assert.Equal(t, "/data/AB12CD34-0000-0000-0000-000000000000", p.Environment["AB12CD34-0000-0000-0000-000000000000_HOME"])
}
