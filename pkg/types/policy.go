package types

import (
	"errors"
	"fmt"
)

// ErrUnknownPolicy indicates a process declared more than one failure policy.
// ResolvePolicy sees only the three known policy shapes, so it does not
// detect a policy tag it does not recognize.
var ErrUnknownPolicy = errors.New("unknown or ambiguous failure policy")

// MissingPolicyWarning is returned (never as a fatal error) when a process
// declares no failure policy at all. The caller should log it and continue —
// the default policy row from the spec's policy table is already applied.
type MissingPolicyWarning struct {
	ProcessName string
}

func (w MissingPolicyWarning) Error() string {
	return fmt.Sprintf(
		"process %q did not specify any failure policy; defaulting to catastrophic failure policy",
		w.ProcessName,
	)
}

// FailPolicyConfig treats any exit as a fleet-wide catastrophic failure.
type FailPolicyConfig struct {
	FirstLivenessCheckSeconds      int `yaml:"first_liveness_check_seconds"`
	LivenessCheckPeriodMilliseconds int `yaml:"liveness_check_period_milliseconds"`
}

// RelaunchPolicyConfig attempts to recover by stopping and relaunching a subgraph.
type RelaunchPolicyConfig struct {
	FirstLivenessCheckSeconds      int  `yaml:"first_liveness_check_seconds"`
	LivenessCheckPeriodMilliseconds int  `yaml:"liveness_check_period_milliseconds"`
	PropagateToDescendants          bool `yaml:"propagate_to_descendants"`
}

// IgnorePolicyConfig treats exits as a non-event: no restart, no escalation.
type IgnorePolicyConfig struct{}

// FailurePolicy is the normalized, resolved policy a ProcessNode carries at
// runtime — the tagged variant called for by the spec's design notes,
// collapsed to the fields the Recovery Engine actually dispatches on.
type FailurePolicy struct {
	FailureIsCatastrophic   bool
	IgnoreFailures          bool
	PropagateToDescendants  bool
	InitialWatchdogSeconds  float64
	WatchdogPeriodSeconds   float64
}

// defaultPolicy is the row applied when a process specifies no policy at all.
func defaultPolicy() FailurePolicy {
	return FailurePolicy{
		FailureIsCatastrophic:  true,
		IgnoreFailures:         false,
		PropagateToDescendants: false,
		InitialWatchdogSeconds: 1,
		WatchdogPeriodSeconds:  0.01,
	}
}

// ResolvePolicy normalizes one of the three declarative policy shapes (or
// none) into a FailurePolicy, per the table in the spec's data model section.
//
// Exactly one of failPolicy/relaunchPolicy/ignorePolicy may be non-nil. If
// more than one is set, ErrUnknownPolicy is returned. If none is set, the
// default row is returned along with a MissingPolicyWarning — a warning, not
// a fatal error, per the spec's error taxonomy.
func ResolvePolicy(
	processName string,
	failPolicy *FailPolicyConfig,
	relaunchPolicy *RelaunchPolicyConfig,
	ignorePolicy *IgnorePolicyConfig,
) (FailurePolicy, error) {
	set := 0
	for _, p := range []bool{failPolicy != nil, relaunchPolicy != nil, ignorePolicy != nil} {
		if p {
			set++
		}
	}

	switch {
	case set > 1:
		return FailurePolicy{}, fmt.Errorf("%w: process %q declares more than one policy", ErrUnknownPolicy, processName)
	case set == 0:
		return defaultPolicy(), MissingPolicyWarning{ProcessName: processName}
	case failPolicy != nil:
		return FailurePolicy{
			FailureIsCatastrophic:  true,
			InitialWatchdogSeconds: float64(failPolicy.FirstLivenessCheckSeconds),
			WatchdogPeriodSeconds:  float64(failPolicy.LivenessCheckPeriodMilliseconds) / 1000.0,
		}, nil
	case relaunchPolicy != nil:
		return FailurePolicy{
			FailureIsCatastrophic:  false,
			PropagateToDescendants: relaunchPolicy.PropagateToDescendants,
			InitialWatchdogSeconds: float64(relaunchPolicy.FirstLivenessCheckSeconds),
			WatchdogPeriodSeconds:  float64(relaunchPolicy.LivenessCheckPeriodMilliseconds) / 1000.0,
		}, nil
	default: // ignorePolicy != nil
		return FailurePolicy{
			FailureIsCatastrophic: false,
			IgnoreFailures:        true,
		}, nil
	}
}
