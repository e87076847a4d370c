package recovery

import "github.com/zippylabs/mercury/pkg/graph"

// RecoveryContext carries everything a state's Action needs beyond the
// engine itself: the node that triggered the current recovery attempt (nil
// outside of a recovery), and its last known exit code for logging.
type RecoveryContext struct {
	FailedNode *graph.Node
	ExitCode   int
}
