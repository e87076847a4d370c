package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zippylabs/mercury/internal/notify"
)

func TestNotifyCatastrophicWithNoURLsIsANoOp(t *testing.T) {
	t.Parallel()

	n, err := notify.New(nil)
	require.NoError(t, err)

	require.NoError(t, n.NotifyCatastrophic(context.Background(), "telemetry", []string{"telemetry", "uplink"}))
}
