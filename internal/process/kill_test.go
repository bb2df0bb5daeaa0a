package process

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTerminateByNameNoMatches must be a no-op when nothing matches;
// in particular it must never kill the test process itself.
func TestTerminateByNameNoMatches(t *testing.T) {
	t.Parallel()

	err := TerminateByName(context.Background(), "no-such-process-name-xyz")
	require.NoError(t, err)
}
