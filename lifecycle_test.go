package courier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubQueue struct {
	pending int
}

func (q *stubQueue) Flush() error     { return nil }
func (q *stubQueue) FlushSync() error { q.pending = 0; return nil }
func (q *stubQueue) Pending() int     { return q.pending }

func TestLifecycleCoordinatorRegistration(t *testing.T) {
	lc := NewLifecycleCoordinator()
	q := &stubQueue{pending: 3}

	lc.RegisterQueue(q)
	require.Len(t, lc.Queues(), 1)
}

func TestLifecycleCoordinatorShutdownOrder(t *testing.T) {
	lc := NewLifecycleCoordinator()

	var order []string
	lc.RegisterFlushHook(func() { order = append(order, "first") })
	lc.RegisterFlushHook(func() { order = append(order, "second") })

	lc.Shutdown()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestLifecycleCoordinatorShutdownIdempotent(t *testing.T) {
	lc := NewLifecycleCoordinator()

	var calls int
	lc.RegisterFlushHook(func() { calls++ })

	lc.Shutdown()
	lc.Shutdown()
	require.Equal(t, 1, calls)
}
