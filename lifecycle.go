package courier

import "sync"

// Queue is the lifecycle coordinator's view of a live delivery queue.
type Queue interface {
	// Flush triggers an asynchronous drain of the queue.
	Flush() error

	// FlushSync drains the queue synchronously, blocking until it is
	// empty or blocked by a failure. Reserved for teardown paths.
	FlushSync() error

	// Pending returns the number of queued records.
	Pending() int
}

// Coordinator is the shared page-lifecycle collaborator that queues
// register with so they can be force-flushed synchronously before the
// host context is torn down.
//
// Modeling the coordinator as an injected interface instead of ambient
// global state keeps queue unit tests free of environment coupling.
type Coordinator interface {
	// RegisterQueue adds a queue to the coordinator's registry.
	RegisterQueue(q Queue)

	// RegisterFlushHook adds a callback run during Shutdown.
	RegisterFlushHook(hook func())
}

// LifecycleCoordinator is the default Coordinator implementation.
//
// The host calls Shutdown at the end of the page or process lifetime;
// each registered flush hook then runs synchronously, in registration
// order, so the underlying requests leave the network layer before
// teardown continues. Shutdown is idempotent.
type LifecycleCoordinator struct {
	mu       sync.Mutex
	queues   []Queue
	hooks    []func()
	shutdown bool
}

// Compile-time assertion that LifecycleCoordinator implements Coordinator.
var _ Coordinator = (*LifecycleCoordinator)(nil)

// NewLifecycleCoordinator creates an empty coordinator.
func NewLifecycleCoordinator() *LifecycleCoordinator {
	return &LifecycleCoordinator{}
}

// RegisterQueue adds a queue to the registry.
func (c *LifecycleCoordinator) RegisterQueue(q Queue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queues = append(c.queues, q)
}

// RegisterFlushHook adds a callback run during Shutdown.
func (c *LifecycleCoordinator) RegisterFlushHook(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hooks = append(c.hooks, hook)
}

// Queues returns the registered queues.
func (c *LifecycleCoordinator) Queues() []Queue {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Queue, len(c.queues))
	copy(out, c.queues)

	return out
}

// Shutdown runs all registered flush hooks synchronously, once.
func (c *LifecycleCoordinator) Shutdown() {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	c.shutdown = true
	hooks := make([]func(), len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}
