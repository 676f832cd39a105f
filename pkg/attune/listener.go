package attune

// Listener is anything that can be notified when a dependency changes.
// Memos and effects implement it; external integrations may too.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies changed.
	// For memos, this invalidates the cached value and propagates.
	// For effects, this schedules the effect onto the runtime's flush queue.
	// Marking is idempotent: a listener already dirty is not re-marked.
	MarkDirty()

	// ID returns a unique identifier for this listener within its runtime.
	// Used for subscriber deduplication and stable flush ordering.
	ID() uint64
}

// Cleanup is a function returned by effect bodies to release resources.
// It runs before the effect re-executes and when the effect is disposed.
type Cleanup func()

// sourceTracker is implemented by computations that record which signals
// they read, so edges can be dropped and rebuilt on the next run.
type sourceTracker interface {
	Listener
	addSource(source *signalBase)
}

// computation is the shared surface of memos and effects: listeners that
// carry a cleanup stack and can be disposed by their owner.
type computation interface {
	sourceTracker
	addCleanup(fn func())
	dispose()
}
