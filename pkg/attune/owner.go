package attune

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// disposable is the disposal surface shared by memos and effects.
type disposable interface {
	dispose()
}

// Owner is a disposal scope. Memos and effects created while an owner is
// current (via Runtime.WithOwner or CreateRoot) are registered with it and
// disposed when it is disposed, so a whole subtree of reactive state can
// be torn down with one call.
//
// Owners nest: a child owner created under a parent is disposed with the
// parent, children before the parent's own computations, most recently
// created first.
type Owner struct {
	rt *Runtime
	id uint64

	// parent is nil for roots.
	parent *Owner

	childrenMu sync.Mutex
	children   []*Owner

	compMu       sync.Mutex
	computations []disposable

	cleanupsMu sync.Mutex
	cleanups   []func()

	disposed atomic.Bool
}

// NewOwner creates an owner on rt under parent. A nil parent creates a
// root owner. Panics wrapping ErrDifferentRuntime if parent belongs to
// another runtime, and wrapping ErrDisposed if parent is already disposed.
func NewOwner(rt *Runtime, parent *Owner) *Owner {
	if parent != nil {
		parent.assertUsable(rt)
	}

	o := &Owner{
		rt:     rt,
		id:     rt.nextID(),
		parent: parent,
	}
	if parent != nil {
		parent.addChild(o)
	}
	return o
}

// assertUsable panics if the owner cannot accept registrations from rt.
func (o *Owner) assertUsable(rt *Runtime) {
	if o.rt != rt {
		panic(fmt.Errorf("%w: owner %d belongs to runtime %d, not runtime %d",
			ErrDifferentRuntime, o.id, o.rt.id, rt.id))
	}
	if o.disposed.Load() {
		panic(fmt.Errorf("%w: owner %d", ErrDisposed, o.id))
	}
}

// ID returns the owner's runtime-unique identifier.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent owner, or nil for a root.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsDisposed reports whether Dispose has run.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

func (o *Owner) addChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	o.children = append(o.children, child)
}

func (o *Owner) removeChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// register adds a computation to this owner's disposal list. A computation
// registered after disposal is disposed on the spot rather than leaked.
func (o *Owner) register(d disposable) {
	if o.disposed.Load() {
		d.dispose()
		return
	}
	o.compMu.Lock()
	defer o.compMu.Unlock()
	o.computations = append(o.computations, d)
}

// OnCleanup registers fn to run when the owner is disposed. On an already
// disposed owner fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}
	o.cleanupsMu.Lock()
	defer o.cleanupsMu.Unlock()
	o.cleanups = append(o.cleanups, fn)
}

// Dispose tears down the owner: child owners first, then owned memos and
// effects, then OnCleanup functions, each group most recently created
// first. Repeat calls are no-ops.
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}

	o.childrenMu.Lock()
	children := o.children
	o.children = nil
	o.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	o.compMu.Lock()
	computations := o.computations
	o.computations = nil
	o.compMu.Unlock()

	for i := len(computations) - 1; i >= 0; i-- {
		computations[i].dispose()
	}

	o.cleanupsMu.Lock()
	cleanups := o.cleanups
	o.cleanups = nil
	o.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// CreateRoot runs fn under a fresh root owner and returns fn's result.
// The dispose argument tears down everything created inside fn; callers
// typically stash it and call it when the scope's work is finished. The
// root is deliberately parentless even when another owner is current, so
// it outlives the surrounding scope until explicitly disposed.
//
//	stop := attune.CreateRoot(rt, func(dispose func()) func() {
//	    attune.CreateEffect(rt, watchConfig)
//	    return dispose
//	})
//	defer stop()
func CreateRoot[T any](rt *Runtime, fn func(dispose func()) T) T {
	root := NewOwner(rt, nil)

	var result T
	rt.WithOwner(root, func() {
		result = fn(root.Dispose)
	})
	return result
}
