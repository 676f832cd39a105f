package attune

import "sync"

// signalBase carries the dependency bookkeeping shared by signals and
// memos: the runtime handle, the primitive ID, and the set of listeners
// to mark dirty on change.
type signalBase struct {
	rt *Runtime
	id uint64

	subMu       sync.RWMutex
	subscribers []Listener
}

func (b *signalBase) runtime() *Runtime {
	return b.rt
}

// subscribe registers a listener for dirty marks. Duplicate registrations
// from the same computation (a signal read twice in one run) are dropped
// by ID.
func (b *signalBase) subscribe(l Listener) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	id := l.ID()
	for _, existing := range b.subscribers {
		if existing.ID() == id {
			return
		}
	}
	b.subscribers = append(b.subscribers, l)
}

// unsubscribe removes a listener by ID. Order of the remaining listeners
// is irrelevant, so the last entry is swapped into the hole.
func (b *signalBase) unsubscribe(id uint64) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	for i, l := range b.subscribers {
		if l.ID() == id {
			last := len(b.subscribers) - 1
			b.subscribers[i] = b.subscribers[last]
			b.subscribers[last] = nil
			b.subscribers = b.subscribers[:last]
			return
		}
	}
}

// notifySubscribers marks every current listener dirty. The slice is
// copied before calling out so listeners may unsubscribe re-entrantly.
func (b *signalBase) notifySubscribers() {
	b.subMu.RLock()
	listeners := make([]Listener, len(b.subscribers))
	copy(listeners, b.subscribers)
	b.subMu.RUnlock()

	for _, l := range listeners {
		l.MarkDirty()
	}
}

// track registers the runtime's current listener, if any, as depending on
// this signal. The edge is recorded on both sides so the listener can
// detach before its next run.
func (b *signalBase) track() {
	if l := b.rt.listener(); l != nil {
		b.subscribe(l)
		if t, ok := l.(sourceTracker); ok {
			t.addSource(b)
		}
	}
}

// observer is a Subscribe registration: the callback plus the ID used to
// cancel it.
type observer[T any] struct {
	id uint64
	fn func(T)
}

// Signal is a reactive value cell. Reads inside a tracked computation
// register a dependency; writes that change the value (per the signal's
// equality function) mark dependents dirty and schedule a flush.
//
// All methods are safe for concurrent use.
type Signal[T any] struct {
	signalBase

	mu     sync.RWMutex
	value  T
	equals func(a, b T) bool

	obsMu     sync.Mutex
	observers []observer[T]
	nextObsID uint64
}

// SignalOpt configures a Signal at creation.
type SignalOpt[T any] func(*Signal[T])

// WithEquals sets the equality function used to suppress no-op writes.
// The default compares common scalar kinds directly and falls back to
// reflect.DeepEqual; see EqualityOf, DeepEquality and NeverEqual for
// ready-made alternatives.
func WithEquals[T any](equals func(a, b T) bool) SignalOpt[T] {
	return func(s *Signal[T]) {
		s.equals = equals
	}
}

// NewSignal creates a signal on rt holding initial.
func NewSignal[T any](rt *Runtime, initial T, opts ...SignalOpt[T]) *Signal[T] {
	s := &Signal[T]{
		signalBase: signalBase{rt: rt, id: rt.nextID()},
		value:      initial,
		equals:     defaultEquals[T],
	}
	for _, opt := range opts {
		opt(s)
	}
	rt.signalsCreated.Add(1)
	return s
}

// Get returns the current value and registers a dependency when called
// inside a tracked computation.
func (s *Signal[T]) Get() T {
	s.track()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Peek returns the current value without registering a dependency.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores value. If the signal's equality function reports it equal to
// the current value the write is a no-op: no observers fire, nothing is
// marked dirty. Otherwise dependents are marked immediately and a flush
// runs unless one is already pending or a batch is open.
func (s *Signal[T]) Set(value T) {
	s.mu.Lock()
	if s.equals != nil && s.equals(s.value, value) {
		s.mu.Unlock()
		return
	}
	s.value = value
	s.mu.Unlock()

	s.rt.collector.RecordWrite()
	s.notifyObservers(value)
	s.notifySubscribers()
	s.rt.flushIfIdle()
}

// Update applies fn to the current value and stores the result, with the
// same equality suppression as Set. The read does not register a
// dependency.
func (s *Signal[T]) Update(fn func(current T) T) {
	s.mu.Lock()
	next := fn(s.value)
	if s.equals != nil && s.equals(s.value, next) {
		s.mu.Unlock()
		return
	}
	s.value = next
	s.mu.Unlock()

	s.rt.collector.RecordWrite()
	s.notifyObservers(next)
	s.notifySubscribers()
	s.rt.flushIfIdle()
}

// Subscribe registers fn to be called with the new value after every
// write that changes the signal, including writes inside a batch. Unlike
// effects, subscribers run synchronously at the write site and are not
// coalesced. The returned function cancels the subscription; it is safe
// to call more than once.
func (s *Signal[T]) Subscribe(fn func(value T)) (unsubscribe func()) {
	s.obsMu.Lock()
	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, observer[T]{id: id, fn: fn})
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// notifyObservers calls Subscribe callbacks in registration order. The
// slice is copied first so callbacks may subscribe or unsubscribe.
func (s *Signal[T]) notifyObservers(value T) {
	s.obsMu.Lock()
	if len(s.observers) == 0 {
		s.obsMu.Unlock()
		return
	}
	obs := make([]observer[T], len(s.observers))
	copy(obs, s.observers)
	s.obsMu.Unlock()

	for _, o := range obs {
		o.fn(value)
	}
}

// ID returns the signal's runtime-unique identifier.
func (s *Signal[T]) ID() uint64 {
	return s.id
}
