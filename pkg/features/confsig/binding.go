package confsig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zoobzio/clockz"
	"gopkg.in/yaml.v3"

	"github.com/attune-dev/attune/pkg/attune"
)

// DefaultDebounce is how long rapid changes are coalesced before one
// gets processed.
const DefaultDebounce = 100 * time.Millisecond

// validate is the shared validator instance for struct tags.
var validate = validator.New()

// Validator lets a configuration type add checks beyond struct tags.
// When the bound type implements it, Validate runs after tag validation
// and a non-nil error rejects the change. Implement it with a value
// receiver; bindings hold values, not pointers.
type Validator interface {
	Validate() error
}

// Format specifies the expected data format.
type Format int

const (
	// FormatAuto detects the format from content (default).
	FormatAuto Format = iota
	// FormatJSON requires JSON.
	FormatJSON
	// FormatYAML parses as YAML, which also accepts JSON.
	FormatYAML
)

// Binding feeds a watched configuration source into reactive signals.
// The bound value, health state, and last error are all signals, so
// memos and effects re-run when configuration changes land.
type Binding[T any] struct {
	rt    *attune.Runtime
	name  string
	value *attune.Signal[T]
	state *attune.Signal[State]
	err   *attune.Signal[error]

	debounce time.Duration
	syncMode bool
	clock    clockz.Clock
	format   Format
	cancel   context.CancelFunc

	// applied and changes are touched only by the processing goroutine.
	applied bool
	changes <-chan []byte
}

// config holds options for a Binding. Options stay non-generic so they
// read cleanly at Bind call sites.
type config struct {
	debounce time.Duration
	syncMode bool
	clock    clockz.Clock
	format   Format
	ctx      context.Context
	name     string
}

// Option configures a Binding.
type Option func(*config)

// WithDebounce sets how long changes are coalesced before processing.
func WithDebounce(d time.Duration) Option {
	return func(c *config) { c.debounce = d }
}

// WithSync processes only the initial value during Bind; subsequent
// values are pulled with Process. Deterministic, for tests.
func WithSync() Option {
	return func(c *config) { c.syncMode = true }
}

// WithClock substitutes the debounce clock. Tests pass a fake clock to
// step through coalescing windows.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) { c.clock = clock }
}

// WithJSON requires incoming data to be JSON.
func WithJSON() Option {
	return func(c *config) { c.format = FormatJSON }
}

// WithYAML parses incoming data as YAML.
func WithYAML() Option {
	return func(c *config) { c.format = FormatYAML }
}

// WithContext sets the parent context for watching. Canceling it stops
// the binding, as Close does.
func WithContext(ctx context.Context) Option {
	return func(c *config) { c.ctx = ctx }
}

// WithName labels the binding in events.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// Bind starts watching the source and blocks until the first value is
// processed. The returned binding is live even when the initial value
// was rejected (the error says why); it keeps watching for a valid one.
// Bind fails outright only when the watcher cannot start or the source
// closes before emitting.
//
// T is typically a struct: yaml/json tags drive unmarshaling and
// `validate` tags are enforced on every change.
func Bind[T any](rt *attune.Runtime, watcher Watcher, opts ...Option) (*Binding[T], error) {
	cfg := &config{
		debounce: DefaultDebounce,
		clock:    clockz.RealClock,
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var zero T
	b := &Binding[T]{
		rt:       rt,
		name:     cfg.name,
		value:    attune.NewSignal(rt, zero),
		state:    attune.NewSignal(rt, Loading),
		err:      attune.NewSignal[error](rt, nil),
		debounce: cfg.debounce,
		syncMode: cfg.syncMode,
		clock:    cfg.clock,
		format:   cfg.format,
	}

	ctx, cancel := context.WithCancel(cfg.ctx)
	b.cancel = cancel

	changes, err := watcher.Watch(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("confsig: start watcher: %w", err)
	}

	var initialErr error
	select {
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	case raw, ok := <-changes:
		if !ok {
			cancel()
			return nil, fmt.Errorf("confsig: watcher closed before emitting an initial value")
		}
		initialErr = b.process(ctx, raw)
	}

	if b.syncMode {
		b.changes = changes
		return b, initialErr
	}

	go b.watch(ctx, changes)
	return b, initialErr
}

// Signal returns the bound value's signal for memos and effects to read.
// The binding owns writes to it.
func (b *Binding[T]) Signal() *attune.Signal[T] {
	return b.value
}

// Current returns the configuration in effect and whether one exists.
// Tracked read.
func (b *Binding[T]) Current() (T, bool) {
	v := b.value.Get()
	if !b.state.Get().Valid() {
		var zero T
		return zero, false
	}
	return v, true
}

// State returns the binding's health. Tracked read.
func (b *Binding[T]) State() State {
	return b.state.Get()
}

// LastError returns the error of the most recent rejection, nil while
// Healthy. Tracked read.
func (b *Binding[T]) LastError() error {
	return b.err.Get()
}

// Close stops watching. The signals keep their last values.
func (b *Binding[T]) Close() {
	b.cancel()
}

// Process pulls and processes one pending value. Only available with
// WithSync; reports whether a value was consumed.
func (b *Binding[T]) Process(ctx context.Context) bool {
	if !b.syncMode {
		return false
	}
	select {
	case raw, ok := <-b.changes:
		if !ok {
			return false
		}
		_ = b.process(ctx, raw)
		return true
	default:
		return false
	}
}

// process unmarshals, validates, and commits one configuration change.
// Rejections keep the previous value and record why.
func (b *Binding[T]) process(ctx context.Context, raw []byte) error {
	var next T
	if err := unmarshal(raw, &next, b.format); err != nil {
		return b.reject(ctx, "unmarshal", err)
	}
	if err := validate.Struct(next); err != nil {
		return b.reject(ctx, "validation", err)
	}
	if v, ok := any(next).(Validator); ok {
		if err := v.Validate(); err != nil {
			return b.reject(ctx, "validation", err)
		}
	}

	b.applied = true
	old := b.state.Peek()
	b.rt.Batch(func() {
		b.value.Set(next)
		b.err.Set(nil)
		b.state.Set(Healthy)
	})
	b.emitApplied(ctx)
	if old != Healthy {
		b.emitStateChanged(ctx, old, Healthy)
	}
	return nil
}

func (b *Binding[T]) reject(ctx context.Context, reason string, err error) error {
	next := Degraded
	if !b.applied {
		next = Empty
	}
	old := b.state.Peek()
	b.rt.Batch(func() {
		b.err.Set(err)
		b.state.Set(next)
	})
	b.emitRejected(ctx, reason, err)
	if old != next {
		b.emitStateChanged(ctx, old, next)
	}
	return fmt.Errorf("confsig: %s failed: %w", reason, err)
}

// unmarshal parses data per format, detecting by leading byte when auto.
func unmarshal(data []byte, v any, format Format) error {
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("expected JSON: %w", err)
		}
		return nil
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	default:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			return json.Unmarshal(data, v)
		}
		return yaml.Unmarshal(data, v)
	}
}

// watch debounces changes from the watcher and processes the latest.
func (b *Binding[T]) watch(ctx context.Context, changes <-chan []byte) {
	var (
		timer      clockz.Timer
		pending    []byte
		hasPending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case raw, ok := <-changes:
			if !ok {
				if hasPending {
					_ = b.process(ctx, pending)
				}
				return
			}
			pending = raw
			hasPending = true

			if timer == nil {
				timer = b.clock.NewTimer(b.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(b.debounce)
			}

		case <-timerC:
			if hasPending {
				_ = b.process(ctx, pending)
				hasPending = false
			}
		}
	}
}
