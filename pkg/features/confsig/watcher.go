package confsig

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a configuration source and emits its raw bytes on a
// channel. Implementations must emit the current value immediately when
// Watch is called, so bindings can load their initial configuration.
type Watcher interface {
	// Watch begins observing and returns a channel that emits raw bytes
	// on each change. The channel closes when the context is canceled or
	// the source becomes unrecoverable.
	Watch(ctx context.Context) (<-chan []byte, error)
}

// FileWatcher watches a file and emits its contents on writes.
type FileWatcher struct {
	path string
}

// NewFileWatcher creates a watcher for the given file path.
func NewFileWatcher(path string) *FileWatcher {
	return &FileWatcher{path: path}
}

// Watch emits the file's current contents immediately, then again after
// every write or create event.
func (w *FileWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("confsig: create watcher: %w", err)
	}
	if err := fsw.Add(w.path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("confsig: watch %s: %w", w.path, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer fsw.Close()

		if data, err := os.ReadFile(w.path); err == nil {
			select {
			case out <- data:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				data, err := os.ReadFile(w.path)
				if err != nil {
					// Transient read failures (editor rename dance)
					// resolve on the next event.
					continue
				}
				select {
				case out <- data:
				case <-ctx.Done():
					return
				}

			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}

// ChannelWatcher adapts an existing byte channel into a Watcher. Tests
// and custom sources that already produce bytes use it directly.
type ChannelWatcher struct {
	ch     <-chan []byte
	direct bool
}

// NewChannelWatcher forwards values from ch through an internal
// goroutine that honors the watch context.
func NewChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch}
}

// NewSyncChannelWatcher hands the source channel to the binding without
// an intermediate goroutine. Pair with WithSync for deterministic tests.
func NewSyncChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch, direct: true}
}

func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if w.direct {
		return w.ch, nil
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-w.ch:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
