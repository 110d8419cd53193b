package session

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/workspace-mcp/internal/instrumentation"
	"github.com/teemow/workspace-mcp/internal/logging"
)

// DefaultReloadDebounce is how long the watcher waits after the last change
// to a credential file before reloading.
const DefaultReloadDebounce = 500 * time.Millisecond

// Reload re-reads the credential files after they changed on disk, for
// example because "auth login" or "auth logout" ran in another process.
// Nothing happens while a consent flow is running or when the files still
// describe the session already held.
func (m *Manager) Reload(ctx context.Context) bool {
	if m.flowActive.Load() {
		return m.IsReady()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready && m.identity != nil && m.session != nil {
		identity, _ := m.store.LoadApplicationIdentity()
		session, _ := m.store.LoadSessionState()
		if identity != nil && session != nil &&
			identity.ClientID == m.identity.ClientID &&
			session.AccessToken == m.session.AccessToken {
			return true
		}
	}

	ctx, span := instrumentation.StartSpan(ctx, "session.reload")
	defer span.End()

	m.logger.Info("Credential files changed, reloading session")
	ready := m.initializeLocked(ctx)
	span.SetAttributes(attribute.String(instrumentation.SpanAttrState, m.state.String()))
	return ready
}

// Watcher reloads a Manager whenever its identity or session file changes.
type Watcher struct {
	manager  *Manager
	fs       *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
	once  sync.Once
}

// Watch starts watching the credential directories of m until ctx is done
// or Close is called. debounce <= 0 selects DefaultReloadDebounce.
func Watch(ctx context.Context, m *Manager, debounce time.Duration) (*Watcher, error) {
	if m == nil {
		return nil, errors.New("session manager is required")
	}
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	m.store.EnsureDirectories()
	files := map[string]bool{
		filepath.Clean(m.store.IdentityPath()): true,
		filepath.Clean(m.store.SessionPath()):  true,
	}
	dirs := map[string]bool{}
	for f := range files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	w := &Watcher{
		manager:  m,
		fs:       fsw,
		files:    files,
		debounce: debounce,
		logger:   logging.WithOperation(m.logger, "session.watch"),
		done:     make(chan struct{}),
	}
	go w.run(ctx, fsw.Events, fsw.Errors)
	return w, nil
}

func (w *Watcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case <-w.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			w.logger.Warn("Credential watcher error", logging.Err(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if !w.files[filepath.Clean(ev.Name)] {
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug("Credential file changed", logging.Path(ev.Name), slog.String("op", ev.Op.String()))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.manager.Reload(context.WithoutCancel(ctx))
	})
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.fs.Close()
	})
	return err
}
