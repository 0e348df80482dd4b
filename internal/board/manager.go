// Package board keeps the console's view of a thread's project board in sync
// with a push source.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"vibecoder.app/console/common/logger"
	"vibecoder.app/console/internal/model"
)

var ErrClosed = errors.New("board manager is closed")

// Source opens push subscriptions to board documents.
//
// Watch must deliver the current document (an absent one when the thread has
// no board) and then every later change, with non-decreasing revisions.
// fn is never called after the returned Closer's Close has returned.
type Source interface {
	Watch(ctx context.Context, thread model.ThreadID, fn func(model.BoardDocument)) (io.Closer, error)
}

type Option func(*Manager)

// WithListener registers fn to be called with the new view after every
// state change. Calls are serialized.
func WithListener(fn func(View)) Option {
	return func(m *Manager) {
		m.listener = fn
	}
}

type Manager struct {
	source   Source
	listener func(View)

	// attachMu serializes Attach, Detach and Close.
	attachMu sync.Mutex
	// notifyMu keeps listener calls ordered with the state they report.
	notifyMu sync.Mutex

	mu         sync.Mutex
	state      State
	thread     model.ThreadID
	generation uint64
	sub        io.Closer
	view       View
	closed     bool
}

func NewManager(source Source, opts ...Option) *Manager {
	m := &Manager{
		source: source,
		state:  StateIdle,
		view:   defaultView(StateIdle, model.ThreadID{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Attach subscribes to thread's board. A previous subscription is closed
// before the new one opens, and anything it still delivers is dropped.
// Attaching to the thread already attached is a no-op.
//
// On error the manager stays Loading for thread with the defaults shown.
func (m *Manager) Attach(ctx context.Context, thread model.ThreadID) error {
	if thread.IsZero() {
		return model.ErrEmptyThreadID
	}

	m.attachMu.Lock()
	defer m.attachMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state != StateIdle && m.thread == thread && m.sub != nil {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	gen, prev := m.transition(StateLoading, thread)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ThreadID:        logger.Ptr(thread.String()),
		BoardGeneration: logger.Ptr(gen),
		Component:       "console.board.manager",
	})

	sc := logger.StartSpan(ctx, "board.attach")
	defer sc.End()

	if prev != nil {
		if err := prev.Close(); err != nil {
			slog.WarnContext(ctx, "closing previous board subscription", "error", err)
		}
	}

	// Deliveries log under ctx, not the attach span.
	sub, err := m.source.Watch(ctx, thread, func(doc model.BoardDocument) {
		m.deliver(ctx, gen, doc)
	})
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(sc.Context(), "board subscription failed", "error", err)
		return fmt.Errorf("watching board for %s: %w", thread, err)
	}

	m.mu.Lock()
	m.sub = sub
	m.mu.Unlock()

	slog.InfoContext(sc.Context(), "board subscription opened")
	return nil
}

// Detach closes the subscription and returns to Idle.
func (m *Manager) Detach() error {
	m.attachMu.Lock()
	defer m.attachMu.Unlock()

	_, prev := m.transition(StateIdle, model.ThreadID{})
	if prev == nil {
		return nil
	}
	if err := prev.Close(); err != nil {
		return fmt.Errorf("closing board subscription: %w", err)
	}
	return nil
}

// Close detaches and refuses further Attach calls.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.Detach()
}

// transition moves to state for thread under a new generation and reports
// the new view. It returns the subscription the caller must close.
func (m *Manager) transition(state State, thread model.ThreadID) (uint64, io.Closer) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	m.generation++
	gen := m.generation
	prev := m.sub
	m.sub = nil
	m.state = state
	m.thread = thread
	m.view = defaultView(state, thread)
	view := m.copyView()
	m.mu.Unlock()

	m.notify(view)
	return gen, prev
}

// deliver applies doc if it belongs to the current generation and is not
// older than what is already shown.
func (m *Manager) deliver(ctx context.Context, gen uint64, doc model.BoardDocument) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		slog.DebugContext(ctx, "dropping board push from stale subscription",
			"current_generation", m.generation, "revision", doc.Revision)
		return
	}
	if m.state == StateAttached && doc.Revision < m.view.Revision {
		m.mu.Unlock()
		slog.DebugContext(ctx, "dropping out-of-order board push",
			"revision", doc.Revision, "shown_revision", m.view.Revision)
		return
	}
	m.state = StateAttached
	m.view = viewOf(m.thread, doc)
	view := m.copyView()
	m.mu.Unlock()

	slog.DebugContext(ctx, "board updated",
		"revision", doc.Revision, "exists", doc.Exists(), "phase", view.Phase)
	m.notify(view)
}

func (m *Manager) notify(v View) {
	if m.listener != nil {
		m.listener(v)
	}
}

// copyView must be called with mu held.
func (m *Manager) copyView() View {
	v := m.view
	v.Tasks = append([]string{}, m.view.Tasks...)
	return v
}

func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyView()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) ThreadID() model.ThreadID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.thread
}

// Generation identifies the current subscription. It increases on every
// Attach and Detach.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}
