// Package console composes the turn pipeline and the board manager into one
// session bound to a single thread.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"vibecoder.app/console/common/logger"
	"vibecoder.app/console/internal/board"
	"vibecoder.app/console/internal/conversation"
	"vibecoder.app/console/internal/model"
)

var ErrNotStarted = errors.New("session has not been started")

// ThreadSource hands out the session's thread id.
type ThreadSource interface {
	ThreadID() model.ThreadID
}

// Observer is told about every change a front end needs to redraw. Methods
// may be called from different goroutines; each stream is ordered on its own.
type Observer interface {
	MessageAppended(msg model.Message)
	BoardChanged(view board.View)
}

type Option func(*Session)

func WithObserver(o Observer) Option {
	return func(s *Session) {
		s.observer = o
	}
}

// WithPipelineOptions forwards options to the turn pipeline built by Start.
func WithPipelineOptions(opts ...conversation.Option) Option {
	return func(s *Session) {
		s.pipelineOpts = append(s.pipelineOpts, opts...)
	}
}

// Snapshot is a consistent-per-component copy of the session.
type Snapshot struct {
	ThreadID     model.ThreadID
	Conversation model.ConversationState
	Board        board.View
}

type Session struct {
	threads      ThreadSource
	agent        conversation.AgentClient
	observer     Observer
	pipelineOpts []conversation.Option

	boards *board.Manager

	mu       sync.RWMutex
	thread   model.ThreadID
	pipeline *conversation.Pipeline
}

func New(threads ThreadSource, agent conversation.AgentClient, source board.Source, opts ...Option) *Session {
	s := &Session{
		threads: threads,
		agent:   agent,
	}
	for _, opt := range opts {
		opt(s)
	}

	var boardOpts []board.Option
	if s.observer != nil {
		boardOpts = append(boardOpts, board.WithListener(s.observer.BoardChanged))
	}
	s.boards = board.NewManager(source, boardOpts...)
	return s
}

// Start resolves the thread id, builds the pipeline and attaches the board.
// Submissions are refused until Start has returned. A board that cannot be
// attached is reported but does not stop the conversation from working;
// calling Start again retries the attach.
func (s *Session) Start(ctx context.Context) error {
	thread, created, err := s.ensurePipeline()
	if err != nil {
		return err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ThreadID:  logger.Ptr(thread.String()),
		Component: "console.session",
	})
	if created {
		slog.InfoContext(ctx, "session started")
	}

	// Attach is a no-op once a subscription for thread is open.
	if err := s.boards.Attach(ctx, thread); err != nil {
		return fmt.Errorf("attaching board: %w", err)
	}
	return nil
}

func (s *Session) ensurePipeline() (model.ThreadID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline != nil {
		return s.thread, false, nil
	}

	thread := s.threads.ThreadID()
	if thread.IsZero() {
		return model.ThreadID{}, false, model.ErrEmptyThreadID
	}

	opts := append([]conversation.Option(nil), s.pipelineOpts...)
	if s.observer != nil {
		opts = append(opts, conversation.WithListener(s.observer.MessageAppended))
	}
	s.thread = thread
	s.pipeline = conversation.NewPipeline(thread, s.agent, opts...)
	return thread, true, nil
}

func (s *Session) current() *conversation.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline
}

// Submit starts a turn. See conversation.Pipeline.Submit for the rejected
// cases.
func (s *Session) Submit(ctx context.Context, text string) (*conversation.Turn, error) {
	p := s.current()
	if p == nil {
		return nil, ErrNotStarted
	}
	return p.Submit(ctx, text)
}

func (s *Session) ThreadID() model.ThreadID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thread
}

func (s *Session) Board() board.View {
	return s.boards.View()
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ThreadID: s.ThreadID(),
		Board:    s.boards.View(),
	}
	if p := s.current(); p != nil {
		snap.Conversation = p.State()
	}
	return snap
}

// Close detaches the board and waits, bounded by ctx, for an outstanding turn.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if err := s.boards.Close(); err != nil {
		errs = append(errs, err)
	}
	if p := s.current(); p != nil {
		if err := p.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("waiting for outstanding turn: %w", err))
		}
	}
	return errors.Join(errs...)
}
