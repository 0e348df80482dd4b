// Package conversation owns the message log of a console session and drives
// one remote agent call per user turn.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"vibecoder.app/console/common/logger"
	"vibecoder.app/console/internal/agent"
	"vibecoder.app/console/internal/model"
)

// ErrorReply is the assistant message shown when a turn could not be answered.
const ErrorReply = "Error: Failed to connect to the Agency."

var (
	// ErrEmptyInput and ErrTurnInFlight mean the submission was ignored.
	// Neither changes any state; callers may drop them silently.
	ErrEmptyInput   = errors.New("submission is empty")
	ErrTurnInFlight = errors.New("a turn is already in flight")
)

// AgentClient is the remote call a turn is answered by.
type AgentClient interface {
	Invoke(ctx context.Context, thread model.ThreadID, text string) (string, error)
}

type Option func(*Pipeline)

// WithTimeout bounds every remote call. Zero means no bound beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// WithListener registers fn to be called with every appended message, in
// append order. fn runs outside the pipeline lock and may read the pipeline.
func WithListener(fn func(model.Message)) Option {
	return func(p *Pipeline) {
		p.listener = fn
	}
}

type Pipeline struct {
	thread   model.ThreadID
	agent    AgentClient
	timeout  time.Duration
	listener func(model.Message)

	mu       sync.RWMutex
	messages []model.Message
	input    string
	inFlight bool
	current  *Turn

	// notifyMu keeps listener calls in append order.
	notifyMu sync.Mutex
}

func NewPipeline(thread model.ThreadID, client AgentClient, opts ...Option) *Pipeline {
	if thread.IsZero() {
		panic("conversation: pipeline requires a thread id")
	}
	p := &Pipeline{
		thread: thread,
		agent:  client,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) ThreadID() model.ThreadID {
	return p.thread
}

// SetInput replaces the pending input buffer.
func (p *Pipeline) SetInput(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.input = text
}

func (p *Pipeline) Input() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.input
}

// SubmitInput submits the pending input buffer.
func (p *Pipeline) SubmitInput(ctx context.Context) (*Turn, error) {
	return p.Submit(ctx, p.Input())
}

// Submit appends text as a user message, clears the pending input and starts
// the remote call in the background. The returned Turn resolves once the
// reply, or the error placeholder, has been appended.
//
// Whitespace-only text returns ErrEmptyInput and a submission while another
// turn is outstanding returns ErrTurnInFlight; in both cases nothing changes.
func (p *Pipeline) Submit(ctx context.Context, text string) (*Turn, error) {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return nil, ErrEmptyInput
	}

	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	userMsg := model.UserMessage(prompt)
	p.messages = append(p.messages, userMsg)
	p.input = ""
	p.inFlight = true
	turn := newTurn(uuid.NewString(), prompt)
	p.current = turn
	p.mu.Unlock()

	p.notify(userMsg)

	go p.run(ctx, turn)

	return turn, nil
}

// run performs the remote call for turn. The deferred cleanup appends the
// assistant message and clears the in-flight flag on every path, panics
// included.
func (p *Pipeline) run(ctx context.Context, turn *Turn) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ThreadID:  logger.Ptr(p.thread.String()),
		TurnID:    logger.Ptr(turn.ID()),
		Component: "console.conversation.pipeline",
	})
	sc := logger.StartSpan(ctx, "conversation.turn", trace.WithSpanKind(trace.SpanKindClient))
	ctx = sc.Context()

	var (
		reply string
		err   error
	)

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in agent call", "panic", r)
			err = fmt.Errorf("%w: panic: %v", agent.ErrTransport, r)
		}

		msg := model.AssistantMessage(reply)
		if err != nil {
			msg = model.AssistantMessage(ErrorReply)
			sc.RecordError(err)
			slog.WarnContext(ctx, "turn failed",
				"error", err,
				"error_kind", agent.Kind(err),
				"retryable", agent.IsRetryable(err))
		} else {
			slog.InfoContext(ctx, "turn completed", "reply", logger.Truncate(reply, 120))
		}

		p.complete(turn, msg, err)
		sc.End()
	}()

	slog.InfoContext(ctx, "turn submitted", "prompt", logger.Truncate(turn.Prompt(), 120))

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	reply, err = p.agent.Invoke(callCtx, p.thread, turn.Prompt())
}

func (p *Pipeline) complete(turn *Turn, msg model.Message, err error) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	p.messages = append(p.messages, msg)
	p.inFlight = false
	p.current = nil
	p.mu.Unlock()

	p.notify(msg)
	turn.resolve(msg, err)
}

func (p *Pipeline) notify(msg model.Message) {
	if p.listener != nil {
		p.listener(msg)
	}
}

// Messages returns a copy of the log.
func (p *Pipeline) Messages() []model.Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]model.Message(nil), p.messages...)
}

func (p *Pipeline) InFlight() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.inFlight
}

func (p *Pipeline) State() model.ConversationState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return model.ConversationState{
		ThreadID: p.thread,
		Messages: append([]model.Message(nil), p.messages...),
		InFlight: p.inFlight,
	}
}

// Wait blocks until the outstanding turn, if any, has resolved or ctx ends.
func (p *Pipeline) Wait(ctx context.Context) error {
	p.mu.RLock()
	turn := p.current
	p.mu.RUnlock()
	if turn == nil {
		return nil
	}
	return turn.Wait(ctx)
}
