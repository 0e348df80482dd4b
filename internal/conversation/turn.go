package conversation

import (
	"context"

	"vibecoder.app/console/internal/model"
)

// Turn tracks one accepted submission until its reply (or error placeholder)
// has been appended.
type Turn struct {
	id     string
	prompt string
	done   chan struct{}

	// Written once before done is closed.
	reply model.Message
	err   error
}

func newTurn(id, prompt string) *Turn {
	return &Turn{
		id:     id,
		prompt: prompt,
		done:   make(chan struct{}),
	}
}

func (t *Turn) ID() string {
	return t.id
}

func (t *Turn) Prompt() string {
	return t.prompt
}

// Done is closed once the assistant message for this turn is in the log.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the turn resolves or ctx ends.
func (t *Turn) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reply is the assistant message appended for this turn. Only meaningful
// after Done is closed.
func (t *Turn) Reply() model.Message {
	<-t.done
	return t.reply
}

// Err is the classified remote-call failure, nil when the agent replied.
func (t *Turn) Err() error {
	<-t.done
	return t.err
}

func (t *Turn) resolve(reply model.Message, err error) {
	t.reply = reply
	t.err = err
	close(t.done)
}
