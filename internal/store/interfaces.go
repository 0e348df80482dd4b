package store

import (
	"context"
	"errors"
	"io"

	"vibecoder.app/console/internal/model"
)

var ErrNotFound = errors.New("not found")

// BoardStore persists one board document per thread and pushes every change
// to its watchers.
type BoardStore interface {
	// Get returns the current board or ErrNotFound.
	Get(ctx context.Context, thread model.ThreadID) (model.BoardDocument, error)
	// Put replaces the board and returns its new revision.
	Put(ctx context.Context, thread model.ThreadID, snapshot model.BoardSnapshot) (int64, error)
	// Delete removes the board. Watchers receive an absent document.
	// Deleting a missing board returns ErrNotFound.
	Delete(ctx context.Context, thread model.ThreadID) (int64, error)
	// Watch delivers the current document and then every change until the
	// returned Closer is closed.
	Watch(ctx context.Context, thread model.ThreadID, fn func(model.BoardDocument)) (io.Closer, error)
}
