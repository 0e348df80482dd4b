package handler_test

import (
	"context"
	"io"

	"vibecoder.app/console/internal/model"
)

type mockBoardStore struct {
	getFn    func(ctx context.Context, thread model.ThreadID) (model.BoardDocument, error)
	putFn    func(ctx context.Context, thread model.ThreadID, snapshot model.BoardSnapshot) (int64, error)
	deleteFn func(ctx context.Context, thread model.ThreadID) (int64, error)
	watchFn  func(ctx context.Context, thread model.ThreadID, fn func(model.BoardDocument)) (io.Closer, error)
}

func (m *mockBoardStore) Get(ctx context.Context, thread model.ThreadID) (model.BoardDocument, error) {
	if m.getFn != nil {
		return m.getFn(ctx, thread)
	}
	return model.BoardDocument{}, nil
}

func (m *mockBoardStore) Put(ctx context.Context, thread model.ThreadID, snapshot model.BoardSnapshot) (int64, error) {
	if m.putFn != nil {
		return m.putFn(ctx, thread, snapshot)
	}
	return 0, nil
}

func (m *mockBoardStore) Delete(ctx context.Context, thread model.ThreadID) (int64, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, thread)
	}
	return 0, nil
}

func (m *mockBoardStore) Watch(ctx context.Context, thread model.ThreadID, fn func(model.BoardDocument)) (io.Closer, error) {
	if m.watchFn != nil {
		return m.watchFn(ctx, thread, fn)
	}
	return io.NopCloser(nil), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
