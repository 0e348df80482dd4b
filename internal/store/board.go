package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"vibecoder.app/console/common/logger"
	"vibecoder.app/console/internal/model"
)

const (
	fieldRevision = "rev"
	fieldDocument = "doc"

	maxTxRetries = 8

	resyncTimeout = 5 * time.Second
)

// boardEnvelope is published on a board's update channel.
type boardEnvelope struct {
	Revision int64                `json:"revision"`
	Exists   bool                 `json:"exists"`
	Board    *model.BoardSnapshot `json:"board,omitempty"`
}

type boardStore struct {
	client *redis.Client
	prefix string
}

// NewBoardStore keeps each board in the hash <prefix>:<thread> and publishes
// changes on <prefix>:<thread>:updates.
func NewBoardStore(client *redis.Client, keyPrefix string) BoardStore {
	return &boardStore{client: client, prefix: keyPrefix}
}

func (s *boardStore) key(thread model.ThreadID) string {
	return s.prefix + ":" + thread.String()
}

func (s *boardStore) channel(thread model.ThreadID) string {
	return s.key(thread) + ":updates"
}

func (s *boardStore) Get(ctx context.Context, thread model.ThreadID) (model.BoardDocument, error) {
	fields, err := s.client.HGetAll(ctx, s.key(thread)).Result()
	if err != nil {
		return model.BoardDocument{}, fmt.Errorf("reading board %s: %w", thread, err)
	}
	doc, err := decodeBoard(fields)
	if err != nil {
		return model.BoardDocument{}, fmt.Errorf("decoding board %s: %w", thread, err)
	}
	if !doc.Exists() {
		return doc, ErrNotFound
	}
	return doc, nil
}

func (s *boardStore) Put(ctx context.Context, thread model.ThreadID, snapshot model.BoardSnapshot) (int64, error) {
	snapshot = snapshot.Clone()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("encoding board: %w", err)
	}
	return s.write(ctx, thread, func(rev int64) (map[string]any, boardEnvelope) {
		return map[string]any{
				fieldRevision: rev,
				fieldDocument: string(payload),
			}, boardEnvelope{
				Revision: rev,
				Exists:   true,
				Board:    &snapshot,
			}
	})
}

func (s *boardStore) Delete(ctx context.Context, thread model.ThreadID) (int64, error) {
	return s.write(ctx, thread, func(rev int64) (map[string]any, boardEnvelope) {
		// The revision is kept so later writes keep increasing.
		return nil, boardEnvelope{Revision: rev}
	})
}

// write bumps the revision and publishes the change in one optimistic
// transaction. A nil field map deletes the document; deleting a board that
// does not exist returns ErrNotFound.
func (s *boardStore) write(ctx context.Context, thread model.ThreadID, build func(rev int64) (map[string]any, boardEnvelope)) (int64, error) {
	key := s.key(thread)
	var revision int64

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		prev, err := decodeBoard(current)
		if err != nil {
			return err
		}

		revision = prev.Revision + 1
		fields, env := build(revision)
		if fields == nil && !prev.Exists() {
			return ErrNotFound
		}
		msg, err := json.Marshal(env)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if fields == nil {
				pipe.HDel(ctx, key, fieldDocument)
				pipe.HSet(ctx, key, fieldRevision, revision)
			} else {
				pipe.HSet(ctx, key, fields)
			}
			pipe.Publish(ctx, s.channel(thread), msg)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return revision, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("writing board %s: %w", thread, err)
	}
	return 0, fmt.Errorf("writing board %s: %w", thread, redis.TxFailedErr)
}

// Watch subscribes before reading the current document so no change can fall
// between the two. Deliveries whose revision is not newer than the last one
// are skipped. Whenever the subscription is re-established after a dropped
// connection the document is read again, so changes published while
// disconnected still arrive.
func (s *boardStore) Watch(ctx context.Context, thread model.ThreadID, fn func(model.BoardDocument)) (io.Closer, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ThreadID:  logger.Ptr(thread.String()),
		Component: "console.store.board",
	})

	pubsub := s.client.Subscribe(ctx, s.channel(thread))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to board %s: %w", thread, err)
	}

	load := func(ctx context.Context) (model.BoardDocument, error) {
		fields, err := s.client.HGetAll(ctx, s.key(thread)).Result()
		if err != nil {
			return model.BoardDocument{}, fmt.Errorf("reading board %s: %w", thread, err)
		}
		doc, err := decodeBoard(fields)
		if err != nil {
			return model.BoardDocument{}, fmt.Errorf("decoding board %s: %w", thread, err)
		}
		return doc, nil
	}

	initial, err := load(ctx)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &boardWatch{
		pubsub: pubsub,
		load:   load,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go w.run(watchCtx, initial, fn)
	return w, nil
}

type boardWatch struct {
	pubsub *redis.PubSub
	load   func(ctx context.Context) (model.BoardDocument, error)
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func (w *boardWatch) run(ctx context.Context, initial model.BoardDocument, fn func(model.BoardDocument)) {
	defer close(w.done)

	last := initial.Revision
	fn(initial)

	deliver := func(doc model.BoardDocument) {
		if doc.Revision <= last {
			return
		}
		last = doc.Revision
		// A cancelled watch must not deliver.
		if ctx.Err() != nil {
			return
		}
		fn(doc)
	}

	// The first confirmation was consumed by Watch; any subscribe seen here
	// follows a reconnect.
	ch := w.pubsub.ChannelWithSubscriptions()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			switch msg := raw.(type) {
			case *redis.Subscription:
				if msg.Kind != "subscribe" {
					continue
				}
				loadCtx, cancel := context.WithTimeout(ctx, resyncTimeout)
				doc, err := w.load(loadCtx)
				cancel()
				if err != nil {
					slog.WarnContext(ctx, "resyncing board after reconnect", "error", err)
					continue
				}
				slog.InfoContext(ctx, "board subscription re-established", "revision", doc.Revision)
				deliver(doc)
			case *redis.Message:
				var env boardEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					slog.WarnContext(ctx, "skipping malformed board update", "error", err)
					continue
				}
				doc := model.BoardDocument{Revision: env.Revision}
				if env.Exists && env.Board != nil {
					doc.Snapshot = env.Board
				}
				deliver(doc)
			}
		}
	}
}

// Close stops delivery and waits for the delivery goroutine to exit.
func (w *boardWatch) Close() error {
	w.once.Do(func() {
		w.cancel()
		w.err = w.pubsub.Close()
		<-w.done
	})
	return w.err
}

func decodeBoard(fields map[string]string) (model.BoardDocument, error) {
	var doc model.BoardDocument
	if raw, ok := fields[fieldRevision]; ok {
		rev, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return doc, fmt.Errorf("parsing revision %q: %w", raw, err)
		}
		doc.Revision = rev
	}
	raw, ok := fields[fieldDocument]
	if !ok {
		return doc, nil
	}
	var snapshot model.BoardSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return doc, fmt.Errorf("parsing document: %w", err)
	}
	doc.Snapshot = &snapshot
	return doc, nil
}
