package board_test

import (
	"context"
	"errors"
	"io"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"vibecoder.app/console/internal/board"
	"vibecoder.app/console/internal/model"
)

type fakeSubscription struct {
	thread model.ThreadID
	fn     func(model.BoardDocument)

	mu     sync.Mutex
	closed bool
}

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// push delivers regardless of Close, standing in for a late network callback.
func (s *fakeSubscription) push(doc model.BoardDocument) {
	s.fn(doc)
}

// fakeSource records every subscription it opens. It delivers nothing on its
// own; tests push documents explicitly.
type fakeSource struct {
	watchErr error

	mu   sync.Mutex
	subs []*fakeSubscription
}

func (f *fakeSource) Watch(_ context.Context, thread model.ThreadID, fn func(model.BoardDocument)) (io.Closer, error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSubscription{thread: thread, fn: fn}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeSource) last() *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

func (f *fakeSource) open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if !s.isClosed() {
			n++
		}
	}
	return n
}

func doc(rev int64, phase, status string, tasks ...string) model.BoardDocument {
	return model.BoardDocument{
		Revision: rev,
		Snapshot: &model.BoardSnapshot{Phase: phase, Status: status, Tasks: tasks},
	}
}

var _ = Describe("Manager", func() {
	var (
		ctx     context.Context
		source  *fakeSource
		manager *board.Manager
		threadA model.ThreadID
		threadB model.ThreadID
	)

	BeforeEach(func() {
		ctx = context.Background()
		source = &fakeSource{}
		manager = board.NewManager(source)
		threadA = model.MustThreadID("web-client-a")
		threadB = model.MustThreadID("web-client-b")
	})

	It("starts idle with the defaults", func() {
		v := manager.View()
		Expect(v.State).To(Equal(board.StateIdle))
		Expect(v.Phase).To(Equal("Discovery"))
		Expect(v.Status).To(Equal("Waiting for mission brief..."))
		Expect(v.Tasks).To(BeEmpty())
		Expect(v.Tasks).NotTo(BeNil())
	})

	It("is loading until the first delivery", func() {
		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		Expect(manager.State()).To(Equal(board.StateLoading))
		Expect(manager.View().Loading()).To(BeTrue())
		Expect(manager.View().Phase).To(Equal(board.DefaultPhase))

		source.last().push(doc(1, "Build", "Writing API", "Create schema", "Add auth"))

		v := manager.View()
		Expect(v.State).To(Equal(board.StateAttached))
		Expect(v.Exists).To(BeTrue())
		Expect(v.Phase).To(Equal("Build"))
		Expect(v.Status).To(Equal("Writing API"))
		Expect(v.Tasks).To(Equal([]string{"Create schema", "Add auth"}))
		Expect(v.ThreadID).To(Equal(threadA))
	})

	It("shows the defaults when the thread has no board", func() {
		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		source.last().push(model.AbsentBoard(0))

		v := manager.View()
		Expect(v.State).To(Equal(board.StateAttached))
		Expect(v.Exists).To(BeFalse())
		Expect(v.Phase).To(Equal(board.DefaultPhase))
		Expect(v.Status).To(Equal(board.DefaultStatus))
		Expect(v.Tasks).To(Equal([]string{}))
	})

	It("falls back per field when a board omits some", func() {
		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		source.last().push(doc(1, "Build", ""))

		v := manager.View()
		Expect(v.Phase).To(Equal("Build"))
		Expect(v.Status).To(Equal(board.DefaultStatus))
		Expect(v.Tasks).To(Equal([]string{}))
	})

	It("replaces the whole view on every push", func() {
		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		sub := source.last()
		sub.push(doc(1, "Build", "Writing API", "a", "b"))
		sub.push(doc(2, "Test", "Running suite"))

		v := manager.View()
		Expect(v.Phase).To(Equal("Test"))
		Expect(v.Tasks).To(BeEmpty())
		Expect(v.Revision).To(Equal(int64(2)))
	})

	It("returns to the defaults when the board is deleted", func() {
		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		sub := source.last()
		sub.push(doc(1, "Build", "Writing API", "a"))
		sub.push(model.AbsentBoard(2))

		v := manager.View()
		Expect(v.Exists).To(BeFalse())
		Expect(v.Phase).To(Equal(board.DefaultPhase))
	})

	It("drops pushes older than the one shown", func() {
		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		sub := source.last()
		sub.push(doc(5, "Deploy", "Shipping"))
		sub.push(doc(4, "Build", "Stale"))

		Expect(manager.View().Phase).To(Equal("Deploy"))
	})

	It("never applies a push from a previous thread", func() {
		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		subA := source.last()
		subA.push(doc(1, "Build", "A status"))

		Expect(manager.Attach(ctx, threadB)).To(Succeed())
		Expect(subA.isClosed()).To(BeTrue())
		Expect(manager.State()).To(Equal(board.StateLoading))
		Expect(manager.View().Phase).To(Equal(board.DefaultPhase))

		subA.push(doc(2, "Deploy", "late A push"))
		Expect(manager.View().Phase).To(Equal(board.DefaultPhase))
		Expect(manager.View().ThreadID).To(Equal(threadB))

		source.last().push(doc(1, "Plan", "B status"))
		v := manager.View()
		Expect(v.Phase).To(Equal("Plan"))
		Expect(v.Status).To(Equal("B status"))
	})

	It("keeps at most one subscription open", func() {
		for _, t := range []model.ThreadID{threadA, threadB, threadA, threadB} {
			Expect(manager.Attach(ctx, t)).To(Succeed())
			Expect(source.open()).To(Equal(1))
		}
		Expect(manager.Detach()).To(Succeed())
		Expect(source.open()).To(BeZero())
	})

	It("treats re-attaching the same thread as a no-op", func() {
		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		source.last().push(doc(1, "Build", "x"))
		gen := manager.Generation()

		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		Expect(manager.Generation()).To(Equal(gen))
		Expect(manager.View().Phase).To(Equal("Build"))
		Expect(source.subs).To(HaveLen(1))
	})

	It("drops pushes after Detach", func() {
		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		sub := source.last()
		Expect(manager.Detach()).To(Succeed())

		sub.push(doc(1, "Build", "late"))
		Expect(manager.State()).To(Equal(board.StateIdle))
		Expect(manager.View().Phase).To(Equal(board.DefaultPhase))
	})

	It("stays loading when the subscription cannot be opened", func() {
		source.watchErr = errors.New("redis down")
		err := manager.Attach(ctx, threadA)
		Expect(err).To(MatchError(ContainSubstring("redis down")))
		Expect(manager.State()).To(Equal(board.StateLoading))
		Expect(manager.View().Status).To(Equal(board.DefaultStatus))

		source.watchErr = nil
		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		Expect(source.open()).To(Equal(1))
	})

	It("rejects a zero thread id", func() {
		Expect(manager.Attach(ctx, model.ThreadID{})).To(MatchError(model.ErrEmptyThreadID))
	})

	It("refuses to attach after Close", func() {
		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		Expect(manager.Close()).To(Succeed())
		Expect(source.open()).To(BeZero())
		Expect(manager.Attach(ctx, threadB)).To(MatchError(board.ErrClosed))
	})

	It("reports every transition to the listener in order", func() {
		var mu sync.Mutex
		var states []board.State
		manager = board.NewManager(source, board.WithListener(func(v board.View) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, v.State)
		}))

		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		source.last().push(doc(1, "Build", "x"))
		Expect(manager.Attach(ctx, threadB)).To(Succeed())
		Expect(manager.Detach()).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(states).To(Equal([]board.State{
			board.StateLoading,
			board.StateAttached,
			board.StateLoading,
			board.StateIdle,
		}))
	})

	It("does not leak listener mutations into its own view", func() {
		manager = board.NewManager(source, board.WithListener(func(v board.View) {
			if len(v.Tasks) > 0 {
				v.Tasks[0] = "mutated"
			}
		}))
		Expect(manager.Attach(ctx, threadA)).To(Succeed())
		source.last().push(doc(1, "Build", "x", "original"))
		Expect(manager.View().Tasks).To(Equal([]string{"original"}))
	})
})
