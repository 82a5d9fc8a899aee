package repository

import (
	"context"
	"sync"

	"github.com/DaDevFox/task-systems/household-core/internal/store"
)

// Stream delivers the full result of a query once on subscription and again
// after every committed change to the tables it watches. Change signals that
// arrive while a snapshot is pending are coalesced, so a slow reader always
// receives the latest rowset.
type Stream[T any] struct {
	out    chan []T
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func newStream[T any](ctx context.Context, st *store.Store, query func(ctx context.Context) ([]T, error), tables ...store.Table) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{
		out:    make(chan []T),
		cancel: cancel,
	}

	signal := make(chan struct{}, 1)
	signal <- struct{}{}

	unsubscribe := st.Subscribe(func() {
		select {
		case signal <- struct{}{}:
		default:
		}
	}, tables...)

	go s.run(ctx, signal, unsubscribe, query)
	return s
}

func (s *Stream[T]) run(ctx context.Context, signal <-chan struct{}, unsubscribe func(), query func(ctx context.Context) ([]T, error)) {
	defer close(s.out)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-signal:
		}

		rows, err := query(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
			return
		}

		select {
		case s.out <- rows:
		case <-ctx.Done():
			return
		}
	}
}

// C returns the snapshot channel. It is closed after Cancel, when the parent
// context ends, or when a query fails.
func (s *Stream[T]) C() <-chan []T {
	return s.out
}

// Cancel stops delivery and releases the change subscription. It is safe to call more than once.
func (s *Stream[T]) Cancel() {
	s.cancel()
}

// Err returns the query error that ended the stream, if any
func (s *Stream[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
