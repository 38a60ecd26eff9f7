package datacache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"
	"go.uber.org/zap"
)

var (
	// ErrFetchFailed is matched by every error a Query surfaces from its producer.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrClosed is returned by Await once the query has been closed.
	ErrClosed = errors.New("query closed")
)

// FetchError carries the message of the producer's last failure.
type FetchError struct {
	Message string
}

func (e *FetchError) Error() string {
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return ErrFetchFailed
}

// Fetcher produces a value. ctx is cancelled when the call is superseded or the query is closed.
type Fetcher[T any] func(ctx context.Context) (T, error)

// State is the observable state of a Query.
type State[T any] struct {
	Data    T
	Loading bool
	Err     error
}

// Options configures a Query.
type Options[T any] struct {
	// CacheKey enables the shared cache. Empty disables caching.
	CacheKey string
	// TTL is how long a stored result is served without calling the producer.
	TTL time.Duration
	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries int
	// RetryDelay is the fixed wait between attempts.
	RetryDelay time.Duration
	// OnChange is called, in order, with every state the query commits.
	OnChange func(State[T])
}

// DefaultOptions returns a five minute TTL with three retries one second apart.
func DefaultOptions[T any]() Options[T] {
	return Options[T]{
		TTL:        5 * time.Minute,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Query wraps a producer with the shared cache, fixed-delay retries and
// supersession. At most one fetch is live per Query; starting another
// cancels the previous one and its result is dropped.
type Query[T any] struct {
	store  *Store
	fetch  Fetcher[T]
	opts   Options[T]
	logger *zap.Logger

	mu         sync.Mutex
	state      State[T]
	deps       []any
	hasDeps    bool
	gen        uint64
	cancel     context.CancelFunc
	done       chan struct{}
	doneClosed bool
	closed     bool

	pending  []State[T]
	emitting bool
}

// New creates a query over store. Nothing is fetched until Load or Update.
func New[T any](store *Store, fetch Fetcher[T], logger *zap.Logger, opts Options[T]) *Query[T] {
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}

	return &Query[T]{
		store:  store,
		fetch:  fetch,
		opts:   opts,
		logger: logger,
		state:  State[T]{Loading: true},
		done:   make(chan struct{}),
	}
}

// Load serves the cached value when fresh, otherwise starts a fetch with a clean retry count.
func (q *Query[T]) Load() {
	q.mu.Lock()
	q.begin()
}

// Update records deps and runs Load when they differ from the previous call.
// The first call always loads.
func (q *Query[T]) Update(deps ...any) bool {
	q.mu.Lock()

	if q.closed || (q.hasDeps && reflect.DeepEqual(q.deps, deps)) {
		q.mu.Unlock()

		return false
	}

	q.deps = append([]any(nil), deps...)
	q.hasDeps = true
	q.begin()

	return true
}

// Refetch evicts the cache entry and fetches from the producer.
func (q *Query[T]) Refetch() {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()

		return
	}

	if q.opts.CacheKey != "" {
		q.store.Delete(q.opts.CacheKey)
	}

	q.begin()
}

// ClearCache evicts the cache entry without fetching.
func (q *Query[T]) ClearCache() {
	if q.opts.CacheKey != "" {
		q.store.Delete(q.opts.CacheKey)
	}
}

// Close cancels the live fetch. No state is committed afterwards.
func (q *Query[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	q.pending = nil
	q.gen++

	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}

	q.finish()
}

// State returns a snapshot of the current state.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.state
}

// Await blocks until the live fetch settles, following any supersessions,
// and returns its data or error.
func (q *Query[T]) Await(ctx context.Context) (T, error) {
	var zero T

	for {
		q.mu.Lock()
		closed, st, done := q.closed, q.state, q.done
		q.mu.Unlock()

		if closed {
			return zero, ErrClosed
		}

		if !st.Loading {
			if st.Err != nil {
				return zero, st.Err
			}

			return st.Data, nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// begin runs the fetch path. q.mu must be held; begin releases it.
func (q *Query[T]) begin() {
	if q.closed {
		q.mu.Unlock()

		return
	}

	q.supersede()

	if q.opts.CacheKey != "" {
		if v, ok := q.store.Fresh(q.opts.CacheKey); ok {
			if data, ok := v.(T); ok {
				q.state = State[T]{Data: data}
				q.finish()
				q.emit()

				return
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	gen := q.gen

	q.state.Loading = true
	q.state.Err = nil
	q.emit()

	go q.run(ctx, gen)
}

// supersede invalidates the live fetch and opens a new settle channel.
func (q *Query[T]) supersede() {
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}

	q.gen++
	q.finish()
	q.done = make(chan struct{})
	q.doneClosed = false
}

func (q *Query[T]) finish() {
	if !q.doneClosed {
		close(q.done)
		q.doneClosed = true
	}
}

func (q *Query[T]) run(ctx context.Context, gen uint64) {
	var data T

	attempts := 0

	err := retry.Retry(func(uint) error {
		attempts++

		v, err := q.fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				q.logger.Warn("data fetch error",
					zap.String("cache_key", q.opts.CacheKey),
					zap.Int("attempt", attempts),
					zap.Error(err),
				)
			}

			return err
		}

		data = v

		return nil
	}, fixedDelay(ctx, q.opts.MaxRetries, q.opts.RetryDelay))

	q.mu.Lock()

	if q.closed || gen != q.gen || ctx.Err() != nil {
		q.mu.Unlock()

		return
	}

	q.cancel()
	q.cancel = nil

	if err != nil {
		q.state.Err = &FetchError{Message: err.Error()}
	} else {
		if q.opts.CacheKey != "" {
			q.store.Set(q.opts.CacheKey, data, q.opts.TTL)
		}

		q.state.Data = data
		q.state.Err = nil
	}

	q.state.Loading = false
	q.finish()
	q.emit()
}

// emit queues the current state for OnChange and drains the queue unless
// another goroutine is already draining it. q.mu must be held; emit releases it.
func (q *Query[T]) emit() {
	if q.opts.OnChange == nil {
		q.mu.Unlock()

		return
	}

	q.pending = append(q.pending, q.state)

	if q.emitting {
		q.mu.Unlock()

		return
	}

	q.emitting = true

	for len(q.pending) > 0 && !q.closed {
		st := q.pending[0]
		q.pending = q.pending[1:]

		q.mu.Unlock()
		q.opts.OnChange(st)
		q.mu.Lock()
	}

	q.pending = nil
	q.emitting = false
	q.mu.Unlock()
}

// fixedDelay allows the first attempt immediately and up to maxRetries more,
// each after delay. It stops early once ctx is cancelled.
func fixedDelay(ctx context.Context, maxRetries int, delay time.Duration) strategy.Strategy {
	calls := 0

	return func(uint) bool {
		calls++

		if calls == 1 {
			return true
		}

		if calls > maxRetries+1 || ctx.Err() != nil {
			return false
		}

		if delay <= 0 {
			return true
		}

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			return ctx.Err() == nil
		case <-ctx.Done():
			return false
		}
	}
}
