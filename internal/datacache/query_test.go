package datacache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serroba/storefront-edge-go/internal/datacache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type product struct {
	ID int
}

var errBoom = errors.New("boom")

// recorder collects every state a query commits.
type recorder[T any] struct {
	mu     sync.Mutex
	states []datacache.State[T]
}

func (r *recorder[T]) record(st datacache.State[T]) {
	r.mu.Lock()
	r.states = append(r.states, st)
	r.mu.Unlock()
}

func (r *recorder[T]) terminal() []datacache.State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []datacache.State[T]

	for _, st := range r.states {
		if !st.Loading {
			out = append(out, st)
		}
	}

	return out
}

func fastOptions[T any](key string) datacache.Options[T] {
	opts := datacache.DefaultOptions[T]()
	opts.CacheKey = key
	opts.RetryDelay = time.Millisecond

	return opts
}

func awaitCtx(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func TestQuery_Cache(t *testing.T) {
	t.Run("fresh entry is served without calling the producer", func(t *testing.T) {
		store := datacache.NewStore()
		store.Set("p", product{ID: 7}, time.Minute)

		var calls atomic.Int32

		q := datacache.New(store, func(_ context.Context) (product, error) {
			calls.Add(1)

			return product{}, nil
		}, zap.NewNop(), fastOptions[product]("p"))
		defer q.Close()

		q.Load()

		st := q.State()
		assert.False(t, st.Loading)
		assert.NoError(t, st.Err)
		assert.Equal(t, product{ID: 7}, st.Data)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("second query with the same key reuses the first result", func(t *testing.T) {
		clock := newFakeClock()
		store := datacache.NewStore(datacache.WithClock(clock.Now))
		release := make(chan struct{})

		var calls atomic.Int32

		fetch := func(_ context.Context) (product, error) {
			calls.Add(1)
			<-release

			return product{ID: 1}, nil
		}

		opts := fastOptions[product]("p")
		opts.TTL = 5 * time.Second

		first := datacache.New(store, fetch, zap.NewNop(), opts)
		defer first.Close()

		first.Load()
		assert.True(t, first.State().Loading)

		close(release)

		data, err := first.Await(awaitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, product{ID: 1}, data)

		clock.Advance(time.Second)

		second := datacache.New(store, fetch, zap.NewNop(), opts)
		defer second.Close()

		second.Load()

		st := second.State()
		assert.False(t, st.Loading)
		assert.Equal(t, product{ID: 1}, st.Data)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("stale entry triggers the producer again", func(t *testing.T) {
		clock := newFakeClock()
		store := datacache.NewStore(datacache.WithClock(clock.Now))

		var calls atomic.Int32

		fetch := func(_ context.Context) (product, error) {
			return product{ID: int(calls.Add(1))}, nil
		}

		opts := fastOptions[product]("p")
		opts.TTL = 5 * time.Second

		q := datacache.New(store, fetch, zap.NewNop(), opts)
		defer q.Close()

		q.Load()
		_, err := q.Await(awaitCtx(t))
		require.NoError(t, err)

		clock.Advance(5 * time.Second)
		q.Load()

		data, err := q.Await(awaitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, product{ID: 2}, data)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("without a key nothing is cached", func(t *testing.T) {
		store := datacache.NewStore()

		q := datacache.New(store, func(_ context.Context) (int, error) {
			return 1, nil
		}, zap.NewNop(), fastOptions[int](""))
		defer q.Close()

		q.Load()
		_, err := q.Await(awaitCtx(t))

		require.NoError(t, err)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("entry of another type is treated as a miss", func(t *testing.T) {
		store := datacache.NewStore()
		store.Set("p", "not a product", time.Minute)

		q := datacache.New(store, func(_ context.Context) (product, error) {
			return product{ID: 3}, nil
		}, zap.NewNop(), fastOptions[product]("p"))
		defer q.Close()

		q.Load()
		data, err := q.Await(awaitCtx(t))

		require.NoError(t, err)
		assert.Equal(t, product{ID: 3}, data)
	})
}

func TestQuery_Retry(t *testing.T) {
	t.Run("always failing producer is called max retries plus one times", func(t *testing.T) {
		var calls atomic.Int32

		opts := fastOptions[product]("p")
		opts.MaxRetries = 2

		q := datacache.New(datacache.NewStore(), func(_ context.Context) (product, error) {
			calls.Add(1)

			return product{}, errBoom
		}, zap.NewNop(), opts)
		defer q.Close()

		q.Load()
		_, err := q.Await(awaitCtx(t))

		require.Error(t, err)
		assert.ErrorIs(t, err, datacache.ErrFetchFailed)
		assert.Equal(t, "boom", err.Error())
		assert.Equal(t, int32(3), calls.Load())

		st := q.State()
		assert.False(t, st.Loading)

		var fetchErr *datacache.FetchError
		require.ErrorAs(t, st.Err, &fetchErr)
		assert.Equal(t, "boom", fetchErr.Message)
	})

	t.Run("zero retries calls the producer once", func(t *testing.T) {
		var calls atomic.Int32

		opts := fastOptions[product]("")
		opts.MaxRetries = 0

		q := datacache.New(datacache.NewStore(), func(_ context.Context) (product, error) {
			calls.Add(1)

			return product{}, errBoom
		}, zap.NewNop(), opts)
		defer q.Close()

		q.Load()
		_, err := q.Await(awaitCtx(t))

		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("stays loading across retries and commits the eventual success", func(t *testing.T) {
		var calls atomic.Int32

		rec := &recorder[product]{}
		opts := fastOptions[product]("p")
		opts.OnChange = rec.record

		store := datacache.NewStore()

		q := datacache.New(store, func(_ context.Context) (product, error) {
			if calls.Add(1) < 3 {
				return product{}, errBoom
			}

			return product{ID: 9}, nil
		}, zap.NewNop(), opts)
		defer q.Close()

		q.Load()
		data, err := q.Await(awaitCtx(t))

		require.NoError(t, err)
		assert.Equal(t, product{ID: 9}, data)
		assert.Equal(t, int32(3), calls.Load())

		require.Eventually(t, func() bool { return len(rec.terminal()) == 1 }, time.Second, 5*time.Millisecond)
		assert.NoError(t, rec.terminal()[0].Err)

		v, ok := store.Fresh("p")
		require.True(t, ok)
		assert.Equal(t, product{ID: 9}, v)
	})

	t.Run("failure keeps previously loaded data", func(t *testing.T) {
		var fail atomic.Bool

		opts := fastOptions[product]("")
		opts.MaxRetries = 0

		q := datacache.New(datacache.NewStore(), func(_ context.Context) (product, error) {
			if fail.Load() {
				return product{}, errBoom
			}

			return product{ID: 1}, nil
		}, zap.NewNop(), opts)
		defer q.Close()

		q.Load()
		_, err := q.Await(awaitCtx(t))
		require.NoError(t, err)

		fail.Store(true)
		q.Refetch()
		_, err = q.Await(awaitCtx(t))
		require.Error(t, err)

		assert.Equal(t, product{ID: 1}, q.State().Data)
	})
}

func TestQuery_Supersession(t *testing.T) {
	t.Run("double refetch yields exactly one terminal transition", func(t *testing.T) {
		release := make(chan struct{})
		rec := &recorder[product]{}

		var calls atomic.Int32

		opts := fastOptions[product]("p")
		opts.OnChange = rec.record

		q := datacache.New(datacache.NewStore(), func(ctx context.Context) (product, error) {
			n := calls.Add(1)

			select {
			case <-release:
				return product{ID: int(n)}, nil
			case <-ctx.Done():
				return product{}, ctx.Err()
			}
		}, zap.NewNop(), opts)
		defer q.Close()

		q.Load()
		q.Refetch()
		q.Refetch()
		close(release)

		_, err := q.Await(awaitCtx(t))
		require.NoError(t, err)

		require.Eventually(t, func() bool { return len(rec.terminal()) >= 1 }, time.Second, 5*time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		assert.Len(t, rec.terminal(), 1)
	})

	t.Run("late result of a superseded fetch is discarded", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		store := datacache.NewStore()

		var calls atomic.Int32

		q := datacache.New(store, func(_ context.Context) (string, error) {
			if calls.Add(1) == 1 {
				close(started)
				<-release

				return "first", nil
			}

			return "second", nil
		}, zap.NewNop(), fastOptions[string]("k"))
		defer q.Close()

		q.Load()
		<-started
		q.Refetch()

		data, err := q.Await(awaitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, "second", data)

		close(release)
		time.Sleep(50 * time.Millisecond)

		assert.Equal(t, "second", q.State().Data)

		v, ok := store.Fresh("k")
		require.True(t, ok)
		assert.Equal(t, "second", v)
	})

	t.Run("refetch bypasses a fresh entry", func(t *testing.T) {
		store := datacache.NewStore()
		store.Set("p", product{ID: 1}, time.Minute)

		q := datacache.New(store, func(_ context.Context) (product, error) {
			return product{ID: 2}, nil
		}, zap.NewNop(), fastOptions[product]("p"))
		defer q.Close()

		q.Refetch()
		data, err := q.Await(awaitCtx(t))

		require.NoError(t, err)
		assert.Equal(t, product{ID: 2}, data)
	})

	t.Run("clear cache evicts without fetching", func(t *testing.T) {
		store := datacache.NewStore()
		store.Set("p", product{ID: 1}, time.Minute)

		var calls atomic.Int32

		q := datacache.New(store, func(_ context.Context) (product, error) {
			calls.Add(1)

			return product{}, nil
		}, zap.NewNop(), fastOptions[product]("p"))
		defer q.Close()

		q.ClearCache()

		_, ok := store.Get("p")
		assert.False(t, ok)
		assert.Equal(t, int32(0), calls.Load())
		assert.True(t, q.State().Loading, "state is untouched")
	})
}

func TestQuery_Update(t *testing.T) {
	var calls atomic.Int32

	q := datacache.New(datacache.NewStore(), func(_ context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, zap.NewNop(), fastOptions[int](""))
	defer q.Close()

	assert.True(t, q.Update("ar", 1), "first call always loads")
	_, err := q.Await(awaitCtx(t))
	require.NoError(t, err)

	assert.False(t, q.Update("ar", 1), "unchanged deps do not load")
	assert.True(t, q.Update("en", 1), "changed deps load")

	data, err := q.Await(awaitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 2, data)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQuery_Close(t *testing.T) {
	t.Run("discards in-flight result and stops notifications", func(t *testing.T) {
		release := make(chan struct{})
		rec := &recorder[product]{}
		store := datacache.NewStore()

		opts := fastOptions[product]("p")
		opts.OnChange = rec.record

		q := datacache.New(store, func(_ context.Context) (product, error) {
			<-release

			return product{ID: 1}, nil
		}, zap.NewNop(), opts)

		q.Load()
		q.Close()
		close(release)

		time.Sleep(50 * time.Millisecond)

		assert.Empty(t, rec.terminal())
		assert.Equal(t, 0, store.Len())

		_, err := q.Await(awaitCtx(t))
		assert.ErrorIs(t, err, datacache.ErrClosed)
	})

	t.Run("cancels the producer context", func(t *testing.T) {
		cancelled := make(chan struct{})

		q := datacache.New(datacache.NewStore(), func(ctx context.Context) (int, error) {
			<-ctx.Done()
			close(cancelled)

			return 0, ctx.Err()
		}, zap.NewNop(), fastOptions[int](""))

		q.Load()
		q.Close()

		select {
		case <-cancelled:
		case <-time.After(time.Second):
			t.Fatal("producer context was not cancelled")
		}
	})

	t.Run("load after close is a no-op", func(t *testing.T) {
		var calls atomic.Int32

		q := datacache.New(datacache.NewStore(), func(_ context.Context) (int, error) {
			calls.Add(1)

			return 1, nil
		}, zap.NewNop(), fastOptions[int](""))

		q.Close()
		q.Load()
		q.Refetch()

		assert.False(t, q.Update(1))
		assert.Equal(t, int32(0), calls.Load())
	})
}

func TestQuery_AwaitContext(t *testing.T) {
	q := datacache.New(datacache.NewStore(), func(ctx context.Context) (int, error) {
		<-ctx.Done()

		return 0, ctx.Err()
	}, zap.NewNop(), fastOptions[int](""))
	defer q.Close()

	q.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Await(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
