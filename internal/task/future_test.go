package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_WaitBlocksUntilFulfilled(t *testing.T) {
	t.Parallel()

	f := newFuture[int]()
	require.False(t, f.Ready())

	go func() {
		time.Sleep(20 * time.Millisecond)
		f.fulfill(42, nil)
	}()

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, f.Ready())
}

func TestFuture_WaitHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	f := newFuture[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	v, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, v)
	assert.False(t, f.Ready(), "cancellation must not count as fulfillment")
}

func TestFuture_CarriesComputationError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	f := newFuture[int]()
	f.fulfill(0, boom)

	v, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, v)
}

func TestFuture_DoneBroadcastsToAllWaiters(t *testing.T) {
	t.Parallel()

	f := newFuture[int]()
	const waiters = 10
	results := make([]int, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-f.Done()
			v, err := f.Wait(context.Background())
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	f.fulfill(7, nil)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		assert.Equal(t, 7, results[i])
	}
}

func TestFuture_SecondFulfillPanics(t *testing.T) {
	t.Parallel()

	f := newFuture[int]()
	f.fulfill(1, nil)
	assert.PanicsWithValue(t, "task: result already delivered for this generation", func() {
		f.fulfill(2, nil)
	})
}
