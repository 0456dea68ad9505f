package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_BecomesTrue(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), func() bool {
		calls++
		return calls >= 3
	}, time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPoll_Timeout(t *testing.T) {
	err := Poll(context.Background(), func() bool { return false }, 20*time.Millisecond, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout waiting for condition")
}

func TestPoll_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	err := Poll(ctx, func() bool {
		once.Do(cancel)
		return false
	}, 5*time.Second, time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitForState(t *testing.T) {
	var n atomic.Int32
	go func() {
		for range 5 {
			n.Add(1)
			time.Sleep(time.Millisecond)
		}
	}()
	v, err := WaitForState(context.Background(), n.Load, func(v int32) bool { return v >= 5 }, DefaultTimeout, time.Millisecond)
	require.NoError(t, err)
	assert.EqualValues(t, 5, v)

	v, err = WaitForState(context.Background(), func() int32 { return 1 }, func(v int32) bool { return v > 1 }, 10*time.Millisecond, time.Millisecond)
	require.Error(t, err)
	assert.Zero(t, v)
}

type fatalRecorder struct {
	msg string
}

func (f *fatalRecorder) Helper() {}

func (f *fatalRecorder) Fatalf(format string, args ...any) { f.msg = format }

func TestEventually(t *testing.T) {
	Eventually(t, func() bool { return true }, "immediate")

	var fr fatalRecorder
	start := time.Now()
	Eventually(&fr, func() bool { return time.Since(start) > 10*time.Millisecond }, "flip")
	assert.Empty(t, fr.msg)
}

func TestRecorder(t *testing.T) {
	var r Recorder[int]
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Record(i)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, r.Len())
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, r.Values())

	r.Reset()
	assert.Zero(t, r.Len())
}
