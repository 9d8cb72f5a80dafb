package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/account-health/internal/batch"
)

type fakeRunner struct {
	calls atomic.Int32
	block chan struct{}
	err   error
	asOf  time.Time
}

func (f *fakeRunner) Run(ctx context.Context, asOf time.Time) (batch.Report, error) {
	f.calls.Add(1)
	f.asOf = asOf
	if f.block != nil {
		<-f.block
	}
	return batch.Report{RunID: "r"}, f.err
}

func TestSchedule(t *testing.T) {
	s := New(&fakeRunner{}, zaptest.NewLogger(t), context.Background())

	_, err := s.Schedule("")
	require.NoError(t, err)
	_, err = s.Schedule("*/5 * * * * *")
	require.NoError(t, err)
	_, err = s.Schedule("every tuesday")
	assert.Error(t, err)

	assert.Len(t, s.cron.Entries(), 2)
}

func TestTrigger(t *testing.T) {
	fixed := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)

	t.Run("passes the current time", func(t *testing.T) {
		r := &fakeRunner{}
		s := New(r, zaptest.NewLogger(t), nil)
		s.now = func() time.Time { return fixed }

		s.trigger(context.Background())

		assert.Equal(t, int32(1), r.calls.Load())
		assert.Equal(t, fixed, r.asOf)
	})

	t.Run("failed run is logged, not fatal", func(t *testing.T) {
		r := &fakeRunner{err: errors.New("boom")}
		s := New(r, zaptest.NewLogger(t), nil)

		assert.NotPanics(t, func() { s.trigger(context.Background()) })
		assert.False(t, s.running)
	})

	t.Run("overlapping tick is skipped", func(t *testing.T) {
		r := &fakeRunner{block: make(chan struct{})}
		s := New(r, zaptest.NewLogger(t), nil)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.trigger(context.Background())
		}()
		require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, time.Millisecond)

		s.trigger(context.Background())
		assert.Equal(t, int32(1), r.calls.Load())

		close(r.block)
		wg.Wait()
	})
}

func TestStartStop(t *testing.T) {
	r := &fakeRunner{}
	s := New(r, zaptest.NewLogger(t), context.Background())
	_, err := s.Schedule("* * * * * *")
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	s.Stop()
}
