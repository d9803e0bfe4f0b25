package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type fakeDrafts struct {
	sweeps atomic.Int32
	idle   atomic.Int64
}

func (f *fakeDrafts) Sweep(idle time.Duration) int {
	f.sweeps.Add(1)
	f.idle.Store(int64(idle))
	return 2
}

func (f *fakeDrafts) Len() int { return 3 }

func TestDraftSweeper_SweepsOnEveryTick(t *testing.T) {
	defer goleak.VerifyNone(t)

	drafts := &fakeDrafts{}
	s := NewDraftSweeper(zap.NewNop(), drafts, time.Hour, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return drafts.sweeps.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()
	<-done

	assert.Equal(t, int64(time.Hour), drafts.idle.Load())
}

func TestDraftSweeper_StopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewDraftSweeper(nil, &fakeDrafts{}, time.Minute, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}

func TestDraftSweeper_RunOnce(t *testing.T) {
	drafts := &fakeDrafts{}
	s := NewDraftSweeper(zap.NewNop(), drafts, 30*time.Minute, time.Hour)
	assert.Equal(t, 2, s.runOnce())
	assert.EqualValues(t, 1, drafts.sweeps.Load())
}

func TestNewDraftSweeper_NonPositiveDurationsDefault(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewDraftSweeper(nil, &fakeDrafts{}, 0, 0)
	assert.Equal(t, 5*time.Minute, s.interval)
	assert.Equal(t, 2*time.Hour, s.idleTTL)

	s = NewDraftSweeper(nil, &fakeDrafts{}, time.Hour, -time.Second)
	assert.Equal(t, 5*time.Minute, s.interval)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
