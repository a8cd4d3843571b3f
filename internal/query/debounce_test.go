package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock hands out manually fired timers.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	mu      sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// elapse fires every timer that has not been stopped.
func (c *fakeClock) elapse() {
	c.mu.Lock()
	timers := append([]*fakeTimer(nil), c.timers...)
	c.mu.Unlock()
	for _, t := range timers {
		t.mu.Lock()
		live := !t.stopped
		t.stopped = true
		t.mu.Unlock()
		if live {
			t.f()
		}
	}
}

func TestDebouncer_BurstCommitsOnce(t *testing.T) {
	clock := &fakeClock{}
	var committed []string
	d := NewDebouncer(DebounceInterval, func(v string) { committed = append(committed, v) }, WithAfterFunc(clock.AfterFunc))

	for _, v := range []string{"m", "mi", "mil", "milk"} {
		d.Push(v)
	}
	assert.Empty(t, committed)

	clock.elapse()
	assert.Equal(t, []string{"milk"}, committed)

	for _, timer := range clock.timers {
		assert.Equal(t, DebounceInterval, timer.d)
	}
}

func TestDebouncer_SeparateBurstsCommitSeparately(t *testing.T) {
	clock := &fakeClock{}
	var committed []string
	d := NewDebouncer(DebounceInterval, func(v string) { committed = append(committed, v) }, WithAfterFunc(clock.AfterFunc))

	d.Push("a")
	clock.elapse()
	d.Push("ab")
	d.Push("abc")
	clock.elapse()

	assert.Equal(t, []string{"a", "abc"}, committed)
}

func TestDebouncer_SupersededTimerCallbackIsIgnored(t *testing.T) {
	clock := &fakeClock{}
	var committed []string
	d := NewDebouncer(DebounceInterval, func(v string) { committed = append(committed, v) }, WithAfterFunc(clock.AfterFunc))

	d.Push("old")
	first := clock.timers[0]
	d.Push("new")

	// The first timer's callback runs even though it was stopped, as a real
	// timer can when Stop races with expiry.
	first.f()
	assert.Empty(t, committed)

	clock.elapse()
	assert.Equal(t, []string{"new"}, committed)
}

func TestDebouncer_FlushAndStop(t *testing.T) {
	clock := &fakeClock{}
	var committed []string
	d := NewDebouncer(DebounceInterval, func(v string) { committed = append(committed, v) }, WithAfterFunc(clock.AfterFunc))

	assert.False(t, d.Flush())

	d.Push("now")
	v, ok := d.Pending()
	assert.True(t, ok)
	assert.Equal(t, "now", v)
	assert.True(t, d.Flush())
	clock.elapse()
	assert.Equal(t, []string{"now"}, committed)

	d.Push("dropped")
	d.Stop()
	clock.elapse()
	_, ok = d.Pending()
	assert.False(t, ok)
	assert.Equal(t, []string{"now"}, committed)
}

func TestDebouncer_RealTimerBurstTriggersOneFetch(t *testing.T) {
	lister := &pagedLister{total: 3}
	c := NewController(lister, NewState())
	done := make(chan struct{}, 4)

	d := NewDebouncer(40*time.Millisecond, func(v string) {
		if c.Update(func(s State) State { return s.WithSearchInput(v).CommitSearch() }).Fetch {
			_, _ = c.Refresh(context.Background())
		}
		done <- struct{}{}
	})

	for _, v := range []string{"b", "bu", "buy"} {
		c.Update(func(s State) State { return s.WithSearchInput(v) })
		d.Push(v)
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced commit never fired")
	}
	time.Sleep(100 * time.Millisecond)

	require.Len(t, lister.calls, 1)
	assert.Equal(t, "buy", lister.calls[0].Search)
	assert.Len(t, done, 0)
}
