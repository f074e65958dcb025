package telephony

import (
	"context"
	"sync"
	"time"
)

// JoinWaiter sequences the two call legs: the orchestrator must not dial
// the PSTN leg into an empty room, so it waits here for the browser
// leg's participant-join webhook before issuing the outbound call. The
// grace period bounds the wait; at the deadline the dial proceeds anyway
// and the provider parks the PSTN leg in the conference until the
// browser arrives.
//
// Join signals are process-local. A webhook landing on a different
// instance than the one orchestrating the call degrades to the
// grace-deadline path, never to a stuck call.
type JoinWaiter struct {
	mu    sync.Mutex
	rooms map[string]*joinState
}

type joinState struct {
	ch     chan struct{}
	joined bool
}

func NewJoinWaiter() *JoinWaiter {
	return &JoinWaiter{rooms: map[string]*joinState{}}
}

func (w *JoinWaiter) state(conference string) *joinState {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.rooms[conference]
	if !ok {
		st = &joinState{ch: make(chan struct{})}
		w.rooms[conference] = st
	}
	return st
}

// Notify marks the conference as joined. Safe to call repeatedly; the
// provider may deliver the join event more than once.
func (w *JoinWaiter) Notify(conference string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.rooms[conference]
	if !ok {
		st = &joinState{ch: make(chan struct{})}
		w.rooms[conference] = st
	}
	if !st.joined {
		st.joined = true
		close(st.ch)
	}
}

// Wait blocks until the conference sees its first join, the grace period
// elapses, or ctx is done. Reports whether a join was observed.
func (w *JoinWaiter) Wait(ctx context.Context, conference string, grace time.Duration) bool {
	st := w.state(conference)

	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-st.ch:
		return true
	case <-t.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Forget drops waiter state for a conference after call setup finishes.
func (w *JoinWaiter) Forget(conference string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.rooms, conference)
}
