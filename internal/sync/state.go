package sync

import (
	"sync"
	"time"
)

// State is the orchestrator's externally visible phase.
type State string

const (
	// StateIdle means no user is signed in and nothing runs.
	StateIdle State = "idle"

	// StateListening means the remote feed is being followed and the
	// outbox is drained as operations arrive.
	StateListening State = "listening"

	// StateSyncing means a push or pull pass is actively running.
	StateSyncing State = "syncing"

	// StateOffline means the network is unreachable; local writes keep
	// queueing and push resumes when connectivity returns.
	StateOffline State = "offline"

	// StateError means the last pass failed for a non-network reason.
	StateError State = "error"
)

// SessionState is a snapshot of the sync session published to
// subscribers on every transition.
type SessionState struct {
	State        State
	QueueDepth   int
	LastSyncTime time.Time
	Listening    bool
	ErrorMessage string
}

// stateBroadcaster fans SessionState snapshots out to subscribers.
// Sends never block: a subscriber that is not draining its channel
// misses intermediate snapshots but always gets the latest one next.
type stateBroadcaster struct {
	mu      sync.Mutex
	current SessionState
	subs    map[chan SessionState]struct{}
}

func newStateBroadcaster() *stateBroadcaster {
	return &stateBroadcaster{
		current: SessionState{State: StateIdle},
		subs:    make(map[chan SessionState]struct{}),
	}
}

// Current returns the latest snapshot.
func (b *stateBroadcaster) Current() SessionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Subscribe registers a new subscriber and immediately delivers the
// current snapshot on the returned channel.
func (b *stateBroadcaster) Subscribe() chan SessionState {
	ch := make(chan SessionState, 8)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	ch <- b.current
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *stateBroadcaster) Unsubscribe(ch chan SessionState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// publish applies fn to the current snapshot and delivers the result
// to every subscriber.
func (b *stateBroadcaster) publish(fn func(*SessionState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.current)
	for ch := range b.subs {
		select {
		case ch <- b.current:
		default:
			// Drop for slow subscribers; they catch up on the next send.
		}
	}
}
