package remote

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/macrolog/macrolog/internal/log"
	"github.com/macrolog/macrolog/internal/models"
)

// ChangeSource is the slice of the client the listener needs.
type ChangeSource interface {
	Changes(ctx context.Context, userID, cursor string) (*ChangePage, error)
}

// CursorStore persists the change feed position across restarts.
type CursorStore interface {
	GetSyncMeta(key string) (string, error)
	SetSyncMeta(key, value string) error
}

// Listener follows one user's remote change feed and emits deltas in
// order. Stale events are filtered: for each entity only changes with a
// remote timestamp strictly newer than the last one seen are forwarded,
// so replays and out-of-order pages cannot roll an entity backwards.
type Listener struct {
	source ChangeSource
	store  CursorStore

	// retryDelay is the pause after a failed poll before the next one.
	retryDelay time.Duration

	mu       sync.Mutex
	userID   string
	cancel   context.CancelFunc
	done     chan struct{}
	lastSeen map[entityKey]time.Time
}

type entityKey struct {
	t  models.EntityType
	id string
}

// NewListener creates a stopped listener.
func NewListener(source ChangeSource) *Listener {
	return &Listener{
		source:     source,
		retryDelay: 5 * time.Second,
	}
}

// WithCursorStore makes the listener persist its feed position, so a
// restart resumes from the last applied page instead of re-downloading
// the snapshot. The stored cursor is scoped to its user: a different
// account starts fresh.
func (l *Listener) WithCursorStore(store CursorStore) *Listener {
	l.store = store
	return l
}

// Start begins streaming the given user's changes and returns the delta
// channel. The channel is closed when the listener stops. Calling Start
// while already running stops the previous stream first, so switching
// accounts can never interleave two users' events.
func (l *Listener) Start(ctx context.Context, userID string) <-chan Delta {
	l.Stop()

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Delta, 64)
	done := make(chan struct{})

	l.mu.Lock()
	l.userID = userID
	l.cancel = cancel
	l.done = done
	l.lastSeen = make(map[entityKey]time.Time)
	l.mu.Unlock()

	go func() {
		defer close(out)
		defer close(done)
		l.run(ctx, userID, out)
	}()

	return out
}

// Stop halts the current stream, if any, and waits for its goroutine to
// drain. Stopping a stopped listener is a no-op.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	done := l.done
	l.cancel = nil
	l.done = nil
	l.userID = ""
	l.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// UserID returns the user currently being listened for, or empty.
func (l *Listener) UserID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.userID
}

// run polls the change feed until the context is cancelled. The first
// call uses an empty cursor, which the server answers with the full
// snapshot; subsequent calls resume from the returned cursor.
func (l *Listener) run(ctx context.Context, userID string, out chan<- Delta) {
	cursor := l.loadCursor(userID)
	for {
		page, err := l.source.Changes(ctx, userID, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrNotAuthenticated) {
				log.Debugf("listener stopping for %s: credentials rejected", userID)
				return
			}
			log.Debugf("change poll for %s failed, retrying: %v", userID, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.retryDelay):
			}
			continue
		}

		for _, d := range page.Deltas {
			if !l.admit(d) {
				continue
			}
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
		cursor = page.NextCursor
		l.saveCursor(userID, cursor)
	}
}

// loadCursor returns the persisted feed position for userID, or empty.
// Cursors are stored as "user|cursor" so another account's position is
// never reused.
func (l *Listener) loadCursor(userID string) string {
	if l.store == nil {
		return ""
	}
	raw, err := l.store.GetSyncMeta(models.SyncMetaLastDeltaCursor)
	if err != nil || raw == "" {
		return ""
	}
	user, cursor, ok := strings.Cut(raw, "|")
	if !ok || user != userID {
		return ""
	}
	return cursor
}

func (l *Listener) saveCursor(userID, cursor string) {
	if l.store == nil || cursor == "" {
		return
	}
	if err := l.store.SetSyncMeta(models.SyncMetaLastDeltaCursor, userID+"|"+cursor); err != nil {
		log.Debugf("persist delta cursor: %v", err)
	}
}

// admit records the delta's timestamp and reports whether it is newer
// than everything previously seen for that entity.
func (l *Listener) admit(d Delta) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := entityKey{t: d.EntityType, id: d.EntityID}
	if last, ok := l.lastSeen[key]; ok && !d.RemoteTimestamp.After(last) {
		return false
	}
	l.lastSeen[key] = d.RemoteTimestamp
	return true
}
