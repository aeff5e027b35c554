// Package sync coordinates the bidirectional flow between the local
// store and the remote document store: draining the durable outbox,
// applying remote deltas, and exposing session state to the UI.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/macrolog/macrolog/internal/db"
	"github.com/macrolog/macrolog/internal/log"
	"github.com/macrolog/macrolog/internal/models"
	"github.com/macrolog/macrolog/internal/remote"
)

// RemoteStore is the slice of the remote client the orchestrator needs.
type RemoteStore interface {
	PutDocument(ctx context.Context, userID string, t models.EntityType, id string, payload json.RawMessage) error
	DeleteDocument(ctx context.Context, userID string, t models.EntityType, id string) error
	ListCollection(ctx context.Context, userID string, t models.EntityType) ([]remote.Document, error)
}

// Config holds orchestrator tuning knobs.
type Config struct {
	// BatchSize bounds how many outbox operations one pass claims.
	BatchSize int

	// OpTimeout bounds each individual remote write.
	OpTimeout time.Duration

	// PushInterval is how often the background loop checks the outbox
	// while listening.
	PushInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:    25,
		OpTimeout:    20 * time.Second,
		PushInterval: 15 * time.Second,
	}
}

// Orchestrator owns the sync session lifecycle. All public methods are
// safe for concurrent use.
type Orchestrator struct {
	store    *db.DB
	remote   RemoteStore
	listener *remote.Listener
	cfg      Config
	states   *stateBroadcaster

	mu      gosync.Mutex
	userID  string
	online  bool
	cancel  context.CancelFunc
	wg      gosync.WaitGroup
	wakeCh  chan struct{}
	syncMu  gosync.Mutex // serializes push/pull passes
	running bool

	// authRejected gates the background push loop after the remote
	// store rejects the session's credentials. Retrying on a timer
	// cannot succeed until the token changes, so the loop stays quiet
	// until the identity is set again or a manual sync clears it.
	authRejected bool
}

// New creates a stopped orchestrator.
func New(store *db.DB, remoteStore RemoteStore, listener *remote.Listener, cfg Config) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultConfig().OpTimeout
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = DefaultConfig().PushInterval
	}
	return &Orchestrator{
		store:    store,
		remote:   remoteStore,
		listener: listener,
		cfg:      cfg,
		states:   newStateBroadcaster(),
		online:   true,
	}
}

// State returns the current session snapshot.
func (o *Orchestrator) State() SessionState {
	return o.states.Current()
}

// Subscribe returns a channel of session snapshots, starting with the
// current one. Callers must Unsubscribe when done.
func (o *Orchestrator) Subscribe() chan SessionState {
	return o.states.Subscribe()
}

// Unsubscribe releases a subscription channel.
func (o *Orchestrator) Unsubscribe(ch chan SessionState) {
	o.states.Unsubscribe(ch)
}

// SetUser records the signed-in account without starting the
// background session. One-shot commands use this before ForceSyncNow
// or DownloadAll.
func (o *Orchestrator) SetUser(userID string) {
	o.mu.Lock()
	o.userID = userID
	o.authRejected = false
	o.mu.Unlock()
}

// StartListening begins a sync session for the given user: the remote
// change feed is followed and the outbox drains in the background.
// Calling it again for the same user is a no-op; calling it for a
// different user restarts the session under the new identity.
func (o *Orchestrator) StartListening(ctx context.Context, userID string) {
	o.mu.Lock()
	if o.running && o.userID == userID {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	// Different user or not running: tear down whatever is active.
	o.StopListening()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	o.mu.Lock()
	o.userID = userID
	o.authRejected = false
	o.cancel = cancel
	o.wakeCh = make(chan struct{}, 1)
	o.running = true
	o.mu.Unlock()

	deltas := o.listener.Start(runCtx, userID)

	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		o.pushLoop(runCtx, userID)
	}()
	go func() {
		defer o.wg.Done()
		o.applyLoop(runCtx, deltas)
	}()

	o.publishState(StateListening, "")
	o.states.publish(func(s *SessionState) { s.Listening = true })
}

// StopListening ends the current session, if any, and waits for the
// background loops to drain. Stopping a stopped orchestrator is a no-op.
func (o *Orchestrator) StopListening() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.cancel = nil
	o.running = false
	o.mu.Unlock()

	o.listener.Stop()
	if cancel != nil {
		cancel()
	}
	o.wg.Wait()

	o.states.publish(func(s *SessionState) {
		s.State = StateIdle
		s.Listening = false
	})
}

// NotifyLocalChange wakes the push loop so a fresh local mutation does
// not wait out the full push interval.
func (o *Orchestrator) NotifyLocalChange() {
	o.mu.Lock()
	wake := o.wakeCh
	o.mu.Unlock()
	if wake == nil {
		return
	}
	select {
	case wake <- struct{}{}:
	default:
	}
}

// SetOnline records a connectivity change. Going offline suspends
// pushing; local mutations keep queueing. Coming back online triggers
// an immediate push pass.
func (o *Orchestrator) SetOnline(online bool) {
	o.mu.Lock()
	was := o.online
	o.online = online
	running := o.running
	o.mu.Unlock()

	if !online {
		if running {
			o.publishState(StateOffline, "")
		}
		return
	}
	if !was && running {
		o.publishState(StateListening, "")
		o.NotifyLocalChange()
	}
}

// ForceSyncNow runs one full push pass immediately and reports how it
// went. A network failure returns ErrNetworkUnavailable and leaves the
// queue intact. Non-network per-operation failures are recorded with
// backoff and the pass continues; if any operations remain afterwards
// the result is a QueueError carrying the count.
func (o *Orchestrator) ForceSyncNow(ctx context.Context) error {
	o.mu.Lock()
	userID := o.userID
	online := o.online
	o.mu.Unlock()

	if userID == "" {
		return ErrNotAuthenticated
	}
	if !online {
		return fmt.Errorf("%w: offline", ErrNetworkUnavailable)
	}

	o.publishState(StateSyncing, "")
	err := o.pushPass(ctx, userID)

	// A manual sync is the retry path for a rejected session: its result
	// is the freshest evidence either way.
	o.mu.Lock()
	o.authRejected = errors.Is(err, ErrNotAuthenticated)
	o.mu.Unlock()

	o.finishPass(err)
	return err
}

// DownloadAll pulls the full remote snapshot for the signed-in user and
// merges every document into the local store.
func (o *Orchestrator) DownloadAll(ctx context.Context) error {
	o.mu.Lock()
	userID := o.userID
	o.mu.Unlock()
	if userID == "" {
		return ErrNotAuthenticated
	}

	o.publishState(StateSyncing, "")

	o.syncMu.Lock()
	defer o.syncMu.Unlock()

	for _, t := range models.EntityTypes() {
		docs, err := o.remote.ListCollection(ctx, userID, t)
		if err != nil {
			o.finishPass(err)
			return fmt.Errorf("download %s: %w", t, err)
		}
		for _, doc := range docs {
			d := remote.Delta{
				EntityType:      t,
				EntityID:        doc.EntityID,
				Payload:         doc.Payload,
				RemoteTimestamp: doc.UpdatedAt,
			}
			if err := o.applyDelta(d); err != nil {
				o.finishPass(err)
				return fmt.Errorf("apply %s %s: %w", t, doc.EntityID, err)
			}
		}
	}

	if err := o.store.SetSyncMeta(models.SyncMetaLastFullSync, time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Debugf("record full sync time: %v", err)
	}
	o.finishPass(nil)
	return nil
}

// SignOut ends the session and resets sync bookkeeping. Local data is
// preserved in full; only sync statuses and cursors are cleared, so the
// next sign-in re-evaluates what needs pushing from scratch.
func (o *Orchestrator) SignOut() error {
	o.StopListening()

	o.mu.Lock()
	o.userID = ""
	o.authRejected = false
	o.mu.Unlock()

	if err := o.store.ResetSyncStatus(); err != nil {
		return fmt.Errorf("reset sync status: %w", err)
	}
	if err := o.store.ClearOutbox(); err != nil {
		return fmt.Errorf("clear outbox: %w", err)
	}
	if err := o.store.SetSyncMeta(models.SyncMetaLastDeltaCursor, ""); err != nil {
		return fmt.Errorf("clear delta cursor: %w", err)
	}
	if err := o.store.SetSyncMeta(models.SyncMetaLastFullSync, ""); err != nil {
		return fmt.Errorf("clear full sync time: %w", err)
	}

	o.states.publish(func(s *SessionState) {
		*s = SessionState{State: StateIdle}
	})
	return nil
}

// pushLoop drains the outbox while the session lives: on a timer, and
// immediately when woken by a local change.
func (o *Orchestrator) pushLoop(ctx context.Context, userID string) {
	o.mu.Lock()
	wake := o.wakeCh
	o.mu.Unlock()

	ticker := time.NewTicker(o.cfg.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-wake:
		}

		o.mu.Lock()
		online := o.online
		gated := o.authRejected
		o.mu.Unlock()
		if !online || gated {
			continue
		}

		err := o.pushPass(ctx, userID)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrNotAuthenticated) {
			// Credentials were rejected mid-session. An automatic retry
			// would just be rejected again, so stop the timer-driven
			// passes until something changes the session.
			o.mu.Lock()
			o.authRejected = true
			o.mu.Unlock()
			log.Errorf("push rejected for user %s: %v", userID, err)
		}
		o.finishPass(err)
	}
}

// pushPass claims one batch of eligible operations and sends them in
// FIFO order. Network failure aborts the pass; any other failure is
// recorded against its operation and the pass moves on.
func (o *Orchestrator) pushPass(ctx context.Context, userID string) error {
	o.syncMu.Lock()
	defer o.syncMu.Unlock()

	for {
		ops, err := o.store.PeekBatch(o.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			break
		}

		progressed := false
		for _, op := range ops {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			err := o.pushOne(ctx, userID, op)
			switch {
			case err == nil:
				progressed = true
			case errors.Is(err, ErrNetworkUnavailable):
				o.remaining()
				return err
			case errors.Is(err, ErrNotAuthenticated):
				return err
			default:
				if ferr := o.store.FailOp(op.OpID, err); ferr != nil && !errors.Is(ferr, db.ErrNotFound) {
					return ferr
				}
				log.Debugf("push %s %s failed (attempt %d): %v", op.EntityType, op.EntityID, op.AttemptCount+1, err)
			}
		}
		if !progressed {
			break
		}
	}

	if n := o.remaining(); n > 0 {
		return &QueueError{Remaining: n}
	}
	if err := o.store.SetSyncMeta(models.SyncMetaLastFullSync, time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Debugf("record sync time: %v", err)
	}
	return nil
}

// pushOne sends a single operation and acknowledges it only after the
// remote store confirms the write. A crash between confirm and ack
// replays the operation; replays are harmless because remote writes are
// keyed by entity id.
func (o *Orchestrator) pushOne(ctx context.Context, userID string, op models.Operation) error {
	opCtx, cancel := context.WithTimeout(ctx, o.cfg.OpTimeout)
	defer cancel()

	if op.Kind == models.OpDelete {
		if err := o.remote.DeleteDocument(opCtx, userID, op.EntityType, op.EntityID); err != nil {
			return err
		}
		_, err := o.store.AckOp(op.OpID, op.Version)
		return err
	}

	// The local row is the source of truth for ownership: records that
	// never got an owner belong to the migration path, not the outbox.
	e, err := o.store.FetchEntity(op.EntityType, op.EntityID)
	if errors.Is(err, db.ErrNotFound) {
		// Entity vanished locally after enqueue; nothing to send.
		_, err := o.store.AckOp(op.OpID, op.Version)
		return err
	}
	if err != nil {
		return err
	}
	if e.Owner() == nil {
		_, err := o.store.AckOp(op.OpID, op.Version)
		return err
	}

	if err := o.remote.PutDocument(opCtx, userID, op.EntityType, op.EntityID, op.Payload); err != nil {
		return err
	}
	acked, err := o.store.AckOp(op.OpID, op.Version)
	if err != nil {
		return err
	}
	if !acked {
		// A newer mutation coalesced in while this payload was in
		// flight; the row stays queued and the next pass sends it.
		return nil
	}
	if err := o.store.SetEntityStatus(op.EntityType, op.EntityID, models.SyncSynced); err != nil {
		return err
	}
	return nil
}

// applyLoop consumes remote deltas for the life of the session.
func (o *Orchestrator) applyLoop(ctx context.Context, deltas <-chan remote.Delta) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deltas:
			if !ok {
				return
			}
			if err := o.applyDelta(d); err != nil {
				log.Errorf("apply remote change %s %s: %v", d.EntityType, d.EntityID, err)
			} else {
				o.states.publish(func(s *SessionState) { s.LastSyncTime = time.Now().UTC() })
			}
		}
	}
}

// applyDelta merges one remote change into the local store with
// last-write-wins semantics. On a timestamp tie the remote copy wins,
// so every device converges on the same state regardless of which one
// evaluates the conflict. A remote win over a still-pending local
// mutation also discards that entity's queued operation.
func (o *Orchestrator) applyDelta(d remote.Delta) error {
	local, err := o.store.FetchEntity(d.EntityType, d.EntityID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return err
	}

	if local != nil && local.LastModified().After(d.RemoteTimestamp) {
		// Local copy is strictly newer; the pending push will overwrite
		// the remote side.
		return nil
	}

	if err := o.store.RemoveOpForEntity(d.EntityType, d.EntityID); err != nil {
		return err
	}

	if d.Deleted {
		return o.store.DeleteEntity(d.EntityType, d.EntityID)
	}

	e, err := models.DecodeEntity(d.EntityType, d.Payload)
	if err != nil {
		return fmt.Errorf("decode remote %s %s: %w", d.EntityType, d.EntityID, err)
	}
	e.SetStatus(models.SyncSynced)
	return o.store.SaveEntity(e)
}

// remaining publishes the current queue depth and returns it.
func (o *Orchestrator) remaining() int {
	n, err := o.store.QueueDepth()
	if err != nil {
		log.Debugf("queue depth: %v", err)
		return 0
	}
	o.states.publish(func(s *SessionState) { s.QueueDepth = n })
	return n
}

// finishPass translates a pass result into the session state.
func (o *Orchestrator) finishPass(err error) {
	switch {
	case err == nil:
		o.states.publish(func(s *SessionState) {
			s.State = StateListening
			s.ErrorMessage = ""
			s.LastSyncTime = time.Now().UTC()
			s.QueueDepth = 0
		})
	case errors.Is(err, ErrNetworkUnavailable):
		o.publishState(StateOffline, "")
	default:
		o.publishState(StateError, err.Error())
	}
}

func (o *Orchestrator) publishState(st State, msg string) {
	o.states.publish(func(s *SessionState) {
		s.State = st
		s.ErrorMessage = msg
	})
}
