package engine

import (
	"context"
	"sync"
	"time"

	"collabdoc/internal/metrics"
	"collabdoc/internal/realtime"
	"collabdoc/internal/session"
	"collabdoc/pkg/logger"
	"collabdoc/store"
)

const (
	DefaultTitle    = "Untitled document"
	DefaultDebounce = time.Second
)

// Engine owns the in-memory document content and title for one open
// document. Local edits update memory immediately and coalesce into a
// single debounced persist+broadcast; remote updates overwrite local state
// (last write wins) while preserving the caret where possible.
type Engine struct {
	documentID string
	sessions   *session.Manager
	st         store.Store
	channel    realtime.Channel
	surface    Surface
	debounce   time.Duration

	mu          sync.Mutex
	title       string
	content     string
	dirtySince  time.Time // zero when persisted state matches memory
	saving      bool
	lastSavedAt time.Time
	timer       *time.Timer // single slot; reset = cancel then schedule
	closed      bool
}

// New creates an engine for documentID. channel may be nil when the
// realtime join failed; editing and persistence still work, collaboration
// features degrade to none.
func New(documentID string, sessions *session.Manager, st store.Store, channel realtime.Channel, surface Surface, debounce time.Duration) *Engine {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Engine{
		documentID: documentID,
		sessions:   sessions,
		st:         st,
		channel:    channel,
		surface:    surface,
		debounce:   debounce,
		title:      DefaultTitle,
	}
}

// LoadInitial fetches the stored record, if any. A missing record or a
// failing store leaves the defaults in place; neither is fatal.
func (e *Engine) LoadInitial(ctx context.Context) {
	docs, err := e.st.ListDocuments(ctx, store.DocumentFilter{ID: e.documentID}, 1)
	if err != nil {
		logger.Sugar.Errorf("Failed to load document %s, starting from defaults: %v", e.documentID, err)
		return
	}
	if len(docs) == 0 {
		return
	}

	e.mu.Lock()
	e.title = docs[0].Title
	e.content = docs[0].Content
	e.mu.Unlock()

	e.surface.SetContent(docs[0].Content)
}

// OnLocalEdit records the surface's new serialized content and resets the
// debounce timer. A burst of N edits inside the quiet period produces
// exactly one flush, carrying the last content.
func (e *Engine) OnLocalEdit(newContent string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.content = newContent
	if e.dirtySince.IsZero() {
		e.dirtySince = time.Now()
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, e.flush)
}

// flush is the debounce expiry: persist then broadcast. At most one flush
// is in flight per document; a re-entrant attempt is dropped, not queued.
func (e *Engine) flush() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if e.saving {
		e.mu.Unlock()
		metrics.DocumentFlushes.WithLabelValues("skipped_busy").Inc()
		return
	}
	user := e.sessions.Current().User
	if user == nil {
		e.mu.Unlock()
		return
	}
	e.saving = true
	title, content := e.title, e.content
	e.mu.Unlock()

	now := time.Now()
	err := e.st.UpsertDocument(context.Background(), store.Document{
		ID:        e.documentID,
		Title:     title,
		Content:   content,
		OwnerID:   user.ID,
		UpdatedAt: now,
	})
	if err != nil {
		// No retry; the next edit starts the next cycle naturally.
		logger.Sugar.Errorf("Failed to save doc %s: %v", e.documentID, err)
		metrics.DocumentFlushes.WithLabelValues("persist_error").Inc()
		e.mu.Lock()
		e.saving = false
		e.mu.Unlock()
		return
	}

	if e.channel != nil {
		err = e.channel.Publish(context.Background(), realtime.ContentUpdateType,
			realtime.ContentUpdate{Content: content, UpdatedBy: user.ID})
		if err != nil {
			// Persisted but not yet visible to peers; a later broadcast
			// carries the state across.
			logger.Sugar.Errorf("Failed to broadcast update for doc %s: %v", e.documentID, err)
			metrics.DocumentFlushes.WithLabelValues("broadcast_error").Inc()
		} else {
			metrics.DocumentFlushes.WithLabelValues("ok").Inc()
		}
	}

	e.mu.Lock()
	e.saving = false
	e.lastSavedAt = now
	// Only mark clean if no edit landed while the save was in flight.
	if e.content == content {
		e.dirtySince = time.Time{}
	}
	e.mu.Unlock()
}

// OnRemoteContentUpdate applies a peer's content, suppressing self-echo and
// restoring the caret at min(previous offset, new text length). Caret
// restoration is best-effort.
func (e *Engine) OnRemoteContentUpdate(msg realtime.Message) {
	var upd realtime.ContentUpdate
	if err := realtime.DecodePayload(msg, &upd); err != nil {
		logger.Sugar.Warnf("Skipping malformed content update on doc %s: %v", e.documentID, err)
		return
	}
	if e.isSelf(msg.SenderID) || e.isSelf(upd.UpdatedBy) {
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.content = upd.Content
	e.mu.Unlock()

	caret := e.surface.CaretOffset()
	e.surface.SetContent(upd.Content)

	if n := len([]rune(e.surface.PlainText())); caret > n {
		caret = n
	}
	if err := e.surface.SetCaretOffset(caret); err != nil {
		// The surface's internal structure rejected the offset; abandon
		// silently rather than corrupt the selection.
		return
	}
}

// SetTitle applies a title keystroke optimistically to local state only.
func (e *Engine) SetTitle(newTitle string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.title = newTitle
}

// CommitTitle persists and broadcasts the current title. Title commits are
// explicit (blur or confirm key), never debounced.
func (e *Engine) CommitTitle(ctx context.Context) error {
	user := e.sessions.Current().User
	if user == nil {
		return nil
	}

	e.mu.Lock()
	title, content := e.title, e.content
	e.mu.Unlock()

	err := e.st.UpsertDocument(ctx, store.Document{
		ID:        e.documentID,
		Title:     title,
		Content:   content,
		OwnerID:   user.ID,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to save title for doc %s: %v", e.documentID, err)
		return err
	}

	if e.channel != nil {
		err = e.channel.Publish(ctx, realtime.TitleUpdateType,
			realtime.TitleUpdate{Title: title, UpdatedBy: user.ID})
		if err != nil {
			logger.Sugar.Errorf("Failed to broadcast title for doc %s: %v", e.documentID, err)
		}
	}
	return nil
}

// OnRemoteTitleUpdate overwrites the local title with a peer's committed
// value.
func (e *Engine) OnRemoteTitleUpdate(msg realtime.Message) {
	var upd realtime.TitleUpdate
	if err := realtime.DecodePayload(msg, &upd); err != nil {
		logger.Sugar.Warnf("Skipping malformed title update on doc %s: %v", e.documentID, err)
		return
	}
	if e.isSelf(msg.SenderID) || e.isSelf(upd.UpdatedBy) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.title = upd.Title
}

func (e *Engine) isSelf(userID string) bool {
	if userID == "" {
		return false
	}
	user := e.sessions.Current().User
	return user != nil && user.ID == userID
}

// Close stops the debounce timer and drops any further deliveries. An
// already-initiated store call runs to completion into the void.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// Read accessors for the view layer. Nothing outside the engine mutates
// this state.

func (e *Engine) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.title
}

func (e *Engine) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

func (e *Engine) IsSaving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

func (e *Engine) LastSavedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSavedAt
}

func (e *Engine) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.dirtySince.IsZero()
}
