package collab

import (
	"context"
	"sync"
	"time"

	"collabdoc/internal/comments"
	"collabdoc/internal/engine"
	"collabdoc/internal/presence"
	"collabdoc/internal/realtime"
	"collabdoc/internal/session"
	"collabdoc/pkg/logger"
	"collabdoc/store"
)

// ChannelFactory builds the transport channel for one document topic. A
// nil return means no realtime transport is available.
type ChannelFactory func(documentID string) realtime.Channel

// Session binds the realtime core together for one open document:
// identity -> initial load -> channel join -> message dispatch. Everything
// stays inert until the session manager reports an identity; the first
// transition to a non-nil identity triggers one-time initialization.
// Initialization never reruns: switching users requires Close and a
// fresh Open.
type Session struct {
	documentID string
	sessions   *session.Manager
	st         store.Store
	surface    engine.Surface
	newChannel ChannelFactory
	debounce   time.Duration

	mu       sync.Mutex
	engine   *engine.Engine
	tracker  *presence.Tracker
	comments *comments.Service
	channel  realtime.Channel
	started  bool
	closed   bool
	unsub    func()
}

func Open(documentID string, sessions *session.Manager, st store.Store, surface engine.Surface, newChannel ChannelFactory, debounce time.Duration) *Session {
	s := &Session{
		documentID: documentID,
		sessions:   sessions,
		st:         st,
		surface:    surface,
		newChannel: newChannel,
		debounce:   debounce,
	}
	s.unsub = sessions.Subscribe(s.onSessionState)
	return s
}

func (s *Session) onSessionState(state session.State) {
	if state.IsLoading || state.User == nil {
		return
	}

	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	user := *state.User
	s.mu.Unlock()

	s.initialize(user)
}

func (s *Session) initialize(user store.Identity) {
	ctx := context.Background()

	ch := s.newChannel(s.documentID)
	tracker := presence.NewTracker(user.ID)
	eng := engine.New(s.documentID, s.sessions, s.st, ch, s.surface, s.debounce)
	cmts := comments.NewService(s.documentID, s.sessions, s.st, ch)

	s.mu.Lock()
	s.engine = eng
	s.tracker = tracker
	s.comments = cmts
	s.channel = ch
	s.mu.Unlock()

	eng.LoadInitial(ctx)

	if ch != nil {
		ch.OnMessage(s.dispatch)
		ch.OnPresence(tracker.ApplySnapshot)
		err := ch.Subscribe(ctx, user, realtime.PresenceMeta{
			DisplayName: user.DisplayName,
			Email:       user.Email,
		})
		if err != nil {
			// Collaboration degrades to none; local editing keeps working.
			logger.Sugar.Errorf("Failed to join channel for doc %s: %v", s.documentID, err)
		}
	}

	cmts.Load(ctx)
}

// dispatch routes channel messages in delivery order, with no reordering
// or buffering.
func (s *Session) dispatch(msg realtime.Message) {
	s.mu.Lock()
	eng, cmts, closed := s.engine, s.comments, s.closed
	s.mu.Unlock()
	if closed || eng == nil {
		return
	}

	switch msg.Type {
	case realtime.ContentUpdateType:
		eng.OnRemoteContentUpdate(msg)
	case realtime.TitleUpdateType:
		eng.OnRemoteTitleUpdate(msg)
	case realtime.CommentAddedType:
		cmts.OnRemoteCommentAdded(msg)
	default:
		// Cursor traffic becomes presence metadata inside the transport;
		// anything else is skipped, not crashed on.
	}
}

// Engine exposes the content sync engine, or nil before initialization.
func (s *Session) Engine() *engine.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// Comments exposes the comment service, or nil before initialization.
func (s *Session) Comments() *comments.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments
}

// Peers lists the other collaborators currently on the document.
func (s *Session) Peers() []store.PresenceEntry {
	s.mu.Lock()
	tracker := s.tracker
	s.mu.Unlock()
	if tracker == nil {
		return nil
	}
	return tracker.Peers()
}

// SetCursorOffset publishes the local caret position into the presence
// roster.
func (s *Session) SetCursorOffset(ctx context.Context, offset int) {
	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	if ch == nil {
		return
	}
	if err := ch.UpdateCursor(ctx, offset); err != nil {
		logger.Sugar.Warnf("Failed to update cursor for doc %s: %v", s.documentID, err)
	}
}

// Close tears the session down: further channel deliveries and the
// debounce timer stop routing to torn-down state. In-flight calls run to
// completion into the void.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	eng, ch, unsub := s.engine, s.channel, s.unsub
	s.unsub = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if eng != nil {
		eng.Close()
	}
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Sugar.Warnf("Failed to close channel for doc %s: %v", s.documentID, err)
		}
	}
}
