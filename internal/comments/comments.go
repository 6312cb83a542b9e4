package comments

import (
	"context"
	"errors"
	"sync"
	"time"

	"collabdoc/internal/realtime"
	"collabdoc/internal/session"
	"collabdoc/pkg/logger"
	"collabdoc/store"
)

var (
	ErrEmptySelection = errors.New("comment requires a non-empty text selection")
	ErrNoIdentity     = errors.New("comment requires an authenticated identity")
)

// Service creates, persists, broadcasts and lists comments anchored to
// plain-text character ranges. Anchors are captured at creation time and
// never rebased afterwards.
type Service struct {
	documentID string
	sessions   *session.Manager
	st         store.Store
	channel    realtime.Channel

	mu   sync.Mutex
	list []store.Comment // most recent first
	seen map[string]bool
}

func NewService(documentID string, sessions *session.Manager, st store.Store, channel realtime.Channel) *Service {
	return &Service{
		documentID: documentID,
		sessions:   sessions,
		st:         st,
		channel:    channel,
		seen:       make(map[string]bool),
	}
}

// Load fetches the stored comments, newest first. A failing store leaves
// the list empty and the service usable.
func (s *Service) Load(ctx context.Context) {
	comments, err := s.st.ListComments(ctx, s.documentID)
	if err != nil {
		logger.Sugar.Errorf("Failed to load comments for doc %s: %v", s.documentID, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = comments
	s.seen = make(map[string]bool, len(comments))
	for _, c := range comments {
		s.seen[c.ID] = true
	}
}

// Create anchors a comment to the current selection, persists it, prepends
// it locally and broadcasts the full record so receivers need no lookup.
func (s *Service) Create(ctx context.Context, selectionStart, selectionEnd int, body string) (*store.Comment, error) {
	user := s.sessions.Current().User
	if user == nil {
		return nil, ErrNoIdentity
	}
	if selectionStart < 0 || selectionEnd <= selectionStart {
		return nil, ErrEmptySelection
	}

	comment := store.Comment{
		ID:          store.NewID(),
		DocumentID:  s.documentID,
		AuthorID:    user.ID,
		AuthorName:  user.DisplayName,
		Body:        body,
		AnchorStart: selectionStart,
		AnchorEnd:   selectionEnd,
		CreatedAt:   time.Now(),
	}

	if err := s.st.CreateComment(ctx, comment); err != nil {
		logger.Sugar.Errorf("Failed to persist comment on doc %s: %v", s.documentID, err)
		return nil, err
	}

	s.mu.Lock()
	s.list = append([]store.Comment{comment}, s.list...)
	s.seen[comment.ID] = true
	s.mu.Unlock()

	if s.channel != nil {
		err := s.channel.Publish(ctx, realtime.CommentAddedType, realtime.CommentAdded{Comment: comment})
		if err != nil {
			logger.Sugar.Errorf("Failed to broadcast comment %s: %v", comment.ID, err)
		}
	}
	return &comment, nil
}

// OnRemoteCommentAdded prepends a received comment. The transport may echo
// our own publish back; dedup by id keeps that harmless.
func (s *Service) OnRemoteCommentAdded(msg realtime.Message) {
	var added realtime.CommentAdded
	if err := realtime.DecodePayload(msg, &added); err != nil {
		logger.Sugar.Warnf("Skipping malformed comment on doc %s: %v", s.documentID, err)
		return
	}
	if added.Comment.ID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[added.Comment.ID] {
		return
	}
	s.list = append([]store.Comment{added.Comment}, s.list...)
	s.seen[added.Comment.ID] = true
}

// List returns the comments in descending creation order.
func (s *Service) List() []store.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Comment, len(s.list))
	copy(out, s.list)
	return out
}

// Resolve flips a comment's resolved flag locally and in the store.
func (s *Service) Resolve(ctx context.Context, commentID string) error {
	if err := s.st.ResolveComment(ctx, commentID); err != nil {
		logger.Sugar.Errorf("Failed to resolve comment %s: %v", commentID, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID == commentID {
			s.list[i].Resolved = !s.list[i].Resolved
			break
		}
	}
	return nil
}
