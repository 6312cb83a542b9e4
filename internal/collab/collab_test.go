package collab

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"collabdoc/internal/realtime"
	"collabdoc/internal/session"
	"collabdoc/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	mu      sync.Mutex
	content string
	caret   int
}

func (f *fakeSurface) Content() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content
}
func (f *fakeSurface) SetContent(c string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content = c
}
func (f *fakeSurface) PlainText() string   { return f.Content() }
func (f *fakeSurface) CaretOffset() int    { return f.caret }
func (f *fakeSurface) SetCaretOffset(o int) error {
	f.caret = o
	return nil
}

type fakeStore struct {
	mu        sync.Mutex
	docs      []store.Document
	comments  []store.Comment
	listCalls int
	upserts   []store.Document
}

func (f *fakeStore) ListDocuments(ctx context.Context, filter store.DocumentFilter, limit int) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.docs, nil
}
func (f *fakeStore) UpsertDocument(ctx context.Context, doc store.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, doc)
	return nil
}
func (f *fakeStore) ListComments(ctx context.Context, documentID string) ([]store.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comments, nil
}
func (f *fakeStore) CreateComment(ctx context.Context, c store.Comment) error { return nil }
func (f *fakeStore) ResolveComment(ctx context.Context, id string) error      { return nil }

// scriptedChannel records handlers so tests can inject deliveries.
type scriptedChannel struct {
	mu           sync.Mutex
	msgHandler   realtime.MessageHandler
	presHandler  realtime.PresenceHandler
	subscribed   bool
	subscribeErr error
	closed       bool
	published    []realtime.Message
}

func (c *scriptedChannel) Subscribe(ctx context.Context, id store.Identity, meta realtime.PresenceMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribeErr != nil {
		return c.subscribeErr
	}
	c.subscribed = true
	return nil
}
func (c *scriptedChannel) OnMessage(h realtime.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgHandler = h
}
func (c *scriptedChannel) OnPresence(h realtime.PresenceHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presHandler = h
}
func (c *scriptedChannel) Publish(ctx context.Context, msgType string, payload interface{}) error {
	msg, err := realtime.Encode(msgType, "", "", payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, msg)
	return nil
}
func (c *scriptedChannel) UpdateCursor(ctx context.Context, offset int) error { return nil }
func (c *scriptedChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *scriptedChannel) deliver(msg realtime.Message) {
	c.mu.Lock()
	h := c.msgHandler
	c.mu.Unlock()
	if h != nil {
		h(msg)
	}
}

func (c *scriptedChannel) deliverPresence(roster []realtime.RosterEntry) {
	c.mu.Lock()
	h := c.presHandler
	c.mu.Unlock()
	if h != nil {
		h(roster)
	}
}

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub, "name": "User " + sub, "exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return signed
}

func TestSessionInertUntilIdentity(t *testing.T) {
	st := &fakeStore{docs: []store.Document{{ID: "doc-1", Title: "Stored", Content: "<p>s</p>"}}}
	ch := &scriptedChannel{}
	provider := session.NewTokenProvider("secret", nil)
	mgr := session.NewManager(provider)

	s := Open("doc-1", mgr, st, &fakeSurface{}, func(string) realtime.Channel { return ch }, time.Second)
	defer s.Close()

	// Still loading: nothing initialized, nothing touched.
	assert.Nil(t, s.Engine())
	assert.Zero(t, st.listCalls)
	assert.False(t, ch.subscribed)

	require.NoError(t, provider.SetToken(signedToken(t, "user-1")))

	// The identity transition triggers the one-time init chain: document
	// load, channel join, comment load.
	require.NotNil(t, s.Engine())
	assert.Equal(t, "Stored", s.Engine().Title())
	assert.True(t, ch.subscribed)
	require.NotNil(t, s.Comments())

	// A repeat identity transition must not re-initialize.
	calls := st.listCalls
	provider.Clear()
	require.NoError(t, provider.SetToken(signedToken(t, "user-1")))
	assert.Equal(t, calls, st.listCalls)
}

func TestSessionDispatchRoutesByType(t *testing.T) {
	st := &fakeStore{}
	ch := &scriptedChannel{}
	surface := &fakeSurface{}
	mgr := session.NewManager(session.NewStaticProvider(&store.Identity{ID: "me"}))

	s := Open("doc-1", mgr, st, surface, func(string) realtime.Channel { return ch }, time.Second)
	defer s.Close()
	require.NotNil(t, s.Engine())

	contentMsg, _ := realtime.Encode(realtime.ContentUpdateType, "doc-1", "peer",
		realtime.ContentUpdate{Content: "<p>from peer</p>", UpdatedBy: "peer"})
	ch.deliver(contentMsg)
	assert.Equal(t, "<p>from peer</p>", s.Engine().Content())
	assert.Equal(t, "<p>from peer</p>", surface.Content())

	titleMsg, _ := realtime.Encode(realtime.TitleUpdateType, "doc-1", "peer",
		realtime.TitleUpdate{Title: "Peer title", UpdatedBy: "peer"})
	ch.deliver(titleMsg)
	assert.Equal(t, "Peer title", s.Engine().Title())

	commentMsg, _ := realtime.Encode(realtime.CommentAddedType, "doc-1", "peer",
		realtime.CommentAdded{Comment: store.Comment{ID: "c1", Body: "hey"}})
	ch.deliver(commentMsg)
	require.Len(t, s.Comments().List(), 1)

	ch.deliverPresence([]realtime.RosterEntry{
		{UserID: "me"}, {UserID: "peer", Metadata: realtime.PresenceMeta{DisplayName: "Peer"}},
	})
	peers := s.Peers()
	require.Len(t, peers, 1)
	assert.Equal(t, "peer", peers[0].UserID)

	// Unknown types are skipped, not crashed on.
	ch.deliver(realtime.Message{Type: "garbage", SenderID: "peer", Payload: []byte("{}")})
}

func TestSessionCloseStopsRouting(t *testing.T) {
	ch := &scriptedChannel{}
	mgr := session.NewManager(session.NewStaticProvider(&store.Identity{ID: "me"}))

	s := Open("doc-1", mgr, &fakeStore{}, &fakeSurface{}, func(string) realtime.Channel { return ch }, time.Second)
	require.NotNil(t, s.Engine())

	s.Close()
	assert.True(t, ch.closed)

	msg, _ := realtime.Encode(realtime.ContentUpdateType, "doc-1", "peer",
		realtime.ContentUpdate{Content: "<p>late</p>", UpdatedBy: "peer"})
	ch.deliver(msg)
	assert.Equal(t, "", s.Engine().Content(), "deliveries after teardown are dropped")
}

func TestSessionDegradesWhenChannelJoinFails(t *testing.T) {
	st := &fakeStore{docs: []store.Document{{ID: "doc-1", Title: "Stored", Content: "<p>s</p>"}}}
	ch := &scriptedChannel{subscribeErr: errors.New("transport down")}
	mgr := session.NewManager(session.NewStaticProvider(&store.Identity{ID: "me"}))

	s := Open("doc-1", mgr, st, &fakeSurface{}, func(string) realtime.Channel { return ch }, 10*time.Millisecond)
	defer s.Close()

	// Core editing remains usable without realtime collaboration.
	require.NotNil(t, s.Engine())
	assert.Equal(t, "Stored", s.Engine().Title())

	s.Engine().OnLocalEdit("<p>typed offline</p>")
	require.Eventually(t, func() bool {
		st.mu.Lock()
		defer st.mu.Unlock()
		return len(st.upserts) == 1
	}, time.Second, 10*time.Millisecond)
}
