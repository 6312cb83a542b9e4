package presence

import (
	"sort"
	"sync"
	"time"

	"collabdoc/internal/realtime"
	"collabdoc/store"
)

// Tracker maintains the live set of other collaborators on a document.
// Every roster snapshot from the channel replaces the whole local view
// with roster \ {self}; there is no delta handling and no staleness timer,
// so a missed delta can never leave a ghost entry behind.
type Tracker struct {
	mu     sync.RWMutex
	selfID string
	peers  map[string]store.PresenceEntry
}

func NewTracker(selfID string) *Tracker {
	return &Tracker{
		selfID: selfID,
		peers:  make(map[string]store.PresenceEntry),
	}
}

// ApplySnapshot reconciles against an authoritative full roster.
func (t *Tracker) ApplySnapshot(roster []realtime.RosterEntry) {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers = make(map[string]store.PresenceEntry, len(roster))
	for _, entry := range roster {
		if entry.UserID == t.selfID {
			continue
		}
		t.peers[entry.UserID] = store.PresenceEntry{
			UserID:       entry.UserID,
			DisplayName:  entry.Metadata.DisplayName,
			Email:        entry.Metadata.Email,
			CursorOffset: entry.Metadata.Cursor,
			LastSeen:     now,
		}
	}
}

// Peers lists the other collaborators, sorted by user id for stable
// rendering.
func (t *Tracker) Peers() []store.PresenceEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]store.PresenceEntry, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
