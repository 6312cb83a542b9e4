package socket

import (
	"encoding/json"
	"sync"

	"collabdoc/internal/metrics"
	"collabdoc/internal/realtime"
	"collabdoc/pkg/logger"
)

// Hub is the transport substrate: one room per document, fan-out of typed
// messages to every room member except the sender, and a full presence
// roster snapshot to everyone on each membership or cursor change.
// Persistence is the sync engine's job; the hub never touches the store.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan realtime.Message
	Register   chan *Client
	Unregister chan *Client

	mu       sync.Mutex
	presence map[string]map[string]realtime.RosterEntry // docID -> userID -> entry
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan realtime.Message),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		presence:   make(map[string]map[string]realtime.RosterEntry),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.DocID] == nil {
				h.Rooms[client.DocID] = make(map[*Client]bool)
				h.presence[client.DocID] = make(map[string]realtime.RosterEntry)
			}
			h.Rooms[client.DocID][client] = true
			h.presence[client.DocID][client.Identity.ID] = realtime.RosterEntry{
				UserID: client.Identity.ID,
				Metadata: realtime.PresenceMeta{
					DisplayName: client.Identity.DisplayName,
					Email:       client.Identity.Email,
				},
			}
			h.mu.Unlock()

			metrics.ConnectedClients.Inc()
			h.broadcastPresence(client.DocID)

		case client := <-h.Unregister:
			h.removeClient(client)

			// Remaining members see the departed user drop out of the roster.
			if h.roomExists(client.DocID) {
				h.broadcastPresence(client.DocID)
			}

		case msg := <-h.Broadcast:
			if msg.Type == realtime.CursorType {
				h.applyCursor(msg)
				h.broadcastPresence(msg.DocumentID)
				continue
			}

			h.mu.Lock()
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				h.mu.Unlock()
				continue
			}

			// Everyone in the room except the original sender. Clients still
			// filter by sender identity themselves; the contract does not
			// promise suppression.
			clientsToSend := make([]*Client, 0, len(h.Rooms[msg.DocumentID]))
			for client := range h.Rooms[msg.DocumentID] {
				if client.Identity.ID != msg.SenderID {
					clientsToSend = append(clientsToSend, client)
				}
			}
			h.mu.Unlock()

			metrics.MessagesBroadcast.WithLabelValues(msg.Type).Inc()
			evicted := false
			for _, client := range clientsToSend {
				select {
				case client.Send <- payload:
				default:
					// A full send buffer means the client is lagging. Evict
					// it here; sending on h.Unregister from this goroutine
					// would block Run on its own channel.
					logger.Sugar.Warnf("Client %s's send buffer is full. Evicting.", client.Identity.ID)
					h.removeClient(client)
					evicted = true
				}
			}
			if evicted && h.roomExists(msg.DocumentID) {
				h.broadcastPresence(msg.DocumentID)
			}
		}
	}
}

// removeClient drops the client from its room and presence map and closes
// its send channel. Reports whether the client was still a member, so a
// readPump unregister after an eviction is a no-op.
func (h *Hub) removeClient(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	docID := client.DocID
	if _, ok := h.Rooms[docID][client]; !ok {
		return false
	}
	delete(h.Rooms[docID], client)
	delete(h.presence[docID], client.Identity.ID)
	close(client.Send)
	metrics.ConnectedClients.Dec()

	if len(h.Rooms[docID]) == 0 {
		delete(h.Rooms, docID)
		delete(h.presence, docID)
		logger.Sugar.Infof("Closed empty room: %s", docID)
	}
	return true
}

func (h *Hub) roomExists(docID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Rooms[docID] != nil
}

func (h *Hub) applyCursor(msg realtime.Message) {
	var cur realtime.CursorUpdate
	if err := realtime.DecodePayload(msg, &cur); err != nil {
		logger.Sugar.Warnf("Dropping malformed cursor update from %s: %v", msg.SenderID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.presence[msg.DocumentID]
	if !ok {
		return
	}
	entry, ok := room[msg.SenderID]
	if !ok {
		return
	}
	entry.Metadata.Cursor = cur.Offset
	room[msg.SenderID] = entry
}

// broadcastPresence sends the full roster to every member of the room,
// the joiner and the sender included. Receivers reconcile against the
// snapshot, so missed deltas cannot accumulate.
func (h *Hub) broadcastPresence(docID string) {
	var roster []realtime.RosterEntry
	var clientsToSend []*Client

	h.mu.Lock()
	if _, ok := h.presence[docID]; ok {
		roster = make([]realtime.RosterEntry, 0, len(h.presence[docID]))
		for _, entry := range h.presence[docID] {
			roster = append(roster, entry)
		}
		clientsToSend = make([]*Client, 0, len(h.Rooms[docID]))
		for client := range h.Rooms[docID] {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}

	msg, err := realtime.Encode(realtime.PresenceType, docID, "", roster)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	payload, _ := json.Marshal(msg)

	metrics.MessagesBroadcast.WithLabelValues(realtime.PresenceType).Inc()
	for _, client := range clientsToSend {
		select {
		case client.Send <- payload:
		default:
			// Leave eviction to the pumps; just note the stall.
			logger.Sugar.Warnf("Client %s's send buffer was full during presence update.", client.Identity.ID)
		}
	}
}
