// Package relay implements the collaborative session core: per-project
// rooms of live websocket connections and the event fan-out between them.
package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Inbound event names, one websocket channel multiplexed by event.
const (
	EventJoinRoom   = "join-room"
	EventEdit       = "edit"
	EventCursorMove = "cursor-move"
	EventChat       = "chat"
	EventSuggestion = "suggestion"
)

// Outbound event names.
const (
	EventBootstrapCode      = "bootstrap-code"
	EventPeerJoined         = "peer-joined"
	EventCodeUpdate         = "code-update"
	EventPeerCursor         = "peer-cursor"
	EventChatReceived       = "chat-received"
	EventSuggestionReceived = "suggestion-received"
	EventPeerLeft           = "peer-left"
)

// Envelope frames every message on the session channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// JoinPayload is the body of a join-room event.
type JoinPayload struct {
	ProjectID string `json:"projectId"`
	Username  string `json:"username"`
}

// EditPayload is the body of an edit event.
type EditPayload struct {
	ProjectID string `json:"projectId"`
	Code      string `json:"code"`
}

// CursorPayload is the body of a cursor-move event. Position is relayed
// opaquely; the server attaches no meaning to it.
type CursorPayload struct {
	ProjectID string          `json:"projectId"`
	Username  string          `json:"username"`
	Position  json.RawMessage `json:"position"`
}

// ChatPayload is the body of a chat event.
type ChatPayload struct {
	ProjectID string `json:"projectId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
}

// SuggestionPayload is the body of a suggestion event.
type SuggestionPayload struct {
	ProjectID  string `json:"projectId"`
	Username   string `json:"username"`
	Suggestion string `json:"suggestion"`
}

// BootstrapCode is sent point-to-point to a joiner when the project has
// stored code.
type BootstrapCode struct {
	Code string `json:"code"`
}

// PeerJoined announces a new room member to everyone already present.
type PeerJoined struct {
	Username     string `json:"username"`
	ConnectionID string `json:"connectionId"`
}

// CodeUpdate carries a relayed edit.
type CodeUpdate struct {
	Code string `json:"code"`
}

// PeerCursor carries a relayed cursor position.
type PeerCursor struct {
	Username string          `json:"username"`
	Position json.RawMessage `json:"position"`
}

// ChatReceived carries a relayed chat message. Time is the relay's receipt
// timestamp, not the client's clock.
type ChatReceived struct {
	Username string    `json:"username"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// SuggestionReceived carries a relayed suggestion with receipt timestamp.
type SuggestionReceived struct {
	Username   string    `json:"username"`
	Suggestion string    `json:"suggestion"`
	Time       time.Time `json:"time"`
}

// PeerLeft announces a departure. Only emitted when notify-on-leave is
// configured; the default contract is silent departure.
type PeerLeft struct {
	Username     string `json:"username"`
	ConnectionID string `json:"connectionId"`
}

// ClientState represents the protocol state of one connection.
type ClientState int

const (
	StateConnected ClientState = iota
	StateInRoom
	StateDisconnected
)

// Client represents one live websocket connection.
type Client struct {
	ID          string
	Conn        *websocket.Conn
	ConnectedAt time.Time

	// Set by the join handler; read only from the connection's own
	// event loop thereafter.
	Username  string
	ProjectID string
	State     ClientState

	// Serializes writes; gorilla permits a single concurrent writer.
	writeMu sync.Mutex
}

// Send writes a pre-marshaled frame to the client.
func (c *Client) Send(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, frame)
}

// SendEvent marshals an envelope for a single recipient and writes it.
func (c *Client) SendEvent(event string, data interface{}) error {
	frame, err := marshalEnvelope(event, data)
	if err != nil {
		return err
	}
	return c.Send(frame)
}

func marshalEnvelope(event string, data interface{}) ([]byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: body})
}
