package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/farid/collabco/internal/observability"
	"github.com/farid/collabco/pkg/store"
)

// ProjectFinder is the single store operation the relay depends on. The
// relay never writes; persistence of edits is the request gateway's concern.
type ProjectFinder interface {
	FindProject(ctx context.Context, id string) (*store.Project, error)
}

// Config holds relay configuration.
type Config struct {
	Store         ProjectFinder
	Logger        zerolog.Logger
	NotifyOnLeave bool
}

// Relay accepts session connections and fans their events out per room.
// No inbound event ever produces an error back to the sender, and nothing
// here is fatal to the process or to other connections.
type Relay struct {
	registry      *RoomRegistry
	broadcaster   *RoomBroadcaster
	store         ProjectFinder
	logger        zerolog.Logger
	notifyOnLeave bool
	upgrader      websocket.Upgrader
	conns         atomic.Int64
}

// New creates a relay.
func New(cfg Config) *Relay {
	registry := NewRoomRegistry()
	return &Relay{
		registry:      registry,
		broadcaster:   NewRoomBroadcaster(registry, cfg.Logger),
		store:         cfg.Store,
		logger:        cfg.Logger,
		notifyOnLeave: cfg.NotifyOnLeave,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // same open-origin policy as the REST layer
			},
		},
	}
}

// Registry exposes the room registry, mainly for tests and stats.
func (rl *Relay) Registry() *RoomRegistry {
	return rl.registry
}

// HandleWebSocket upgrades an HTTP request into a session connection.
func (rl *Relay) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := rl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rl.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	clientID, _ := gonanoid.New()
	client := &Client{
		ID:          clientID,
		Conn:        conn,
		ConnectedAt: time.Now(),
		State:       StateConnected,
	}

	observability.SetActiveConnections(int(rl.conns.Add(1)))

	rl.logger.Info().
		Str("clientId", clientID).
		Str("ip", r.RemoteAddr).
		Msg("Client connected")

	go rl.handleClient(client)
}

// handleClient reads frames from one connection until it closes. Events of
// a single sender are handled to completion in arrival order, which gives
// per-sender causal delivery; no order is guaranteed across senders.
func (rl *Relay) handleClient(client *Client) {
	defer rl.disconnect(client)

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				rl.logger.Error().Err(err).Str("clientId", client.ID).Msg("WebSocket error")
			}
			return
		}
		rl.handleMessage(client, message)
	}
}

// handleMessage dispatches a single inbound frame. Malformed payloads are
// not validated; absent fields relay as zero values.
func (rl *Relay) handleMessage(client *Client, message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		rl.logger.Warn().Err(err).Str("clientId", client.ID).Msg("Unparseable frame dropped")
		return
	}

	observability.RecordEventRelayed(env.Event)

	switch env.Event {
	case EventJoinRoom:
		var p JoinPayload
		_ = json.Unmarshal(env.Data, &p)
		rl.handleJoin(client, p)
	case EventEdit:
		var p EditPayload
		_ = json.Unmarshal(env.Data, &p)
		rl.broadcaster.ToRoomExcept(p.ProjectID, client.ID, EventCodeUpdate, CodeUpdate{Code: p.Code})
	case EventCursorMove:
		var p CursorPayload
		_ = json.Unmarshal(env.Data, &p)
		rl.broadcaster.ToRoomExcept(p.ProjectID, client.ID, EventPeerCursor, PeerCursor{
			Username: p.Username,
			Position: p.Position,
		})
	case EventChat:
		var p ChatPayload
		_ = json.Unmarshal(env.Data, &p)
		// Sender included so its client confirms delivery; the receipt
		// timestamp is the single ordering reference for all members.
		rl.broadcaster.ToRoom(p.ProjectID, EventChatReceived, ChatReceived{
			Username: p.Username,
			Message:  p.Message,
			Time:     time.Now().UTC(),
		})
	case EventSuggestion:
		var p SuggestionPayload
		_ = json.Unmarshal(env.Data, &p)
		rl.broadcaster.ToRoomExcept(p.ProjectID, client.ID, EventSuggestionReceived, SuggestionReceived{
			Username:   p.Username,
			Suggestion: p.Suggestion,
			Time:       time.Now().UTC(),
		})
	default:
		rl.logger.Debug().
			Str("clientId", client.ID).
			Str("event", env.Event).
			Msg("Unknown event dropped")
	}
}

// handleJoin moves the connection into a room, bootstraps the joiner from
// the project store, and announces it to the rest of the room.
func (rl *Relay) handleJoin(client *Client, p JoinPayload) {
	// A connection is in at most one room; a join while joined is a move.
	if client.State == StateInRoom && client.ProjectID != p.ProjectID {
		rl.registry.Leave(client.ProjectID, client)
		rl.updateRoomMetrics(client.ProjectID)
	}

	client.Username = p.Username
	client.ProjectID = p.ProjectID
	client.State = StateInRoom
	rl.registry.Join(p.ProjectID, client)
	rl.updateRoomMetrics(p.ProjectID)

	// One store read, without holding any room lock. A joiner may see this
	// snapshot immediately followed by a live edit that postdates it;
	// eventual consistency is the contract here.
	start := time.Now()
	project, err := rl.store.FindProject(context.Background(), p.ProjectID)
	observability.RecordBootstrapRead(time.Since(start))
	if err != nil {
		// NotFound and transient failures both degrade to "no bootstrap
		// code"; the joiner is in the room either way.
		if !errors.Is(err, store.ErrNotFound) {
			observability.RecordStoreError("find_project")
			rl.logger.Error().Err(err).Str("projectId", p.ProjectID).Msg("Error loading project code")
		}
	} else if project.Code != "" {
		if err := client.SendEvent(EventBootstrapCode, BootstrapCode{Code: project.Code}); err != nil {
			rl.logger.Warn().Err(err).Str("clientId", client.ID).Msg("Failed to send bootstrap code")
		} else {
			rl.logger.Debug().
				Str("clientId", client.ID).
				Str("projectId", p.ProjectID).
				Msg("Sent current code to joiner")
		}
	}

	rl.broadcaster.ToRoomExcept(p.ProjectID, client.ID, EventPeerJoined, PeerJoined{
		Username:     p.Username,
		ConnectionID: client.ID,
	})

	rl.logger.Info().
		Str("clientId", client.ID).
		Str("username", p.Username).
		Str("projectId", p.ProjectID).
		Msg("Joined project room")
}

// disconnect removes the connection from its room. Departures are silent
// unless notify-on-leave is configured.
func (rl *Relay) disconnect(client *Client) {
	client.Conn.Close()

	if client.State == StateInRoom {
		rl.registry.Leave(client.ProjectID, client)
		rl.updateRoomMetrics(client.ProjectID)

		if rl.notifyOnLeave {
			rl.broadcaster.ToRoom(client.ProjectID, EventPeerLeft, PeerLeft{
				Username:     client.Username,
				ConnectionID: client.ID,
			})
		}
	}
	client.State = StateDisconnected
	observability.SetActiveConnections(int(rl.conns.Add(-1)))

	rl.logger.Info().Str("clientId", client.ID).Msg("Client disconnected")
}

func (rl *Relay) updateRoomMetrics(projectID string) {
	observability.SetRoomMembers(projectID, rl.registry.MemberCount(projectID))
	observability.SetActiveRooms(rl.registry.RoomCount())
}
