package relay

import (
	"github.com/rs/zerolog"

	"github.com/farid/collabco/internal/observability"
)

// RoomBroadcaster fans events out to a room's members. Each event is
// marshaled once so every recipient sees byte-identical payloads (a chat's
// receipt timestamp is shared across all deliveries).
type RoomBroadcaster struct {
	registry *RoomRegistry
	logger   zerolog.Logger
}

// NewRoomBroadcaster creates a broadcaster over the given registry.
func NewRoomBroadcaster(registry *RoomRegistry, logger zerolog.Logger) *RoomBroadcaster {
	return &RoomBroadcaster{
		registry: registry,
		logger:   logger,
	}
}

// ToRoom sends an event to every member of a room, sender included.
func (b *RoomBroadcaster) ToRoom(projectID, event string, data interface{}) {
	b.deliver(b.registry.Members(projectID), projectID, event, data)
}

// ToRoomExcept sends an event to every member of a room except excludeID.
func (b *RoomBroadcaster) ToRoomExcept(projectID, excludeID, event string, data interface{}) {
	b.deliver(b.registry.MembersExcept(projectID, excludeID), projectID, event, data)
}

func (b *RoomBroadcaster) deliver(members []*Client, projectID, event string, data interface{}) {
	if len(members) == 0 {
		return
	}

	frame, err := marshalEnvelope(event, data)
	if err != nil {
		b.logger.Error().
			Err(err).
			Str("event", event).
			Str("projectId", projectID).
			Msg("Failed to marshal event")
		return
	}

	for _, client := range members {
		if err := client.Send(frame); err != nil {
			// A failed write means the connection is on its way out; its
			// own read loop handles removal.
			observability.RecordBroadcastFailure()
			b.logger.Warn().
				Err(err).
				Str("clientId", client.ID).
				Str("event", event).
				Str("projectId", projectID).
				Msg("Failed to deliver event")
		}
	}
}
