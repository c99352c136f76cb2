package relay

import (
	"sync"
)

// RoomRegistry tracks, per project, the set of live participants. Rooms are
// created on first join and vanish when their last member leaves; an empty
// room and a room that never existed are indistinguishable.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client // projectID -> clientID -> client
}

// NewRoomRegistry creates an empty registry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]map[string]*Client),
	}
}

// Join adds a client to the room for projectID, creating the room if
// absent. Project existence is not validated here.
func (r *RoomRegistry) Join(projectID string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[projectID]
	if !ok {
		room = make(map[string]*Client)
		r.rooms[projectID] = room
	}
	room[client.ID] = client
}

// Leave removes a client from the room for projectID, deleting the room
// once empty.
func (r *RoomRegistry) Leave(projectID string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[projectID]
	if !ok {
		return
	}
	delete(room, client.ID)
	if len(room) == 0 {
		delete(r.rooms, projectID)
	}
}

// Members returns all clients in a room.
func (r *RoomRegistry) Members(projectID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[projectID]
	members := make([]*Client, 0, len(room))
	for _, c := range room {
		members = append(members, c)
	}
	return members
}

// MembersExcept returns all clients in a room other than excludeID.
func (r *RoomRegistry) MembersExcept(projectID, excludeID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[projectID]
	members := make([]*Client, 0, len(room))
	for id, c := range room {
		if id == excludeID {
			continue
		}
		members = append(members, c)
	}
	return members
}

// MemberCount returns how many clients are in a room.
func (r *RoomRegistry) MemberCount(projectID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[projectID])
}

// RoomCount returns the number of non-empty rooms.
func (r *RoomRegistry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
