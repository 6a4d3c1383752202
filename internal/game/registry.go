/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

// Registry holds every live room. Its lock only guards the map: it is
// never held while a room's own lock is taken.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// GetOrCreate returns the room named id, creating it with host seated when
// it does not exist yet.
func (r *Registry) GetOrCreate(id, host string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[id]; ok {
		return room, false
	}

	room := newRoom(id, host)
	r.rooms[id] = room

	return room, true
}

func (r *Registry) Get(id string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]

	return room, ok
}

// Join seats player in room id, creating the room if needed. A room that
// was torn down between lookup and seating is evicted and the join retried
// against a fresh one.
func (r *Registry) Join(id, player string) (room *Room, created bool, err error) {
	for {
		room, created = r.GetOrCreate(id, player)
		if created {
			return room, true, nil
		}

		err = room.join(player)
		if errors.Is(err, errRoomClosed) {
			r.remove(room)

			continue
		}

		return room, false, err
	}
}

// Delete tears down room id. Deleting a missing room is a no-op.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	room, ok := r.rooms[id]
	delete(r.rooms, id)
	r.mu.Unlock()

	if ok {
		room.Close()
	}
}

// remove evicts room only if it is still the one registered under its id.
func (r *Registry) remove(room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room.ID] == room {
		delete(r.rooms, room.ID)
	}
}

// Rooms returns the live rooms ordered by id.
func (r *Registry) Rooms() []*Room {
	r.mu.RLock()
	out := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Room) int {
		return strings.Compare(a.ID, b.ID)
	})

	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}
