/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "sync"

// Sessions maps transport connections to player names. A player has at most
// one live connection: registering on a new one replaces the old mapping.
type Sessions struct {
	mu      sync.RWMutex
	players map[string]string // connection -> player
	conns   map[string]string // player -> connection
}

func NewSessions() *Sessions {
	return &Sessions{
		players: make(map[string]string),
		conns:   make(map[string]string),
	}
}

// Register associates connID with player. Repeating it is a no-op.
func (s *Sessions) Register(connID, player string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.players[connID]; ok && prev != player {
		delete(s.conns, prev)
	}
	if prev, ok := s.conns[player]; ok && prev != connID {
		delete(s.players, prev)
	}

	s.players[connID] = player
	s.conns[player] = connID
}

// Resolve returns the player registered on connID.
func (s *Sessions) Resolve(connID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[connID]
	return p, ok
}

// Connection returns the live connection of player.
func (s *Sessions) Connection(player string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conns[player]
	return c, ok
}

// Unregister forgets connID and returns the player it belonged to. Room
// cleanup is the caller's job; see Coordinator.Disconnect.
func (s *Sessions) Unregister(connID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[connID]
	if !ok {
		return "", false
	}

	delete(s.players, connID)
	if s.conns[p] == connID {
		delete(s.conns, p)
	}

	return p, true
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.players)
}
