/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"
	"fmt"
)

// Handler is what a transport hands inbound traffic to.
type Handler interface {
	Dispatch(connID, event string, payload []byte) error
	Disconnect(connID string)
}

var _ Handler = (*Coordinator)(nil)

// Dispatch decodes payload and routes it to the operation named by event.
// Rejections other than stale or denied events are echoed to the sender.
func (c *Coordinator) Dispatch(connID, event string, payload []byte) error {
	var req Request

	err := c.decode(payload, &req)
	if err == nil {
		err = c.route(connID, event, req)
	}

	if err != nil {
		c.logf("GAMES: Rejected %s from %s: %v", event, connID, err)

		if surfaced(err) {
			c.gateway.Emit(connID, notice(EventError, err.Error()))
		}
	}

	return err
}

func (c *Coordinator) decode(payload []byte, req *Request) error {
	if len(payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return nil
}

func (c *Coordinator) route(connID, event string, req Request) error {
	switch event {
	case EventRegisterUser:
		return c.RegisterUser(connID, req.Username)
	case EventJoinRoom:
		return c.JoinRoom(connID, req.Username, req.Room)
	case EventSetReady:
		return c.SetReady(connID, req.Username, req.Room)
	case EventStartGame:
		return c.StartGame(connID, req.Username, req.Room)
	case EventSubmitAnswer:
		return c.SubmitAnswer(connID, req.Username, req.Room, req.Answer)
	default:
		return fmt.Errorf("%w: unknown event %q", ErrInvalidInput, event)
	}
}
