/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "errors"

var (
	// ErrInvalidInput means an inbound event was malformed or missing a
	// required field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRoomUnavailable means the room's game is already running.
	ErrRoomUnavailable = errors.New("room unavailable")

	// ErrPermissionDenied means someone other than the host tried to start.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrStaleReference means the event names a room or player that no
	// longer exists, or arrived outside the phase that accepts it.
	ErrStaleReference = errors.New("stale reference")

	errRoomClosed = errors.New("room closed")
)
