/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

// Inbound events
const (
	EventRegisterUser = "register_user"
	EventJoinRoom     = "join_room"
	EventSetReady     = "set_ready"
	EventStartGame    = "start_game"
	EventSubmitAnswer = "submit_answer"
)

// Outbound events
const (
	EventUpdatePlayers = "update_players"
	EventJoinDenied    = "join_denied"
	EventGameStarted   = "game_started"
	EventMessageBox    = "write_messageBox"
	EventUpdateScore   = "update_score"
	EventGameUpdate    = "game_update"
	EventGameOver      = "game_over"
	EventError         = "error"
)

const (
	StatusReadyForInput = "ready_for_input"

	noticeWaiting   = "Waiting for other players..."
	noticeObserve   = "Observe the light!"
	noticeGameStart = "The game has already started, unable to join."
	noticeIdle      = "This room was closed after a period of inactivity."
)

// Request is the payload of every inbound event. Fields an event does not
// use are ignored.
type Request struct {
	Username string   `json:"username"`
	Room     string   `json:"room"`
	Answer   []string `json:"answer"`
}

// Message is one outbound event.
type Message struct {
	Event string `json:"type"`
	Data  any    `json:"data"`
}

type PlayerState struct {
	Ready bool `json:"ready"`
	Score int  `json:"score"`
}

type PlayersPayload struct {
	Players map[string]PlayerState `json:"players"`
	Host    string                 `json:"host"`
}

type NoticePayload struct {
	Message string `json:"message"`
}

type RoundPayload struct {
	Level    int      `json:"level"`
	Sequence []string `json:"sequence"`
}

type GameUpdatePayload struct {
	Status   string   `json:"status"`
	Level    int      `json:"level"`
	Sequence []string `json:"sequence"`
}

type ScorePayload struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type GameOverPayload struct {
	Scores map[string]int `json:"scores"`
}

func notice(event, text string) Message {
	return Message{Event: event, Data: NoticePayload{Message: text}}
}

// ReadyForInput is sent once a sequence has finished displaying.
func ReadyForInput(level int, seq []string) Message {
	return Message{
		Event: EventGameUpdate,
		Data: GameUpdatePayload{
			Status:   StatusReadyForInput,
			Level:    level,
			Sequence: seq,
		},
	}
}

// Gateway delivers outbound messages to a single connection. Emit must not
// block on a slow client.
type Gateway interface {
	Emit(connID string, m Message)
}

// Gateways fans Emit out to several transports. Each transport ignores
// connection ids it does not own.
type Gateways []Gateway

func (g Gateways) Emit(connID string, m Message) {
	for _, gw := range g {
		gw.Emit(connID, m)
	}
}

// Observer receives a copy of every room-wide broadcast.
type Observer interface {
	Publish(room, event string, data any)
}

// envelope is an outbound message addressed either to one connection or to
// a set of players.
type envelope struct {
	conn    string
	players []string
	msg     Message
}
