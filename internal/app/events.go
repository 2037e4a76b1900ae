package app

import "dilemma-arena/internal/domain"

// Event is one outbound message. The manager computes recipients itself;
// the Broadcaster only delivers. Delivery is fire-and-forget: the manager
// never waits for acknowledgement and never blocks on a slow client.
// Payloads are encoded on writer goroutines after the manager lock is
// released, so they must be value snapshots, never live shared state.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Broadcaster delivers events to one connection or to every connection.
type Broadcaster interface {
	Send(connID string, event Event)
	SendAll(event Event)
}

// Outbound event names. The wire protocol keeps the client's single-m
// spelling of "dilema" in event names and payload keys.
const (
	EventRoomCreated  = "room_created"
	EventRoomsUpdated = "rooms_updated"
	EventRoomUpdated  = "room_updated"
	EventGameStarted  = "game_started"
	EventNextDilemma  = "next_dilema"
	EventGameFinished = "game_finished"
	EventRoomClosed   = "room_closed"
	EventError        = "error"
)

// RoomInfo locates a round within a game; the index is 1-based for display.
type RoomInfo struct {
	CurrentDilemaIndex int `json:"currentDilemaIndex"`
	TotalDilemas       int `json:"totalDilemas"`
}

type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
}

type GameStartedPayload struct {
	Dilemma  domain.Dilemma `json:"dilema"`
	RoomInfo RoomInfo       `json:"roomInfo"`
}

type NextDilemmaPayload struct {
	Dilemma      domain.Dilemma        `json:"dilema"`
	RoomInfo     RoomInfo              `json:"roomInfo"`
	PlayerScores []domain.RankedPlayer `json:"playerScores"`
}

type GameFinishedPayload struct {
	Ranking []domain.RankedPlayer `json:"ranking"`
}

type RoomClosedPayload struct {
	Message string `json:"message"`
}
