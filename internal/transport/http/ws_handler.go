// Package http carries the websocket command dispatch and the small REST
// surface. It translates wire commands into room manager calls and manager
// errors into per-connection error events; it holds no game state itself.
package http

import (
	"encoding/json"
	"log"
	"net/http"

	"dilemma-arena/internal/app"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	manager  *app.RoomManager
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(manager *app.RoomManager, hub *Hub) *WSHandler {
	return &WSHandler{
		manager: manager,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Inbound commands, wire names per the client protocol.
const (
	cmdRegisterPlayer = "register_player"
	cmdCreateRoom     = "create_room"
	cmdJoinRoom       = "join_room"
	cmdStartGame      = "start_game"
	cmdAnswerDilemma  = "answer_dilema"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type registerPayload struct {
	Name string `json:"name"`
}

type createRoomPayload struct {
	PlayerName    string `json:"playerName"`
	MaxPlayers    int    `json:"maxPlayers"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"questionCount"`
}

type joinRoomPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type startGamePayload struct {
	RoomID string `json:"roomId"`
}

type answerPayload struct {
	RoomID   string `json:"roomId"`
	DilemaID string `json:"dilemaId"`
	OptionID string `json:"optionId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, assigns the connection its id, and pumps
// commands into the room manager until the socket drops. A dropped socket
// is a permanent departure; there is no reconnect-with-state.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	events := h.hub.Register(connID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeEvents(connID, conn, events)
	}()

	// New connections immediately learn which rooms are open.
	h.hub.Send(connID, app.Event{Type: app.EventRoomsUpdated, Payload: h.manager.OpenRooms()})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		h.dispatch(connID, msg)
	}

	h.manager.DisconnectPlayer(connID)
	h.hub.Unregister(connID)
	<-writerDone
}

// jsonWriter is the websocket write surface the event pump needs.
type jsonWriter interface {
	WriteJSON(v any) error
}

// writeEvents drains the connection's event queue onto the socket. The
// first write error ends the pump; once the socket is broken every
// later write would fail the same way.
func writeEvents(connID string, conn jsonWriter, events <-chan app.Event) {
	for event := range events {
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("ws write to %s: %v", connID, err)
			return
		}
	}
}

// dispatch runs one command to completion. Any failure, including a
// malformed payload, becomes an error event for this connection only;
// the game state is untouched on failure.
func (h *WSHandler) dispatch(connID string, msg inboundMessage) {
	switch msg.Type {
	case cmdRegisterPlayer:
		var p registerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(connID, "invalid register_player payload")
			return
		}
		h.manager.RegisterPlayer(connID, p.Name)

	case cmdCreateRoom:
		var p createRoomPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(connID, "invalid create_room payload")
			return
		}
		if _, err := h.manager.CreateRoom(connID, p.PlayerName, p.MaxPlayers, p.Difficulty, p.QuestionCount); err != nil {
			h.sendError(connID, err.Error())
		}

	case cmdJoinRoom:
		var p joinRoomPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(connID, "invalid join_room payload")
			return
		}
		if _, err := h.manager.JoinRoom(connID, p.RoomID, p.PlayerName); err != nil {
			h.sendError(connID, err.Error())
		}

	case cmdStartGame:
		var p startGamePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(connID, "invalid start_game payload")
			return
		}
		if err := h.manager.StartGame(connID, p.RoomID); err != nil {
			h.sendError(connID, err.Error())
		}

	case cmdAnswerDilemma:
		var p answerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(connID, "invalid answer_dilema payload")
			return
		}
		if err := h.manager.SubmitAnswer(connID, p.RoomID, p.DilemaID, p.OptionID); err != nil {
			h.sendError(connID, err.Error())
		}

	default:
		h.sendError(connID, "unsupported command type")
	}
}

func (h *WSHandler) sendError(connID, message string) {
	h.hub.Send(connID, app.Event{Type: app.EventError, Payload: errorPayload{Message: message}})
}
