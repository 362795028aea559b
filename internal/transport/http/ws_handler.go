package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

// Client commands.
const (
	cmdCreateRoom   = "createRoom"
	cmdJoinRoom     = "joinRoom"
	cmdStartGame    = "startGame"
	cmdSubmitAnswer = "submitAnswer"
	cmdLeaveRoom    = "leaveRoom"
)

// Settings tunes the gateway.
type Settings struct {
	CommandsPerSecond float64
	Burst             int
	// AllowedOrigins restricts the Origin header; empty allows any origin.
	AllowedOrigins []string
}

// DefaultSettings allows 10 commands per second with bursts of 20.
func DefaultSettings() Settings {
	return Settings{CommandsPerSecond: 10, Burst: 20}
}

type WSHandler struct {
	service  *app.GameService
	hub      *Hub
	settings Settings
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(service *app.GameService, hub *Hub, settings Settings, log zerolog.Logger) *WSHandler {
	if settings.CommandsPerSecond <= 0 {
		settings.CommandsPerSecond = DefaultSettings().CommandsPerSecond
	}
	if settings.Burst <= 0 {
		settings.Burst = DefaultSettings().Burst
	}
	h := &WSHandler{
		service:  service,
		hub:      hub,
		settings: settings,
		log:      log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type createRoomPayload struct {
	Username string `json:"username"`
	QuizID   string `json:"quizId"`
}

type joinRoomPayload struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

type startGamePayload struct {
	RoomCode string `json:"roomCode"`
	QuizID   string `json:"quizId"`
}

type submitAnswerPayload struct {
	RoomCode string `json:"roomCode"`
	Selected string `json:"selected"`
	TimeMs   int64  `json:"time_ms"`
}

type leaveRoomPayload struct {
	RoomCode string `json:"roomCode"`
}

// session is the per-connection command state, owned by the read pump.
type session struct {
	client  *client
	room    string
	limiter *rate.Limiter
	log     zerolog.Logger
}

// ServeWS upgrades the request and runs the connection until it closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	c := newClient(uuid.NewString(), conn)
	s := &session{
		client:  c,
		limiter: rate.NewLimiter(rate.Limit(h.settings.CommandsPerSecond), h.settings.Burst),
		log:     h.log.With().Str("conn", c.id).Logger(),
	}
	h.hub.register(c)
	s.log.Debug().Str("remote", r.RemoteAddr).Msg("connection opened")

	go h.writePump(c)
	h.readPump(s)

	// disconnect is an implicit leave
	if s.room != "" {
		h.service.Leave(context.Background(), c.id, s.room)
	}
	h.hub.unregister(c)
	c.close()
	s.log.Debug().Msg("connection closed")
}

func (h *WSHandler) readPump(s *session) {
	conn := s.client.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warn().Err(err).Msg("ws read failed")
			}
			return
		}
		if !s.limiter.Allow() {
			h.fail(s, fmt.Errorf("%w: too many commands", domain.ErrInvalidCommand))
			continue
		}
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.fail(s, fmt.Errorf("%w: malformed message", domain.ErrInvalidCommand))
			continue
		}
		if err := h.dispatch(s, msg); err != nil {
			h.fail(s, err)
		}
	}
}

func (h *WSHandler) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(outboundMessage{Type: evt.Type, Payload: evt.Payload}); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *WSHandler) dispatch(s *session, msg inboundMessage) error {
	ctx := context.Background()
	id := s.client.id

	switch msg.Type {
	case cmdCreateRoom:
		var p createRoomPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		code, err := h.service.CreateRoom(ctx, id, p.Username, p.QuizID)
		if err != nil {
			return err
		}
		h.moveTo(ctx, s, code)
		return nil

	case cmdJoinRoom:
		var p joinRoomPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		if err := h.service.JoinRoom(ctx, id, p.RoomCode, p.Username); err != nil {
			return err
		}
		code, _ := app.NormalizeRoomCode(p.RoomCode)
		h.moveTo(ctx, s, code)
		return nil

	case cmdStartGame:
		var p startGamePayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return h.service.StartGame(ctx, id, s.roomOr(p.RoomCode), p.QuizID)

	case cmdSubmitAnswer:
		var p submitAnswerPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		h.service.SubmitAnswer(ctx, id, s.roomOr(p.RoomCode), p.Selected, p.TimeMs)
		return nil

	case cmdLeaveRoom:
		var p leaveRoomPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		code := s.roomOr(p.RoomCode)
		h.service.Leave(ctx, id, code)
		if normalized, _ := app.NormalizeRoomCode(code); normalized == s.room {
			s.room = ""
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown command %q", domain.ErrInvalidCommand, msg.Type)
	}
}

// moveTo records code as the connection's room, leaving the room it was in before.
func (h *WSHandler) moveTo(ctx context.Context, s *session, code string) {
	if s.room != "" && s.room != code {
		h.service.Leave(ctx, s.client.id, s.room)
	}
	s.room = code
}

func (h *WSHandler) fail(s *session, err error) {
	if !isClientError(err) {
		s.log.Error().Err(err).Msg("command failed")
	}
	h.hub.Send(s.client.id, domain.Event{Type: domain.EventRoomError, Payload: err.Error()})
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	if len(h.settings.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.settings.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

// roomOr falls back to the connection's current room when a command omits the code.
func (s *session) roomOr(code string) string {
	if strings.TrimSpace(code) == "" {
		return s.room
	}
	return code
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: missing payload", domain.ErrInvalidCommand)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: malformed payload", domain.ErrInvalidCommand)
	}
	return nil
}

func isClientError(err error) bool {
	for _, target := range []error{
		domain.ErrRoomNotFound,
		domain.ErrDuplicateUsername,
		domain.ErrNotHost,
		domain.ErrQuizUnavailable,
		domain.ErrInvalidCommand,
		domain.ErrGameInProgress,
		domain.ErrStartInProgress,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
