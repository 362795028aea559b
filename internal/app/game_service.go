package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizroom-service/internal/domain"

	"github.com/rs/zerolog"
)

// RoomRegistry owns every active room, keyed by code (in-memory, Redis-assisted, etc).
type RoomRegistry interface {
	// Create picks a code no active room uses, builds the room with it and registers it.
	Create(build func(code string) *Room) (*Room, error)
	Get(code string) (*Room, bool)
	// Delete removes code only while it still maps to room.
	Delete(code string, room *Room)
	Count() int
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Broadcaster delivers an event to one connection. Send must not block.
type Broadcaster interface {
	Send(connID string, event domain.Event)
}

// Option customizes a GameService.
type Option func(*GameService)

// WithClock replaces time.Now, mostly for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.rt.now = now }
}

// WithScheduler replaces the runtime timers.
func WithScheduler(sched Scheduler) Option {
	return func(s *GameService) { s.rt.sched = sched }
}

// WithTimings overrides the countdown, question and reveal durations.
func WithTimings(t Timings) Option {
	return func(s *GameService) { s.rt.timings = t }
}

// WithLogger sets the logger rooms and the service write to.
func WithLogger(log zerolog.Logger) Option {
	return func(s *GameService) { s.rt.log = log }
}

// WithLookupTimeout bounds the quiz lookup performed when a game starts.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *GameService) { s.lookupTimeout = d }
}

// GameService contains the multiplayer room use cases.
type GameService struct {
	rooms         RoomRegistry
	quizzes       QuizRepository
	rt            *roomRuntime
	lookupTimeout time.Duration
}

func NewGameService(rooms RoomRegistry, quizzes QuizRepository, out Broadcaster, opts ...Option) *GameService {
	s := &GameService{
		rooms:   rooms,
		quizzes: quizzes,
		rt: &roomRuntime{
			out:     out,
			sched:   NewRealScheduler(),
			now:     time.Now,
			timings: DefaultTimings(),
			log:     zerolog.Nop(),
		},
		lookupTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rt.release = func(room *Room) {
		s.rooms.Delete(room.code, room)
	}
	return s
}

// Timings returns the timing constants rooms run with.
func (s *GameService) Timings() Timings {
	return s.rt.timings
}

// ActiveRooms returns the number of live rooms.
func (s *GameService) ActiveRooms() int {
	return s.rooms.Count()
}

// Room returns the live room for code.
func (s *GameService) Room(code string) (*Room, bool) {
	code, ok := NormalizeRoomCode(code)
	if !ok {
		return nil, false
	}
	return s.rooms.Get(code)
}

// CreateRoom opens a new lobby hosted by username and returns its code.
func (s *GameService) CreateRoom(_ context.Context, connID, username, quizID string) (string, error) {
	username = strings.TrimSpace(username)
	quizID = strings.TrimSpace(quizID)
	if username == "" || quizID == "" {
		return "", fmt.Errorf("%w: username and quiz id are required", domain.ErrInvalidCommand)
	}

	room, err := s.rooms.Create(func(code string) *Room {
		return newRoom(code, quizID, newPlayer(connID, username), s.rt)
	})
	if err != nil {
		return "", err
	}
	s.rt.log.Info().Str("room", room.code).Str("host", username).Str("quiz", quizID).Msg("room created")
	room.greet(connID)
	return room.code, nil
}

// JoinRoom adds username to the lobby identified by roomCode.
func (s *GameService) JoinRoom(_ context.Context, connID, roomCode, username string) error {
	code, ok := NormalizeRoomCode(roomCode)
	if !ok {
		return fmt.Errorf("%w: room code must be %d letters or digits", domain.ErrInvalidCommand, RoomCodeLength)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username is required", domain.ErrInvalidCommand)
	}
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.join(connID, username)
}

// StartGame resolves the quiz and starts the countdown. Only the host may start.
func (s *GameService) StartGame(ctx context.Context, connID, roomCode, quizID string) error {
	code, ok := NormalizeRoomCode(roomCode)
	if !ok {
		return fmt.Errorf("%w: room code must be %d letters or digits", domain.ErrInvalidCommand, RoomCodeLength)
	}
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}

	resolved, err := room.beginStart(connID, strings.TrimSpace(quizID))
	if err != nil {
		return err
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	quiz, lookupErr := s.quizzes.GetQuiz(lookupCtx, resolved)
	if lookupErr != nil {
		evt := s.rt.log.Warn()
		if !errors.Is(lookupErr, domain.ErrQuizNotFound) {
			evt = s.rt.log.Error()
		}
		evt.Err(lookupErr).Str("room", code).Str("quiz", resolved).Msg("quiz lookup failed")
	}
	return room.finishStart(resolved, quiz, lookupErr)
}

// SubmitAnswer records the caller's answer for the open question. Answers for unknown rooms,
// closed questions or repeated submissions are ignored.
func (s *GameService) SubmitAnswer(_ context.Context, connID, roomCode, selected string, elapsedMs int64) {
	code, ok := NormalizeRoomCode(roomCode)
	if !ok {
		return
	}
	room, ok := s.rooms.Get(code)
	if !ok {
		return
	}
	// clamp in milliseconds; out of range values would overflow time.Duration
	budgetMs := s.rt.timings.QuestionTime.Milliseconds()
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	if elapsedMs > budgetMs {
		elapsedMs = budgetMs
	}
	room.submit(connID, selected, time.Duration(elapsedMs)*time.Millisecond)
}

// Leave removes the player on connID from the room; it is also the disconnect path.
func (s *GameService) Leave(_ context.Context, connID, roomCode string) bool {
	code, ok := NormalizeRoomCode(roomCode)
	if !ok {
		return false
	}
	room, ok := s.rooms.Get(code)
	if !ok {
		return false
	}
	return room.leave(connID)
}
