package memory

import (
	"sync"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

const maxCodeAttempts = 128

// RoomStore is an in-memory implementation of app.RoomRegistry.
type RoomStore struct {
	codes func() string

	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore() *RoomStore {
	return NewRoomStoreWithCodes(app.RandomRoomCode)
}

// NewRoomStoreWithCodes uses codes to draw candidate room codes; tests pass a fixed sequence.
func NewRoomStoreWithCodes(codes func() string) *RoomStore {
	return &RoomStore{
		codes: codes,
		rooms: make(map[string]*app.Room),
	}
}

func (s *RoomStore) Create(build func(code string) *app.Room) (*app.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.codes()
		if _, taken := s.rooms[code]; taken {
			continue
		}
		room := build(code)
		s.rooms[code] = room
		return room, nil
	}
	return nil, domain.ErrRoomCodesExhausted
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) Delete(code string, room *app.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.rooms[code]; ok && current == room {
		delete(s.rooms, code)
	}
}

func (s *RoomStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
