package redis

import (
	"context"
	"sync"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	maxCodeAttempts = 128
	// defaultOpTimeout bounds every reservation round trip.
	defaultOpTimeout = 2 * time.Second
)

// RoomStore is a Redis-aware implementation of app.RoomRegistry.
// Notes:
//   - Rooms themselves (timers, connections) live in the local map; a room is only ever
//     driven by the process that created it.
//   - Redis holds a reservation key per active code (SET NX with TTL) so codes stay unique
//     across everything sharing the Redis instance, and doubles as a liveness marker.
//   - Redis is never called while mu is held. Releases run in the background so a closing
//     room does not wait on the network.
//   - If Redis is unreachable the store falls back to local-only uniqueness.
type RoomStore struct {
	client    *redis.Client
	ttl       time.Duration
	codes     func() string
	log       zerolog.Logger
	opTimeout time.Duration

	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RoomStore {
	return NewRoomStoreWithCodes(client, ttl, log, app.RandomRoomCode)
}

func NewRoomStoreWithCodes(client *redis.Client, ttl time.Duration, log zerolog.Logger, codes func() string) *RoomStore {
	return &RoomStore{
		client:    client,
		ttl:       ttl,
		codes:     codes,
		log:       log,
		opTimeout: defaultOpTimeout,
		rooms:     make(map[string]*app.Room),
	}
}

func (s *RoomStore) Create(build func(code string) *app.Room) (*app.Room, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.codes()
		if s.taken(code) {
			continue
		}
		ok, owned := s.reserve(code)
		if !ok {
			continue
		}

		s.mu.Lock()
		if _, taken := s.rooms[code]; taken {
			s.mu.Unlock()
			// another local Create won the code between the check and the reservation
			if owned {
				go s.release(code)
			}
			continue
		}
		room := build(code)
		s.rooms[code] = room
		s.mu.Unlock()
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

// Delete unregisters room and frees its code in Redis without waiting for the round trip.
func (s *RoomStore) Delete(code string, room *app.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rooms[code]
	if !ok || current != room {
		return
	}
	delete(s.rooms, code)
	go s.release(code)
}

func (s *RoomStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Refresh extends the reservation of every local room; call it periodically for rooms
// that outlive the TTL.
func (s *RoomStore) Refresh(ctx context.Context) {
	s.mu.RLock()
	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	s.mu.RUnlock()

	if len(codes) == 0 {
		return
	}
	pipe := s.client.Pipeline()
	for _, code := range codes {
		pipe.Expire(ctx, s.key(code), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Int("rooms", len(codes)).Msg("refresh room reservations")
	}
}

func (s *RoomStore) taken(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok
}

// reserve claims code in Redis. ok reports whether the code may be used, owned whether
// this call created the key.
func (s *RoomStore) reserve(code string) (ok, owned bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	set, err := s.client.SetNX(ctx, s.key(code), "1", s.ttl).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("room", code).Msg("reserve room code, using local uniqueness only")
		return true, false
	}
	return set, set
}

func (s *RoomStore) release(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key(code)).Err(); err != nil {
		s.log.Warn().Err(err).Str("room", code).Msg("release room code")
	}
}

func (s *RoomStore) key(code string) string {
	return "quizroom:room:" + code
}
