package memory

import (
	"context"
	"testing"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discard struct{}

func (discard) Send(string, domain.Event) {}

func sequence(codes ...string) func() string {
	i := 0
	return func() string {
		code := codes[i%len(codes)]
		i++
		return code
	}
}

func TestRoomStoreRegeneratesCollidingCodes(t *testing.T) {
	store := NewRoomStoreWithCodes(sequence("AB12", "AB12", "CD34"))
	service := app.NewGameService(store, NewQuizRepository(NewStaticQuizLoader(nil), 0), discard{})

	first, err := service.CreateRoom(context.Background(), "c1", "alice", "quiz-1")
	require.NoError(t, err)
	second, err := service.CreateRoom(context.Background(), "c2", "bob", "quiz-1")
	require.NoError(t, err)

	assert.Equal(t, "AB12", first)
	assert.Equal(t, "CD34", second)
	assert.Equal(t, 2, store.Count())
}

func TestRoomStoreExhausted(t *testing.T) {
	store := NewRoomStoreWithCodes(sequence("AB12"))
	service := app.NewGameService(store, NewQuizRepository(NewStaticQuizLoader(nil), 0), discard{})

	_, err := service.CreateRoom(context.Background(), "c1", "alice", "quiz-1")
	require.NoError(t, err)
	_, err = service.CreateRoom(context.Background(), "c2", "bob", "quiz-1")
	assert.ErrorIs(t, err, domain.ErrRoomCodesExhausted)
}

func TestRoomStoreLifecycle(t *testing.T) {
	store := NewRoomStoreWithCodes(sequence("AB12"))
	service := app.NewGameService(store, NewQuizRepository(NewStaticQuizLoader(nil), 0), discard{})

	code, err := service.CreateRoom(context.Background(), "c1", "alice", "quiz-1")
	require.NoError(t, err)
	room, ok := store.Get(code)
	require.True(t, ok)

	// a stale delete for a different room must not remove the live one
	store.Delete(code, nil)
	_, ok = store.Get(code)
	assert.True(t, ok)

	service.Leave(context.Background(), "c1", code)
	_, ok = store.Get(code)
	assert.False(t, ok, "empty room should be removed")
	assert.True(t, room.Snapshot().Closed)

	// codes are reusable after deletion
	again, err := service.CreateRoom(context.Background(), "c2", "bob", "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, code, again)
}
