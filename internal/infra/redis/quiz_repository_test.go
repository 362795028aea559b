package redis

import (
	"context"
	"testing"
	"time"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute, zerolog.Nop())

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, "Arithmetic", quiz.Title)
	assert.Equal(t, 1, loader.calls)
	assert.True(t, mr.Exists("quiz:quiz-1:content"))

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuiz(context.Background(), "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, sampleQuiz(), cached, "cached quiz must round-trip every field")
}

func TestQuizRepositoryExpiresAndInvalidates(t *testing.T) {
	mr := miniredis.RunT(t)
	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute, zerolog.Nop())

	_, err := repo.GetQuiz(context.Background(), "quiz-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = repo.GetQuiz(context.Background(), "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)

	require.NoError(t, repo.Invalidate(context.Background(), "quiz-1"))
	assert.False(t, mr.Exists("quiz:quiz-1:content"))
}

func TestQuizRepositoryIgnoresCorruptCache(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("quiz:quiz-1:content", "{not json"))
	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute, zerolog.Nop())

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 1)
	assert.Equal(t, 1, loader.calls)
}

func TestQuizRepositoryFallsBackWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newClient(mr)
	mr.Close()

	repo := NewQuizRepository(client, memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}), time.Minute, zerolog.Nop())

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, "quiz-1", quiz.ID)
}

func TestQuizRepositoryPropagatesLoaderErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	repo := NewQuizRepository(newClient(mr), memory.NewStaticQuizLoader(nil), time.Minute, zerolog.Nop())

	_, err := repo.GetQuiz(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Arithmetic",
		Questions: []domain.Question{
			{
				Question:    "What is 2 + 2?",
				Options:     []string{"3", "4", "5", "22"},
				Answer:      "4",
				Explanation: "Two plus two is four.",
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
