package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizroom-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads a quiz row and its JSONB question list from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		id    string
		title string
		raw   []byte
	)
	err := l.pool.QueryRow(ctx,
		`SELECT id::text, title, questions FROM quizzes WHERE id::text = $1`, quizID,
	).Scan(&id, &title, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	questions, err := DecodeQuestions(raw)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz %s: %w", quizID, err)
	}
	return domain.Quiz{ID: id, Title: title, Questions: questions}, nil
}

// DecodeQuestions accepts the questions column either as a JSON array or as a JSON string
// that itself contains the array (rows written by older clients stringify it first).
func DecodeQuestions(raw []byte) ([]domain.Question, error) {
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err == nil {
		return questions, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("questions are neither an array nor an encoded array: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &questions); err != nil {
		return nil, fmt.Errorf("unmarshal encoded questions: %w", err)
	}
	return questions, nil
}
