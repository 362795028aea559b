package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"quizroom-service/internal/domain"

	"github.com/uptrace/bun"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID          int64             `bun:"id,pk,autoincrement"`
	Title       string            `bun:"title,notnull"`
	Course      string            `bun:"course,notnull"`
	Difficulty  string            `bun:"difficulty,notnull"`
	Description string            `bun:"description,notnull"`
	Questions   []domain.Question `bun:"questions,type:jsonb,notnull"`
	ItemsCount  int               `bun:"items_count,notnull"`
	CreatedAt   time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// QuizWriter stores quizzes through bun. It backs the seed command and integration tests;
// the game itself never writes.
type QuizWriter struct {
	db *bun.DB
}

func NewQuizWriter(db *bun.DB) *QuizWriter {
	return &QuizWriter{db: db}
}

// Save upserts quiz and returns its id. A numeric quiz.ID is kept, anything else gets a
// generated id.
func (w *QuizWriter) Save(ctx context.Context, quiz domain.Quiz) (string, error) {
	row := &quizRow{
		Title:      quiz.Title,
		Questions:  quiz.Questions,
		ItemsCount: len(quiz.Questions),
	}
	explicit := false
	if id, err := strconv.ParseInt(quiz.ID, 10, 64); err == nil && id > 0 {
		row.ID = id
		explicit = true
	}

	err := w.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (id) DO UPDATE").
			Set("title = EXCLUDED.title").
			Set("questions = EXCLUDED.questions").
			Set("items_count = EXCLUDED.items_count").
			Returning("id").
			Exec(ctx)
		if err != nil {
			return err
		}
		if !explicit {
			return nil
		}
		// keep the serial ahead of explicitly chosen ids
		_, err = tx.ExecContext(ctx,
			`SELECT setval(pg_get_serial_sequence('quizzes', 'id'), (SELECT MAX(id) FROM quizzes))`)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("save quiz %q: %w", quiz.Title, err)
	}
	return strconv.FormatInt(row.ID, 10), nil
}
