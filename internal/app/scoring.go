package app

import (
	"math"
	"sort"
	"time"

	"quizroom-service/internal/domain"
)

const (
	// BaseScore is awarded for any correct answer.
	BaseScore = 100
	// MaxSpeedBonus is added for an instant correct answer and decays linearly to zero at the time budget.
	MaxSpeedBonus = 50
)

// Submission is a recorded answer for one question.
type Submission struct {
	Selected string
	Elapsed  time.Duration
}

// ScoreAnswer returns the points a single submission earns for question q.
func ScoreAnswer(q domain.Question, sub Submission, budget time.Duration) int {
	if sub.Selected != q.Answer {
		return 0
	}
	if budget <= 0 {
		return BaseScore
	}
	elapsed := clampElapsed(sub.Elapsed, budget)
	bonus := math.Round(MaxSpeedBonus * (1 - float64(elapsed)/float64(budget)))
	return BaseScore + int(bonus)
}

// ScoreQuestion computes the per-player delta for question q. Players without a submission
// are absent from the result and therefore earn zero.
func ScoreQuestion(q domain.Question, submissions map[string]Submission, budget time.Duration) map[string]int {
	deltas := make(map[string]int, len(submissions))
	for username, sub := range submissions {
		deltas[username] = ScoreAnswer(q, sub, budget)
	}
	return deltas
}

// Rank returns players ordered by score descending. Ties keep their input (join) order.
func Rank(players []domain.PlayerView) []domain.PlayerView {
	ranked := append([]domain.PlayerView(nil), players...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func clampElapsed(elapsed, budget time.Duration) time.Duration {
	if elapsed < 0 {
		return 0
	}
	if elapsed > budget {
		return budget
	}
	return elapsed
}
