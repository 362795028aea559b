package app_test

import (
	"testing"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestScoreAnswer(t *testing.T) {
	q := domain.Question{Question: "Capital of France?", Options: []string{"Paris", "Rome"}, Answer: "Paris"}
	budget := 10 * time.Second

	cases := []struct {
		name string
		sub  app.Submission
		want int
	}{
		{"instant", app.Submission{Selected: "Paris"}, 150},
		{"one second", app.Submission{Selected: "Paris", Elapsed: time.Second}, 145},
		{"full budget", app.Submission{Selected: "Paris", Elapsed: budget}, 100},
		{"over budget", app.Submission{Selected: "Paris", Elapsed: time.Minute}, 100},
		{"negative elapsed", app.Submission{Selected: "Paris", Elapsed: -time.Second}, 150},
		{"rounds to nearest", app.Submission{Selected: "Paris", Elapsed: 2990 * time.Millisecond}, 135},
		{"wrong", app.Submission{Selected: "Rome"}, 0},
		{"case sensitive", app.Submission{Selected: "paris"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, app.ScoreAnswer(q, tc.sub, budget))
		})
	}
}

func TestScoreAnswerMonotonicInSpeed(t *testing.T) {
	q := domain.Question{Options: []string{"A", "B"}, Answer: "A"}
	budget := 10 * time.Second

	prev := app.ScoreAnswer(q, app.Submission{Selected: "A"}, budget)
	for ms := 250; ms <= 10000; ms += 250 {
		got := app.ScoreAnswer(q, app.Submission{Selected: "A", Elapsed: time.Duration(ms) * time.Millisecond}, budget)
		assert.LessOrEqual(t, got, prev, "elapsed %dms", ms)
		assert.GreaterOrEqual(t, got, app.BaseScore)
		prev = got
	}
}

func TestScoreQuestionOmitsMissingPlayers(t *testing.T) {
	q := domain.Question{Options: []string{"A", "B"}, Answer: "B"}
	deltas := app.ScoreQuestion(q, map[string]app.Submission{
		"alice": {Selected: "B", Elapsed: 0},
		"bob":   {Selected: "A", Elapsed: 0},
	}, 10*time.Second)

	assert.Equal(t, map[string]int{"alice": 150, "bob": 0}, deltas)
	assert.Zero(t, deltas["carol"])
}

func TestRankIsStable(t *testing.T) {
	players := []domain.PlayerView{
		{Username: "alice", Score: 100},
		{Username: "bob", Score: 250},
		{Username: "carol", Score: 100},
		{Username: "dave", Score: 0},
	}

	ranked := app.Rank(players)

	names := make([]string, len(ranked))
	for i, p := range ranked {
		names[i] = p.Username
	}
	assert.Equal(t, []string{"bob", "alice", "carol", "dave"}, names)
	assert.Equal(t, "alice", players[0].Username, "input must not be reordered")
}

func TestNormalizeRoomCode(t *testing.T) {
	code, ok := app.NormalizeRoomCode(" ab12 ")
	assert.True(t, ok)
	assert.Equal(t, "AB12", code)

	for _, raw := range []string{"", "AB1", "AB123", "AB-2", "ÄB12"} {
		_, ok := app.NormalizeRoomCode(raw)
		assert.False(t, ok, raw)
	}
}

func TestRandomRoomCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := app.RandomRoomCode()
		normalized, ok := app.NormalizeRoomCode(code)
		assert.True(t, ok, code)
		assert.Equal(t, code, normalized)
	}
}
