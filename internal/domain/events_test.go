package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicQuestionHidesAnswerKey(t *testing.T) {
	q := Question{
		Question:    "What is the capital of France?",
		Options:     []string{"Paris", "Rome"},
		Answer:      "Paris",
		Explanation: "Seat of government.",
	}

	raw, err := json.Marshal(StartCountdown{QuizTitle: "Capitals", QuizData: []PublicQuestion{q.Public()}})
	require.NoError(t, err)

	var decoded struct {
		QuizData []map[string]any `json:"quizData"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.QuizData, 1)
	assert.Equal(t, "What is the capital of France?", decoded.QuizData[0]["question"])
	assert.NotContains(t, decoded.QuizData[0], "answer")
	assert.NotContains(t, decoded.QuizData[0], "explanation")
}
