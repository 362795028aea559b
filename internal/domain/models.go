package domain

// Question is a multiple choice question. Answer holds the exact text of the correct option.
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Clone returns a deep copy so callers can hold on to a quiz that is not shared with a cache.
func (q Quiz) Clone() Quiz {
	questions := make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		questions[i] = question
	}
	q.Questions = questions
	return q
}

// PublicQuestion is the client-facing view of a question. startCountdown.quizData and
// nextQuestion.question carry only question and options; the answer and explanation are
// first sent in showAnswer.
type PublicQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Public strips the answer and explanation.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{Question: q.Question, Options: q.Options}
}

// PlayerView is a snapshot-friendly view of a player.
type PlayerView struct {
	Username  string `json:"username"`
	Score     int    `json:"score"`
	LastScore int    `json:"lastScore"`
}
