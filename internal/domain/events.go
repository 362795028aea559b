package domain

// Server to client event names.
const (
	EventLobbyUpdate    = "lobbyUpdate"
	EventPlayerJoined   = "playerJoined"
	EventPlayerLeft     = "playerLeft"
	EventStartCountdown = "startCountdown"
	EventNextQuestion   = "nextQuestion"
	EventPlayerAnswered = "playerAnswered"
	EventShowAnswer     = "showAnswer"
	EventShowResults    = "showResults"
	EventRoomError      = "roomError"
)

// Event is a server push addressed to a single connection.
type Event struct {
	Type    string
	Payload any
}

type LobbyUpdate struct {
	RoomCode string       `json:"roomCode"`
	QuizID   string       `json:"quizId"`
	Host     string       `json:"host"`
	Players  []PlayerView `json:"players"`
}

type PlayerJoined struct {
	Username string `json:"username"`
}

type PlayerLeft struct {
	Username string `json:"username"`
}

// StartCountdown anchors the client countdown; StartTimestamp is Unix milliseconds.
type StartCountdown struct {
	QuizTitle      string           `json:"quizTitle"`
	StartTimestamp int64            `json:"startTimestamp"`
	QuizData       []PublicQuestion `json:"quizData"`
}

type NextQuestion struct {
	QIndex     int            `json:"qIndex"`
	Question   PublicQuestion `json:"question"`
	Players    []PlayerView   `json:"players"`
	QStartTime int64          `json:"qStartTime"`
	QDeadline  int64          `json:"qDeadline"`
}

// PlayerAnswered carries no answer content.
type PlayerAnswered struct {
	Username string `json:"username"`
	QIndex   int    `json:"qIndex"`
}

type ShowAnswer struct {
	CorrectAnswer      string       `json:"correctAnswer"`
	CorrectExplanation string       `json:"correctExplanation"`
	Players            []PlayerView `json:"players"`
	QIndex             int          `json:"qIndex"`
	IsLastQuestion     bool         `json:"isLastQuestion"`
}

type ShowResults struct {
	FinalRanking []PlayerView `json:"finalRanking"`
}
