package app

import (
	"fmt"
	"sync"
	"time"

	"quizroom-service/internal/domain"

	"github.com/rs/zerolog"
)

// Phase is the lifecycle stage of a room.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseCountdown
	PhaseQuestion
	PhaseReveal
	PhaseResults
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseCountdown:
		return "countdown"
	case PhaseQuestion:
		return "question"
	case PhaseReveal:
		return "reveal"
	case PhaseResults:
		return "results"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type player struct {
	username  string
	connID    string
	score     int
	lastScore int
	answers   map[int]Submission
}

func newPlayer(connID, username string) *player {
	return &player{
		username: username,
		connID:   connID,
		answers:  make(map[int]Submission),
	}
}

// roomRuntime is shared by every room a GameService creates.
type roomRuntime struct {
	out     Broadcaster
	sched   Scheduler
	now     func() time.Time
	timings Timings
	log     zerolog.Logger
	release func(*Room)
}

// Room is the state of one game. All fields behind mu are only touched by Room methods, and
// every method holds mu for the whole mutation including the events it emits, so events of
// one room reach connections in the order they were produced.
type Room struct {
	code string
	rt   *roomRuntime
	log  zerolog.Logger

	mu       sync.Mutex
	host     string
	quizID   string
	players  []*player
	quiz     *domain.Quiz
	phase    Phase
	index    int
	starting bool
	closed   bool
	deadline Timer
	pending  Timer
}

func newRoom(code, quizID string, creator *player, rt *roomRuntime) *Room {
	return &Room{
		code:    code,
		rt:      rt,
		log:     rt.log.With().Str("room", code).Logger(),
		host:    creator.username,
		quizID:  quizID,
		players: []*player{creator},
		phase:   PhaseLobby,
	}
}

// Code returns the room code.
func (r *Room) Code() string {
	return r.code
}

// RoomSnapshot is a read-only copy of a room's observable state.
type RoomSnapshot struct {
	Code    string
	Host    string
	QuizID  string
	Phase   Phase
	Index   int
	Closed  bool
	Players []domain.PlayerView
}

// Snapshot copies the room's observable state.
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomSnapshot{
		Code:    r.code,
		Host:    r.host,
		QuizID:  r.quizID,
		Phase:   r.phase,
		Index:   r.index,
		Closed:  r.closed,
		Players: r.viewsLocked(),
	}
}

func (r *Room) greet(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendLocked(connID, domain.EventLobbyUpdate, r.lobbyLocked())
}

func (r *Room) join(connID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.ErrRoomNotFound
	}
	for _, p := range r.players {
		if p.username == username {
			return domain.ErrDuplicateUsername
		}
		if p.connID == connID {
			return fmt.Errorf("%w: already in this room", domain.ErrInvalidCommand)
		}
	}
	if r.phase != PhaseLobby || r.starting {
		return domain.ErrGameInProgress
	}

	r.players = append(r.players, newPlayer(connID, username))
	r.log.Info().Str("username", username).Int("players", len(r.players)).Msg("player joined")

	r.broadcastLocked(domain.EventLobbyUpdate, r.lobbyLocked())
	r.broadcastLocked(domain.EventPlayerJoined, domain.PlayerJoined{Username: username})
	return nil
}

// beginStart authorizes a start request and marks the lookup as outstanding.
// It returns the quiz id to resolve.
func (r *Room) beginStart(connID, quizID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", domain.ErrRoomNotFound
	}
	caller := r.playerByConnLocked(connID)
	if caller == nil || caller.username != r.host {
		return "", domain.ErrNotHost
	}
	if r.phase != PhaseLobby {
		return "", domain.ErrGameInProgress
	}
	if r.starting {
		return "", domain.ErrStartInProgress
	}
	if quizID == "" {
		quizID = r.quizID
	}
	if quizID == "" {
		return "", fmt.Errorf("%w: missing quiz id", domain.ErrInvalidCommand)
	}
	r.starting = true
	return quizID, nil
}

// finishStart completes a start request once the quiz lookup returned.
func (r *Room) finishStart(quizID string, quiz domain.Quiz, lookupErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.starting = false
	if r.closed {
		return domain.ErrRoomNotFound
	}
	if lookupErr != nil {
		return domain.ErrQuizUnavailable
	}
	if err := validateQuiz(quiz); err != nil {
		r.log.Warn().Err(err).Str("quiz", quizID).Msg("quiz rejected")
		return domain.ErrQuizUnavailable
	}

	frozen := quiz.Clone()
	r.quiz = &frozen
	r.quizID = quizID
	r.index = 0
	r.phase = PhaseCountdown

	startAt := r.rt.now().Add(r.rt.timings.Countdown)
	public := make([]domain.PublicQuestion, len(frozen.Questions))
	for i, q := range frozen.Questions {
		public[i] = q.Public()
	}
	r.log.Info().Str("quiz", quizID).Int("questions", len(frozen.Questions)).Msg("game starting")
	r.broadcastLocked(domain.EventStartCountdown, domain.StartCountdown{
		QuizTitle:      frozen.Title,
		StartTimestamp: startAt.UnixMilli(),
		QuizData:       public,
	})

	stopTimer(&r.pending)
	r.pending = r.rt.sched.AfterFunc(r.rt.timings.Countdown, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || r.phase != PhaseCountdown {
			return
		}
		r.openQuestionLocked(0)
	})
	return nil
}

func (r *Room) openQuestionLocked(i int) {
	r.phase = PhaseQuestion
	r.index = i

	start := r.rt.now()
	deadline := start.Add(r.rt.timings.QuestionTime)

	stopTimer(&r.deadline)
	r.deadline = r.rt.sched.AfterFunc(r.rt.timings.QuestionTime, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.advanceLocked(i) {
			r.log.Debug().Int("question", i).Msg("question deadline elapsed")
		}
	})

	r.broadcastLocked(domain.EventNextQuestion, domain.NextQuestion{
		QIndex:     i,
		Question:   r.quiz.Questions[i].Public(),
		Players:    r.viewsLocked(),
		QStartTime: start.UnixMilli(),
		QDeadline:  deadline.UnixMilli(),
	})
}

func (r *Room) submit(connID, selected string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase != PhaseQuestion {
		return
	}
	p := r.playerByConnLocked(connID)
	if p == nil {
		return
	}
	if _, answered := p.answers[r.index]; answered {
		return
	}

	p.answers[r.index] = Submission{
		Selected: selected,
		Elapsed:  clampElapsed(elapsed, r.rt.timings.QuestionTime),
	}
	r.broadcastExceptLocked(p.connID, domain.EventPlayerAnswered, domain.PlayerAnswered{
		Username: p.username,
		QIndex:   r.index,
	})

	if r.allAnsweredLocked() {
		r.advanceLocked(r.index)
	}
}

// Advance resolves question i. It is safe to call any number of times: only the first call
// for an open question has an effect, later ones (or calls for a stale index) return false.
func (r *Room) Advance(i int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.advanceLocked(i)
}

func (r *Room) advanceLocked(i int) bool {
	if r.closed || r.phase != PhaseQuestion || r.index != i {
		return false
	}
	stopTimer(&r.deadline)

	question := r.quiz.Questions[i]
	submissions := make(map[string]Submission, len(r.players))
	for _, p := range r.players {
		if sub, ok := p.answers[i]; ok {
			submissions[p.username] = sub
		}
	}
	deltas := ScoreQuestion(question, submissions, r.rt.timings.QuestionTime)
	for _, p := range r.players {
		delta := deltas[p.username]
		p.score += delta
		p.lastScore = delta
	}

	last := i == len(r.quiz.Questions)-1
	ranked := Rank(r.viewsLocked())
	r.broadcastLocked(domain.EventShowAnswer, domain.ShowAnswer{
		CorrectAnswer:      question.Answer,
		CorrectExplanation: question.Explanation,
		Players:            ranked,
		QIndex:             i,
		IsLastQuestion:     last,
	})

	if last {
		r.phase = PhaseResults
		r.broadcastLocked(domain.EventShowResults, domain.ShowResults{FinalRanking: ranked})
		r.log.Info().Int("players", len(r.players)).Msg("game finished")
		r.closeLocked()
		return true
	}

	r.index++
	r.phase = PhaseReveal
	next := r.index
	stopTimer(&r.pending)
	r.pending = r.rt.sched.AfterFunc(r.rt.timings.RevealDelay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || r.phase != PhaseReveal || r.index != next {
			return
		}
		r.openQuestionLocked(next)
	})
	return true
}

// leave removes the player on connID. It reports whether a player was removed.
func (r *Room) leave(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	idx := -1
	for i, p := range r.players {
		if p.connID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	gone := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	r.log.Info().Str("username", gone.username).Int("players", len(r.players)).Msg("player left")

	if len(r.players) == 0 {
		r.closeLocked()
		return true
	}
	if gone.username == r.host {
		r.host = r.players[0].username
		r.log.Info().Str("host", r.host).Msg("host reassigned")
	}

	r.broadcastLocked(domain.EventPlayerLeft, domain.PlayerLeft{Username: gone.username})
	r.broadcastLocked(domain.EventLobbyUpdate, r.lobbyLocked())

	if r.phase == PhaseQuestion && r.allAnsweredLocked() {
		r.advanceLocked(r.index)
	}
	return true
}

func (r *Room) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	stopTimer(&r.deadline)
	stopTimer(&r.pending)
	if r.rt.release != nil {
		r.rt.release(r)
	}
	r.log.Debug().Msg("room closed")
}

func (r *Room) allAnsweredLocked() bool {
	if len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if _, ok := p.answers[r.index]; !ok {
			return false
		}
	}
	return true
}

func (r *Room) playerByConnLocked(connID string) *player {
	for _, p := range r.players {
		if p.connID == connID {
			return p
		}
	}
	return nil
}

func (r *Room) viewsLocked() []domain.PlayerView {
	views := make([]domain.PlayerView, len(r.players))
	for i, p := range r.players {
		views[i] = domain.PlayerView{Username: p.username, Score: p.score, LastScore: p.lastScore}
	}
	return views
}

func (r *Room) lobbyLocked() domain.LobbyUpdate {
	return domain.LobbyUpdate{
		RoomCode: r.code,
		QuizID:   r.quizID,
		Host:     r.host,
		Players:  r.viewsLocked(),
	}
}

func (r *Room) sendLocked(connID, typ string, payload any) {
	r.rt.out.Send(connID, domain.Event{Type: typ, Payload: payload})
}

func (r *Room) broadcastLocked(typ string, payload any) {
	r.broadcastExceptLocked("", typ, payload)
}

func (r *Room) broadcastExceptLocked(skipConnID, typ string, payload any) {
	evt := domain.Event{Type: typ, Payload: payload}
	for _, p := range r.players {
		if p.connID == skipConnID {
			continue
		}
		r.rt.out.Send(p.connID, evt)
	}
}

func validateQuiz(quiz domain.Quiz) error {
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("quiz %q has no questions", quiz.ID)
	}
	for i, q := range quiz.Questions {
		if len(q.Options) == 0 || q.Answer == "" {
			return fmt.Errorf("quiz %q question %d is incomplete", quiz.ID, i)
		}
	}
	return nil
}
