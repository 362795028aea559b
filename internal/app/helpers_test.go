package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
)

// fakeClock is a manual clock and Scheduler. Due callbacks run on the goroutine calling Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	due   time.Time
	f     func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) app.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, due: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves the clock forward by d, firing due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.done || t.due.After(target) {
				continue
			}
			if next == nil || t.due.Before(next.due) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.done = true
		c.now = next.due
		c.mu.Unlock()
		next.f()
	}
}

// Pending reports how many timers are still armed.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

type recorder struct {
	mu     sync.Mutex
	events map[string][]domain.Event
}

func newRecorder() *recorder {
	return &recorder{events: make(map[string][]domain.Event)}
}

func (r *recorder) Send(connID string, event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[connID] = append(r.events[connID], event)
}

func (r *recorder) types(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events[connID]))
	for _, e := range r.events[connID] {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) all(connID, typ string) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events[connID] {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) count(connID, typ string) int {
	return len(r.all(connID, typ))
}

func (r *recorder) last(t *testing.T, connID, typ string) domain.Event {
	t.Helper()
	events := r.all(connID, typ)
	if len(events) == 0 {
		t.Fatalf("no %s event for %s; got %v", typ, connID, r.types(connID))
	}
	return events[len(events)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = make(map[string][]domain.Event)
}

type harness struct {
	clock   *fakeClock
	out     *recorder
	rooms   *memory.RoomStore
	service *app.GameService
}

func newHarness(quizzes map[string]domain.Quiz, opts ...app.Option) *harness {
	clock := newFakeClock()
	out := newRecorder()
	rooms := memory.NewRoomStoreWithCodes(func() string { return "AB12" })
	repo := memory.NewQuizRepository(memory.NewStaticQuizLoader(quizzes), 0)
	opts = append([]app.Option{app.WithClock(clock.Now), app.WithScheduler(clock)}, opts...)
	return &harness{
		clock:   clock,
		out:     out,
		rooms:   rooms,
		service: app.NewGameService(rooms, repo, out, opts...),
	}
}

func (h *harness) room(t *testing.T) *app.Room {
	t.Helper()
	room, ok := h.service.Room("AB12")
	if !ok {
		t.Fatal("room AB12 not found")
	}
	return room
}

// lobby creates room AB12 hosted by alice on h1 and lets the given guests join on g1, g2, ...
func (h *harness) lobby(t *testing.T, quizID string, guests ...string) {
	t.Helper()
	ctx := context.Background()
	code, err := h.service.CreateRoom(ctx, "h1", "alice", quizID)
	if err != nil || code != "AB12" {
		t.Fatalf("create room: %q %v", code, err)
	}
	for i, name := range guests {
		if err := h.service.JoinRoom(ctx, guestConn(i), code, name); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
	}
}

// play starts the game and runs the countdown so question 0 is open.
func (h *harness) play(t *testing.T) {
	t.Helper()
	if err := h.service.StartGame(context.Background(), "h1", "AB12", ""); err != nil {
		t.Fatalf("start game: %v", err)
	}
	h.clock.Advance(h.service.Timings().Countdown)
}

func guestConn(i int) string {
	return "g" + string(rune('1'+i))
}

func capitalQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "capitals",
		Title: "Capitals",
		Questions: []domain.Question{{
			Question:    "What is the capital of France?",
			Options:     []string{"Berlin", "Paris", "Rome"},
			Answer:      "Paris",
			Explanation: "Seat of government.",
		}},
	}
}

func quizzes() map[string]domain.Quiz {
	samples := memory.SampleQuizzes()
	samples["capitals"] = capitalQuiz()
	samples["empty"] = domain.Quiz{ID: "empty", Title: "Nothing here"}
	return samples
}

func usernames(players []domain.PlayerView) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.Username
	}
	return out
}
