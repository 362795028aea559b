package domain

import "errors"

var (
	// ErrRoomNotFound is returned when no active room uses the given code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrDuplicateUsername is returned when the username is already taken in the room.
	ErrDuplicateUsername = errors.New("username already taken in this room")
	// ErrNotHost is returned when someone other than the host tries to start the game.
	ErrNotHost = errors.New("only the host can start the game")
	// ErrQuizUnavailable hides lookup failures from clients.
	ErrQuizUnavailable = errors.New("quiz unavailable")
	// ErrInvalidCommand indicates a malformed command payload.
	ErrInvalidCommand = errors.New("invalid command")
	// ErrGameInProgress is returned for lobby-only commands once the game has started.
	ErrGameInProgress = errors.New("game already in progress")
	// ErrStartInProgress is returned while the quiz for a start request is still loading.
	ErrStartInProgress = errors.New("game start already in progress")
	// ErrRoomCodesExhausted is returned when no free room code could be generated.
	ErrRoomCodesExhausted = errors.New("no free room code available")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
)
