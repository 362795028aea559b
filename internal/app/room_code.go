package app

import (
	"math/rand"
	"strings"
)

const (
	// RoomCodeLength is the fixed length of a room code.
	RoomCodeLength   = 4
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// RandomRoomCode returns a random 4 character upper case alphanumeric code.
func RandomRoomCode() string {
	var b strings.Builder
	b.Grow(RoomCodeLength)
	for i := 0; i < RoomCodeLength; i++ {
		b.WriteByte(roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))])
	}
	return b.String()
}

// NormalizeRoomCode upper-cases a client supplied code and reports whether it is well formed.
func NormalizeRoomCode(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != RoomCodeLength {
		return code, false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(roomCodeAlphabet, code[i]) < 0 {
			return code, false
		}
	}
	return code, true
}
