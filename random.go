package main

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

// Room codes avoid glyphs that are easy to confuse when read aloud or
// typed from a partner's screen (0/O, 1/I).
const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 6
)

func newRoomCode() string {
	const max = byte(255 - (256 % len(roomCodeAlphabet)))

	out := make([]byte, 0, roomCodeLength)
	buf := make([]byte, roomCodeLength*2)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, roomCodeAlphabet[int(b)%len(roomCodeAlphabet)])
				if len(out) == roomCodeLength {
					return string(out)
				}
			}
		}
	}
}

// normalizeRoomCode uppercases a user-entered code so rooms can be joined
// regardless of input case.
func normalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func newPlayerID() string {
	return "player_" + uuid.NewString()
}

// cryptoIntn returns a uniform random int in [0, n) using crypto/rand,
// rejecting bytes that would bias the modulo.
func cryptoIntn(n int) int {
	if n <= 0 {
		return 0
	}
	if n == 1 {
		return 0
	}

	max := byte(255 - (256 % n))
	var b [1]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		if b[0] <= max {
			return int(b[0]) % n
		}
	}
}

// shuffled returns a Fisher-Yates shuffled copy, leaving the source intact.
func shuffled[T any](src []T) []T {
	out := make([]T, len(src))
	copy(out, src)

	for i := len(out) - 1; i > 0; i-- {
		j := cryptoIntn(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	return out
}

// sample draws n elements without replacement: shuffle, take the first n.
func sample[T any](src []T, n int) []T {
	if n > len(src) {
		n = len(src)
	}
	return shuffled(src)[:n]
}
