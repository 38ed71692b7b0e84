package main

import (
	"time"
)

// GameStateChannel replicates one game-defined blob per room and provides
// the per-player answer submission primitive on top of it.
//
// Write access is split at the type level: a ProgressionWriter is only
// minted for the room's host, and an AnswerSubmitter can only append under
// its own player id. The store itself performs no validation; holding the
// right value is the enforcement.
type GameStateChannel struct {
	cfg   *Config
	store *RoomStore
	code  string
}

func newGameStateChannel(cfg *Config, store *RoomStore, code string) *GameStateChannel {
	return &GameStateChannel{
		cfg:   cfg,
		store: store,
		code:  code,
	}
}

// ProgressionWriter mints the host-only write capability. Fails with
// ErrNotHost for any other player.
func (c *GameStateChannel) ProgressionWriter(playerID string) (*ProgressionWriter, error) {
	room, ok := c.store.Get(c.code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.HostID != playerID {
		return nil, ErrNotHost
	}
	return &ProgressionWriter{ch: c}, nil
}

// AnswerSubmitter mints the self-only write capability for playerID.
func (c *GameStateChannel) AnswerSubmitter(playerID string) *AnswerSubmitter {
	return &AnswerSubmitter{
		ch:       c,
		playerID: playerID,
	}
}

// ProgressionWriter is the sole authority for shared progression state:
// questions, cards, templates, indexes, phases, and room status.
type ProgressionWriter struct {
	ch *GameStateChannel
}

// UpdateGameState merges partial into the room's game state. Shallow merge
// at the top level, last writer wins; safe only because exactly one of
// these exists per room.
func (w *ProgressionWriter) UpdateGameState(partial GameState) error {
	return writeRetry(w.ch.cfg, func() error {
		return w.ch.store.MergeGameState(w.ch.code, partial)
	})
}

// SetStatus overwrites the room-level status.
func (w *ProgressionWriter) SetStatus(status RoomStatus) error {
	return writeRetry(w.ch.cfg, func() error {
		return w.ch.store.Update(w.ch.code, func(room *Room) error {
			room.Status = status
			return nil
		})
	})
}

// AnswerSubmitter writes one player's own answer entries. Additive: it never
// removes other players' entries at the same key.
type AnswerSubmitter struct {
	ch       *GameStateChannel
	playerID string
}

// SubmitAnswer writes answers[key][playerID] = {value, server time}.
func (s *AnswerSubmitter) SubmitAnswer(key string, value any) error {
	return writeRetry(s.ch.cfg, func() error {
		return s.ch.store.Update(s.ch.code, func(room *Room) error {
			if room.GameState == nil {
				room.GameState = make(GameState)
			}

			answers, ok := room.GameState["answers"].(map[string]map[string]Answer)
			if !ok {
				answers = make(map[string]map[string]Answer)
				room.GameState["answers"] = answers
			}
			if answers[key] == nil {
				answers[key] = make(map[string]Answer)
			}

			answers[key][s.playerID] = Answer{
				Answer:    value,
				Timestamp: s.ch.store.Now(),
			}
			return nil
		})
	})
}

// writeRetry runs op with bounded retry and doubling backoff. Past the last
// attempt the error is returned for the caller to log and drop; mid-game
// writes are not surfaced to players.
func writeRetry(cfg *Config, op func() error) error {
	const attempts = 3

	var err error
	backoff := 50 * time.Millisecond

	for i := 0; i < attempts; i++ {
		err = op()
		if err == nil {
			return nil
		}
		// A vanished room will not come back; retrying just delays teardown.
		if err == ErrRoomNotFound {
			return err
		}
		if i < attempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return err
}

// Derived queries. Pure functions of a replicated snapshot, evaluated
// locally; an absent game state means "nothing submitted", never an error.

func stateAnswers(state GameState, key string) map[string]Answer {
	if state == nil {
		return nil
	}
	answers, ok := state["answers"].(map[string]map[string]Answer)
	if !ok {
		return nil
	}
	return answers[key]
}

// HasAnswered reports whether playerID has an entry at key.
func HasAnswered(state GameState, key, playerID string) bool {
	_, ok := stateAnswers(state, key)[playerID]
	return ok
}

// AllAnswered reports whether every current player has answered at key.
// False when there are no players, false when nothing has been submitted.
func AllAnswered(state GameState, key string, playerCount int) bool {
	n := len(stateAnswers(state, key))
	return playerCount > 0 && n > 0 && n >= playerCount
}

// PlayerAnswer returns playerID's submitted value at key.
func PlayerAnswer(state GameState, key, playerID string) (any, bool) {
	a, ok := stateAnswers(state, key)[playerID]
	if !ok {
		return nil, false
	}
	return a.Answer, true
}

// stateInt reads an integer progression field, tolerating the numeric types
// a JSON round trip can produce.
func stateInt(state GameState, key string) int {
	if state == nil {
		return 0
	}
	switch v := state[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func stateString(state GameState, key string) string {
	if state == nil {
		return ""
	}
	s, _ := state[key].(string)
	return s
}

func statePhase(state GameState) string {
	if state == nil {
		return ""
	}
	phase, _ := state["phase"].(string)
	return phase
}
