// Type Racer: the host deals a random passage, a shared countdown starts
// both players at the same moment, and every keystroke reports how far into
// the passage the player has typed correctly. First exact match wins the
// round; a rematch starts once both players flag ready.

package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"
)

//go:embed data/paragraphs.json
var paragraphsJSON []byte

// RaceWinner is the record written by the first player to finish.
type RaceWinner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type typeRacerGame struct {
	passages []string
}

func newTypeRacerGame() *typeRacerGame {
	var passages []string
	if err := json.Unmarshal(paragraphsJSON, &passages); err != nil {
		panic("bad passage bank: " + err.Error())
	}
	return &typeRacerGame{passages: passages}
}

func (g *typeRacerGame) GameID() string {
	return "type-racer"
}

func (g *typeRacerGame) HandleCommand(sess *playerSession, msg ClientMessage) error {
	switch msg.Type {
	case "start_game":
		return g.startRound(sess, 1)
	case "keystroke":
		return g.keystroke(sess, msg.Typed)
	case "ready":
		return g.ready(sess)
	}
	return nil
}

// startRound deals a fresh passage and opens the countdown. The round
// counter increments every round so clients can tell a new countdown from
// one they have already processed.
func (g *typeRacerGame) startRound(sess *playerSession, round int) error {
	if sess.prog == nil {
		return ErrNotHost
	}

	passage := g.passages[cryptoIntn(len(g.passages))]

	if err := sess.prog.UpdateGameState(GameState{
		"paragraph": passage,
		"phase":     "countdown",
		"round":     round,
		"winner":    nil,
		"answers":   map[string]map[string]Answer{},
	}); err != nil {
		return err
	}
	if err := sess.prog.SetStatus(StatusPlaying); err != nil {
		return err
	}

	prog := sess.prog
	cfg := sess.gs.cfg
	code := sess.code
	registry := sess.gs.registry

	// Both clients start typing when the shared phase flips to playing.
	time.AfterFunc(cfg.countdown, func() {
		room, ok := registry.Room(code)
		if !ok {
			return
		}
		if stateInt(room.GameState, "round") != round || statePhase(room.GameState) != "countdown" {
			return
		}
		if err := prog.UpdateGameState(GameState{"phase": "playing"}); err != nil {
			logf(cfg, "GAMES: type-racer round %d start failed in %s: %v", round, code, err)
		}
	})
	return nil
}

func (g *typeRacerGame) keystroke(sess *playerSession, typed string) error {
	room, ok := sess.gs.registry.Room(sess.code)
	if !ok {
		return ErrRoomNotFound
	}

	state := room.GameState
	if statePhase(state) != "playing" || raceWinnerID(state) != "" {
		return nil
	}

	passage := stateString(state, "paragraph")
	if passage == "" {
		return nil
	}
	round := stateInt(state, "round")

	if err := sess.answers.SubmitAnswer(progressKey(round), typingProgress(typed, passage)); err != nil {
		return err
	}

	if typed == passage {
		name := room.Players[sess.client.playerID].Name
		if _, err := sess.channel.ClaimWin(sess.client.playerID, name, round); err != nil {
			return err
		}
	}
	return nil
}

func (g *typeRacerGame) ready(sess *playerSession) error {
	room, ok := sess.gs.registry.Room(sess.code)
	if !ok {
		return ErrRoomNotFound
	}

	round := stateInt(room.GameState, "round")
	return sess.answers.SubmitAnswer(rematchKey(round), true)
}

// OnRoomUpdate lets the host observe both rematch flags and start the next
// round.
func (g *typeRacerGame) OnRoomUpdate(sess *playerSession, room Room) {
	if sess.prog == nil {
		return
	}

	state := room.GameState
	if raceWinnerID(state) == "" {
		return
	}
	if len(room.Players) == 0 {
		return
	}

	round := stateInt(state, "round")
	if len(stateAnswers(state, rematchKey(round))) < len(room.Players) {
		return
	}

	if err := g.startRound(sess, round+1); err != nil {
		logf(sess.gs.cfg, "GAMES: type-racer rematch failed in %s: %v", sess.code, err)
	}
}

// ClaimWin writes the winner record for round, first claim wins: once a
// winner is present, later claims are ignored.
func (c *GameStateChannel) ClaimWin(playerID, name string, round int) (bool, error) {
	won := false
	err := writeRetry(c.cfg, func() error {
		return c.store.Update(c.code, func(room *Room) error {
			won = false
			if room.GameState == nil {
				return nil
			}
			if stateInt(room.GameState, "round") != round {
				return nil
			}
			if winner, _ := room.GameState["winner"].(RaceWinner); winner.ID != "" {
				return nil
			}
			room.GameState["winner"] = RaceWinner{
				ID:   playerID,
				Name: name,
			}
			won = true
			return nil
		})
	})
	return won, err
}

// typingProgress is the completion percentage: leading characters matching
// the target passage, stopping at the first mismatch, over passage length.
func typingProgress(typed, target string) float64 {
	targetRunes := []rune(target)
	if len(targetRunes) == 0 {
		return 0
	}

	correct := 0
	for i, r := range []rune(typed) {
		if i >= len(targetRunes) || targetRunes[i] != r {
			break
		}
		correct++
	}

	return float64(correct) / float64(len(targetRunes)) * 100
}

func progressKey(round int) string {
	return fmt.Sprintf("progress:%d", round)
}

func rematchKey(round int) string {
	return fmt.Sprintf("rematch:%d", round)
}

func raceWinnerID(state GameState) string {
	if state == nil {
		return ""
	}
	winner, _ := state["winner"].(RaceWinner)
	return winner.ID
}
