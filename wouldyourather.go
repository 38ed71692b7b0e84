// Would You Rather: the host draws a random set of binary-choice questions,
// both players answer each one, and answers are compared as the host steps
// through the deck. The host is the only writer of questions/currentIndex/
// phase; each player submits answers under their own id.

package main

import (
	_ "embed"
	"encoding/json"
	"strconv"
)

//go:embed data/would_you_rather.json
var wouldYouRatherJSON []byte

type WYRQuestion struct {
	OptionA string `json:"optionA"`
	OptionB string `json:"optionB"`
}

// Questions drawn per game run.
const wyrQuestionCount = 10

type wouldYouRatherGame struct {
	bank []WYRQuestion
}

func newWouldYouRatherGame() *wouldYouRatherGame {
	var bank struct {
		Questions []WYRQuestion `json:"questions"`
	}
	if err := json.Unmarshal(wouldYouRatherJSON, &bank); err != nil {
		panic("bad would-you-rather bank: " + err.Error())
	}
	return &wouldYouRatherGame{bank: bank.Questions}
}

func (g *wouldYouRatherGame) GameID() string {
	return "would-you-rather"
}

func (g *wouldYouRatherGame) HandleCommand(sess *playerSession, msg ClientMessage) error {
	switch msg.Type {
	case "start_game", "play_again":
		return g.start(sess)
	case "answer":
		return sess.answers.SubmitAnswer(msg.Key, msg.Value)
	case "next":
		return g.next(sess)
	}
	return nil
}

// start samples a fresh question set and resets the run. Also used for
// play-again, which clears the previous run's answers.
func (g *wouldYouRatherGame) start(sess *playerSession) error {
	if sess.prog == nil {
		return ErrNotHost
	}

	if err := sess.prog.UpdateGameState(GameState{
		"questions":    sample(g.bank, wyrQuestionCount),
		"currentIndex": 0,
		"answers":      map[string]map[string]Answer{},
		"phase":        "playing",
	}); err != nil {
		return err
	}
	return sess.prog.SetStatus(StatusPlaying)
}

// next advances the shared index; past the last question the run moves to
// results. The non-host client passively mirrors currentIndex.
func (g *wouldYouRatherGame) next(sess *playerSession) error {
	if sess.prog == nil {
		return ErrNotHost
	}

	room, ok := sess.gs.registry.Room(sess.code)
	if !ok {
		return ErrRoomNotFound
	}

	next := stateInt(room.GameState, "currentIndex") + 1
	if next >= wyrQuestionTotal(room.GameState) {
		return sess.prog.UpdateGameState(GameState{"phase": "results"})
	}
	return sess.prog.UpdateGameState(GameState{"currentIndex": next})
}

func wyrQuestionTotal(state GameState) int {
	if state == nil {
		return 0
	}
	qs, _ := state["questions"].([]WYRQuestion)
	return len(qs)
}

// wyrAllAnswered reports whether every current player has answered the
// question at index: the answer map there must hold at least playerCount
// entries and at least one.
func wyrAllAnswered(state GameState, index, playerCount int) bool {
	return AllAnswered(state, strconv.Itoa(index), playerCount)
}
