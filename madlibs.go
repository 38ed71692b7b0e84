// Relationship Mad Libs: one random story template, its blanks split
// between the two players, each filling their half without seeing the
// other's. When both have submitted, the completed story is revealed.

package main

import (
	_ "embed"
	"encoding/json"
	"sort"
	"strings"
)

//go:embed data/mad_libs.json
var madLibsJSON []byte

type MadLibsBlank struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type MadLibsTemplate struct {
	Title  string         `json:"title"`
	Story  string         `json:"story"`
	Blanks []MadLibsBlank `json:"blanks"`
}

// Rendered in place of a blank nobody filled.
const blankFallback = "___"

// All blank values go under this single answer key, one submission per
// player tagged submitted:true.
const blanksAnswerKey = "blanks"

type madLibsGame struct {
	templates []MadLibsTemplate
}

func newMadLibsGame() *madLibsGame {
	var bank struct {
		Templates []MadLibsTemplate `json:"templates"`
	}
	if err := json.Unmarshal(madLibsJSON, &bank); err != nil {
		panic("bad mad-libs bank: " + err.Error())
	}
	return &madLibsGame{templates: bank.Templates}
}

func (g *madLibsGame) GameID() string {
	return "relationship-mad-libs"
}

func (g *madLibsGame) HandleCommand(sess *playerSession, msg ClientMessage) error {
	switch msg.Type {
	case "start_game":
		return g.startStory(sess, 0)
	case "submit_blanks":
		return g.submit(sess, msg.Blanks)
	case "next_story":
		room, ok := sess.gs.registry.Room(sess.code)
		if !ok {
			return ErrRoomNotFound
		}
		return g.startStory(sess, stateInt(room.GameState, "storyIndex")+1)
	}
	return nil
}

func (g *madLibsGame) startStory(sess *playerSession, storyIndex int) error {
	if sess.prog == nil {
		return ErrNotHost
	}

	template := g.templates[cryptoIntn(len(g.templates))]

	if err := sess.prog.UpdateGameState(GameState{
		"template":   template,
		"phase":      "filling",
		"answers":    map[string]map[string]Answer{},
		"storyIndex": storyIndex,
	}); err != nil {
		return err
	}
	return sess.prog.SetStatus(StatusPlaying)
}

// submit writes the player's whole set of blank values as one atomic
// submission, tagged submitted:true.
func (g *madLibsGame) submit(sess *playerSession, blanks map[string]string) error {
	payload := make(map[string]any, len(blanks)+1)
	for id, value := range blanks {
		payload[id] = value
	}
	payload["submitted"] = true

	return sess.answers.SubmitAnswer(blanksAnswerKey, payload)
}

// OnRoomUpdate lets the host observe "everyone submitted" from the
// replicated state and move the room to the reveal phase.
func (g *madLibsGame) OnRoomUpdate(sess *playerSession, room Room) {
	if sess.prog == nil {
		return
	}
	if statePhase(room.GameState) != "filling" {
		return
	}
	if len(room.Players) == 0 {
		return
	}
	if madLibsSubmittedCount(room.GameState) < len(room.Players) {
		return
	}

	if err := sess.prog.UpdateGameState(GameState{"phase": "reveal"}); err != nil {
		logf(sess.gs.cfg, "GAMES: relationship-mad-libs reveal failed in %s: %v", sess.code, err)
	}
}

// assignBlanks partitions a template's blanks between the two players by
// index parity: players sorted by id, sorted-index 0 takes even-indexed
// blanks, sorted-index 1 takes odd-indexed ones.
func assignBlanks(blanks []MadLibsBlank, playerIDs []string, playerID string) []MadLibsBlank {
	sorted := make([]string, len(playerIDs))
	copy(sorted, playerIDs)
	sort.Strings(sorted)

	myIndex := -1
	for i, id := range sorted {
		if id == playerID {
			myIndex = i
			break
		}
	}
	if myIndex < 0 {
		return nil
	}

	var assigned []MadLibsBlank
	for i, blank := range blanks {
		if i%2 == myIndex {
			assigned = append(assigned, blank)
		}
	}
	return assigned
}

func madLibsSubmittedCount(state GameState) int {
	count := 0
	for _, a := range stateAnswers(state, blanksAnswerKey) {
		values, ok := a.Answer.(map[string]any)
		if !ok {
			continue
		}
		if submitted, _ := values["submitted"].(bool); submitted {
			count++
		}
	}
	return count
}

// collectBlankAnswers merges every player's submitted values into one
// blank-id → value map.
func collectBlankAnswers(state GameState) map[string]string {
	merged := make(map[string]string)
	for _, a := range stateAnswers(state, blanksAnswerKey) {
		values, ok := a.Answer.(map[string]any)
		if !ok {
			continue
		}
		for id, v := range values {
			if id == "submitted" {
				continue
			}
			if s, ok := v.(string); ok {
				merged[id] = s
			}
		}
	}
	return merged
}

// renderStory substitutes every stored value back into the template text by
// literal placeholder replacement: {blankId} → value, or the fallback
// marker when nobody filled that blank.
func renderStory(template MadLibsTemplate, answers map[string]string) string {
	story := template.Story
	for _, blank := range template.Blanks {
		value, ok := answers[blank.ID]
		if !ok || value == "" {
			value = blankFallback
		}
		story = strings.ReplaceAll(story, "{"+blank.ID+"}", value)
	}
	return story
}
