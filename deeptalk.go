// Deep Talk Deck: the host picks how many conversation cards to draw and
// from which categories, the deck is dealt and shuffled once, and the host
// flips through it card by card while both players talk.

package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"
)

//go:embed data/deep_talk.json
var deepTalkJSON []byte

type DeckCard struct {
	Category string `json:"category"`
	Prompt   string `json:"prompt"`
}

// Delay before revealing the next card, matching the card-flip transition.
const deckFlipDelay = 300 * time.Millisecond

type deepTalkGame struct {
	bank map[string][]string
}

func newDeepTalkGame() *deepTalkGame {
	var bank struct {
		Categories map[string][]string `json:"categories"`
	}
	if err := json.Unmarshal(deepTalkJSON, &bank); err != nil {
		panic("bad deep-talk bank: " + err.Error())
	}
	return &deepTalkGame{bank: bank.Categories}
}

func (g *deepTalkGame) GameID() string {
	return "deep-talk-deck"
}

func (g *deepTalkGame) HandleCommand(sess *playerSession, msg ClientMessage) error {
	switch msg.Type {
	case "start_game", "play_again":
		return g.setup(sess)
	case "start_deck":
		return g.startDeck(sess, msg.TotalCards, msg.Categories)
	case "next":
		return g.next(sess)
	}
	return nil
}

// setup moves both players to the category/count selection screen. Play
// again routes here too, discarding the previous deck.
func (g *deepTalkGame) setup(sess *playerSession) error {
	if sess.prog == nil {
		return ErrNotHost
	}

	if err := sess.prog.UpdateGameState(GameState{
		"cards":        []DeckCard{},
		"currentIndex": 0,
		"phase":        "setup",
	}); err != nil {
		return err
	}
	return sess.prog.SetStatus(StatusPlaying)
}

func (g *deepTalkGame) startDeck(sess *playerSession, total int, categories []string) error {
	if sess.prog == nil {
		return ErrNotHost
	}

	deck, err := buildDeck(g.bank, total, categories)
	if err != nil {
		return err
	}

	return sess.prog.UpdateGameState(GameState{
		"cards":        deck,
		"currentIndex": 0,
		"totalCards":   len(deck),
		"phase":        "playing",
	})
}

// next flips to the following card after the transition delay; past the
// last card the deck is complete. The non-host mirrors currentIndex.
func (g *deepTalkGame) next(sess *playerSession) error {
	if sess.prog == nil {
		return ErrNotHost
	}

	room, ok := sess.gs.registry.Room(sess.code)
	if !ok {
		return ErrRoomNotFound
	}

	next := stateInt(room.GameState, "currentIndex") + 1
	if next >= deckSize(room.GameState) {
		return sess.prog.UpdateGameState(GameState{"phase": "complete"})
	}

	prog := sess.prog
	cfg := sess.gs.cfg
	code := sess.code
	registry := sess.gs.registry

	time.AfterFunc(deckFlipDelay, func() {
		// The deck may have been reset mid-flip.
		room, ok := registry.Room(code)
		if !ok || statePhase(room.GameState) != "playing" {
			return
		}
		if err := prog.UpdateGameState(GameState{"currentIndex": next}); err != nil {
			logf(cfg, "GAMES: deep-talk-deck flip failed in %s: %v", code, err)
		}
	})
	return nil
}

// distributeCards splits total across the selected categories:
// floor(total/n) each, with the remainder giving one extra card to the
// first (total mod n) categories in selection order.
func distributeCards(total int, categories []string) map[string]int {
	n := len(categories)
	if n == 0 {
		return nil
	}

	base := total / n
	remainder := total % n

	distribution := make(map[string]int, n)
	for i, cat := range categories {
		count := base
		if i < remainder {
			count++
		}
		distribution[cat] = count
	}
	return distribution
}

// buildDeck deals the distributed counts from each category without
// replacement, concatenates in selection order, then shuffles the whole
// deck once more.
func buildDeck(bank map[string][]string, total int, categories []string) ([]DeckCard, error) {
	if total <= 0 {
		return nil, fmt.Errorf("invalid card count: %d", total)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories selected")
	}

	distribution := distributeCards(total, categories)

	var deck []DeckCard
	for _, cat := range categories {
		prompts, ok := bank[cat]
		if !ok {
			return nil, fmt.Errorf("unknown category: %s", cat)
		}
		for _, prompt := range sample(prompts, distribution[cat]) {
			deck = append(deck, DeckCard{
				Category: cat,
				Prompt:   prompt,
			})
		}
	}

	return shuffled(deck), nil
}

func deckSize(state GameState) int {
	if state == nil {
		return 0
	}
	cards, _ := state["cards"].([]DeckCard)
	return len(cards)
}
