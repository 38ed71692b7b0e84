package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMadLibsBank(t *testing.T) {
	game := newMadLibsGame()

	require.NotEmpty(t, game.templates)
	for _, tmpl := range game.templates {
		assert.NotEmpty(t, tmpl.Title)
		assert.NotEmpty(t, tmpl.Blanks)
		for _, blank := range tmpl.Blanks {
			assert.Contains(t, tmpl.Story, "{"+blank.ID+"}",
				"%s: every blank appears in the story", tmpl.Title)
		}
	}
}

func TestAssignBlanks(t *testing.T) {
	blanks := []MadLibsBlank{
		{ID: "b0"}, {ID: "b1"}, {ID: "b2"}, {ID: "b3"},
	}
	// Sorted order decides parity, not join order.
	players := []string{"zz-second", "aa-first"}

	first := assignBlanks(blanks, players, "aa-first")
	second := assignBlanks(blanks, players, "zz-second")

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Equal(t, "b0", first[0].ID)
	assert.Equal(t, "b2", first[1].ID)
	assert.Equal(t, "b1", second[0].ID)
	assert.Equal(t, "b3", second[1].ID)
}

func TestAssignBlanksOddCount(t *testing.T) {
	blanks := []MadLibsBlank{{ID: "b0"}, {ID: "b1"}, {ID: "b2"}}
	players := []string{"p1", "p2"}

	first := assignBlanks(blanks, players, "p1")
	second := assignBlanks(blanks, players, "p2")

	// Every blank belongs to exactly one player.
	assert.Len(t, first, 2)
	assert.Len(t, second, 1)
	assert.Len(t, append(first, second...), len(blanks))
}

func TestAssignBlanksUnknownPlayer(t *testing.T) {
	blanks := []MadLibsBlank{{ID: "b0"}}
	assert.Nil(t, assignBlanks(blanks, []string{"p1", "p2"}, "p3"))
}

func TestRenderStory(t *testing.T) {
	template := MadLibsTemplate{
		Story: "We went to {place} and ate {food}. {place} was great.",
		Blanks: []MadLibsBlank{
			{ID: "place"}, {ID: "food"},
		},
	}

	story := renderStory(template, map[string]string{
		"place": "Paris",
		"food":  "croissants",
	})
	assert.Equal(t, "We went to Paris and ate croissants. Paris was great.", story)
}

func TestRenderStoryFallback(t *testing.T) {
	template := MadLibsTemplate{
		Story:  "A {adjective} day",
		Blanks: []MadLibsBlank{{ID: "adjective"}},
	}

	assert.Equal(t, "A ___ day", renderStory(template, nil))
	assert.Equal(t, "A ___ day", renderStory(template, map[string]string{"adjective": ""}))
}

func TestMadLibsStartAndSubmit(t *testing.T) {
	cfg, store, registry := newTestRegistry()
	game := newMadLibsGame()

	code := createTestRoom(t, registry, game.GameID(), "p1", "p2")
	host := newTestSession(t, cfg, store, registry, game, code, "p1")
	guest := newTestSession(t, cfg, store, registry, game, code, "p2")

	require.NoError(t, game.HandleCommand(host, ClientMessage{Type: "start_game"}))

	room, _ := store.Get(code)
	assert.Equal(t, "filling", statePhase(room.GameState))
	assert.Equal(t, 0, stateInt(room.GameState, "storyIndex"))
	assert.Equal(t, StatusPlaying, room.Status)

	require.NoError(t, game.HandleCommand(host, ClientMessage{
		Type:   "submit_blanks",
		Blanks: map[string]string{"b0": "sparkly"},
	}))

	room, _ = store.Get(code)
	assert.Equal(t, 1, madLibsSubmittedCount(room.GameState))

	require.NoError(t, game.HandleCommand(guest, ClientMessage{
		Type:   "submit_blanks",
		Blanks: map[string]string{"b1": "penguin"},
	}))

	room, _ = store.Get(code)
	assert.Equal(t, 2, madLibsSubmittedCount(room.GameState))
	assert.Equal(t, map[string]string{
		"b0": "sparkly",
		"b1": "penguin",
	}, collectBlankAnswers(room.GameState))
}

func TestMadLibsHostRevealsWhenAllSubmitted(t *testing.T) {
	cfg, store, registry := newTestRegistry()
	game := newMadLibsGame()

	code := createTestRoom(t, registry, game.GameID(), "p1", "p2")
	host := newTestSession(t, cfg, store, registry, game, code, "p1")
	guest := newTestSession(t, cfg, store, registry, game, code, "p2")

	require.NoError(t, game.HandleCommand(host, ClientMessage{Type: "start_game"}))
	require.NoError(t, game.HandleCommand(host, ClientMessage{
		Type:   "submit_blanks",
		Blanks: map[string]string{"b0": "one"},
	}))

	// One of two submissions: not yet.
	room, _ := store.Get(code)
	game.OnRoomUpdate(host, room)
	room, _ = store.Get(code)
	assert.Equal(t, "filling", statePhase(room.GameState))

	require.NoError(t, game.HandleCommand(guest, ClientMessage{
		Type:   "submit_blanks",
		Blanks: map[string]string{"b1": "two"},
	}))

	room, _ = store.Get(code)
	game.OnRoomUpdate(host, room)
	room, _ = store.Get(code)
	assert.Equal(t, "reveal", statePhase(room.GameState))

	// The guest's reactor never writes progression.
	game.OnRoomUpdate(guest, room)
}

func TestMadLibsNextStory(t *testing.T) {
	cfg, store, registry := newTestRegistry()
	game := newMadLibsGame()

	code := createTestRoom(t, registry, game.GameID(), "p1", "p2")
	host := newTestSession(t, cfg, store, registry, game, code, "p1")

	require.NoError(t, game.HandleCommand(host, ClientMessage{Type: "start_game"}))
	require.NoError(t, game.HandleCommand(host, ClientMessage{
		Type:   "submit_blanks",
		Blanks: map[string]string{"b0": "stale"},
	}))

	require.NoError(t, game.HandleCommand(host, ClientMessage{Type: "next_story"}))

	room, _ := store.Get(code)
	assert.Equal(t, 1, stateInt(room.GameState, "storyIndex"))
	assert.Equal(t, "filling", statePhase(room.GameState))
	assert.Equal(t, 0, madLibsSubmittedCount(room.GameState), "previous answers cleared")
}
