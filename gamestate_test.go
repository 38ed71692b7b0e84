package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressionWriterHostOnly(t *testing.T) {
	cfg, store, registry := newTestRegistry()

	code := createTestRoom(t, registry, "would-you-rather", "p1", "p2")
	channel := newGameStateChannel(cfg, store, code)

	_, err := channel.ProgressionWriter("p1")
	require.NoError(t, err)

	_, err = channel.ProgressionWriter("p2")
	assert.ErrorIs(t, err, ErrNotHost)

	_, err = newGameStateChannel(cfg, store, "NOPE22").ProgressionWriter("p1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestUpdateGameStateShallowMerge(t *testing.T) {
	cfg, store, registry := newTestRegistry()

	code := createTestRoom(t, registry, "would-you-rather", "p1", "p2")
	channel := newGameStateChannel(cfg, store, code)

	prog, err := channel.ProgressionWriter("p1")
	require.NoError(t, err)

	require.NoError(t, prog.UpdateGameState(GameState{
		"phase":        "playing",
		"currentIndex": 0,
	}))
	require.NoError(t, prog.UpdateGameState(GameState{
		"currentIndex": 1,
	}))

	room, _ := store.Get(code)
	assert.Equal(t, "playing", statePhase(room.GameState), "untouched keys survive")
	assert.Equal(t, 1, stateInt(room.GameState, "currentIndex"))
}

func TestSetStatus(t *testing.T) {
	cfg, store, registry := newTestRegistry()

	code := createTestRoom(t, registry, "would-you-rather", "p1", "p2")
	prog, err := newGameStateChannel(cfg, store, code).ProgressionWriter("p1")
	require.NoError(t, err)

	require.NoError(t, prog.SetStatus(StatusPlaying))

	room, _ := store.Get(code)
	assert.Equal(t, StatusPlaying, room.Status)
}

func TestSubmitAnswerIsAdditive(t *testing.T) {
	cfg, store, registry := newTestRegistry()

	code := createTestRoom(t, registry, "would-you-rather", "p1", "p2")
	channel := newGameStateChannel(cfg, store, code)

	require.NoError(t, channel.AnswerSubmitter("p1").SubmitAnswer("0", "optionA"))
	require.NoError(t, channel.AnswerSubmitter("p2").SubmitAnswer("0", "optionB"))

	room, _ := store.Get(code)

	a, ok := PlayerAnswer(room.GameState, "0", "p1")
	require.True(t, ok)
	assert.Equal(t, "optionA", a)

	b, ok := PlayerAnswer(room.GameState, "0", "p2")
	require.True(t, ok)
	assert.Equal(t, "optionB", b)
}

func TestSubmitAnswerOverwritesOwnEntry(t *testing.T) {
	cfg, store, registry := newTestRegistry()

	code := createTestRoom(t, registry, "would-you-rather", "p1", "p2")
	submitter := newGameStateChannel(cfg, store, code).AnswerSubmitter("p1")

	require.NoError(t, submitter.SubmitAnswer("0", "optionA"))
	require.NoError(t, submitter.SubmitAnswer("0", "optionB"))

	room, _ := store.Get(code)
	a, _ := PlayerAnswer(room.GameState, "0", "p1")
	assert.Equal(t, "optionB", a)
	assert.Len(t, stateAnswers(room.GameState, "0"), 1)
}

func TestSubmitAnswerRoomGone(t *testing.T) {
	cfg, store, _ := newTestRegistry()

	submitter := newGameStateChannel(cfg, store, "NOPE22").AnswerSubmitter("p1")
	assert.ErrorIs(t, submitter.SubmitAnswer("0", "optionA"), ErrRoomNotFound)
}

func TestDerivedQueriesNilSafe(t *testing.T) {
	assert.False(t, HasAnswered(nil, "0", "p1"))
	assert.False(t, AllAnswered(nil, "0", 2))

	_, ok := PlayerAnswer(nil, "0", "p1")
	assert.False(t, ok)

	assert.Equal(t, 0, stateInt(nil, "currentIndex"))
	assert.Equal(t, "", statePhase(nil))
}

func TestAllAnswered(t *testing.T) {
	state := GameState{
		"answers": map[string]map[string]Answer{
			"0": {"p1": {Answer: "optionA"}},
		},
	}

	assert.False(t, AllAnswered(state, "0", 2), "one of two")
	assert.False(t, AllAnswered(state, "1", 2), "nothing at key")
	assert.False(t, AllAnswered(state, "0", 0), "no players means never complete")
	assert.True(t, AllAnswered(state, "0", 1))

	state["answers"].(map[string]map[string]Answer)["0"]["p2"] = Answer{Answer: "optionB"}
	assert.True(t, AllAnswered(state, "0", 2))

	// A leaver shrinking the roster can only unblock, never re-block.
	assert.True(t, AllAnswered(state, "0", 1))
}

func TestHasAnswered(t *testing.T) {
	cfg, store, registry := newTestRegistry()

	code := createTestRoom(t, registry, "would-you-rather", "p1", "p2")
	require.NoError(t, newGameStateChannel(cfg, store, code).AnswerSubmitter("p1").SubmitAnswer("2", true))

	room, _ := store.Get(code)
	assert.True(t, HasAnswered(room.GameState, "2", "p1"))
	assert.False(t, HasAnswered(room.GameState, "2", "p2"))
}
