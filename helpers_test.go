package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		bind:        "127.0.0.1",
		port:        8080,
		countdown:   20 * time.Millisecond,
		playerGrace: 20 * time.Millisecond,
	}
}

func newTestRegistry() (*Config, *RoomStore, *RoomRegistry) {
	cfg := testConfig()
	store := newRoomStore(0)
	return cfg, store, newRoomRegistry(cfg, store)
}

// newTestSession wires a playerSession the way gameServer.attach does, minus
// the websocket: capabilities minted against the live room, no watch loop.
func newTestSession(t *testing.T, cfg *Config, store *RoomStore, registry *RoomRegistry, game GameController, code, playerID string) *playerSession {
	t.Helper()

	gs := newGameServer(cfg, "/"+game.GameID(), registry, store, game)
	channel := newGameStateChannel(cfg, store, code)

	prog, err := channel.ProgressionWriter(playerID)
	if err != nil {
		require.ErrorIs(t, err, ErrNotHost)
		prog = nil
	}

	return &playerSession{
		gs:      gs,
		client:  &Client{send: make(chan any, 8), done: make(chan struct{}), playerID: playerID},
		code:    code,
		isHost:  prog != nil,
		channel: channel,
		prog:    prog,
		answers: channel.AnswerSubmitter(playerID),
	}
}

// createTestRoom creates a room with both players joined.
func createTestRoom(t *testing.T, registry *RoomRegistry, gameID, hostID, guestID string) string {
	t.Helper()

	code, err := registry.CreateRoom(gameID, hostID, "Avery")
	require.NoError(t, err)

	_, err = registry.JoinRoom(code, guestID, "Blake")
	require.NoError(t, err)

	return code
}
