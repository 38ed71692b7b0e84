package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoom(code string) Room {
	return Room{
		Code:   code,
		GameID: "would-you-rather",
		HostID: "p1",
		Status: StatusWaiting,
		Players: map[string]Player{
			"p1": {ID: "p1", Name: "Avery", IsHost: true},
		},
	}
}

func TestStoreCreateCollision(t *testing.T) {
	store := newRoomStore(0)

	require.NoError(t, store.Create(testRoom("AAAAAA")))
	assert.ErrorIs(t, store.Create(testRoom("AAAAAA")), ErrRoomExists)
}

func TestStoreGetReturnsCopy(t *testing.T) {
	store := newRoomStore(0)
	require.NoError(t, store.Create(testRoom("AAAAAA")))

	room, ok := store.Get("AAAAAA")
	require.True(t, ok)

	room.Players["p2"] = Player{ID: "p2"}

	again, _ := store.Get("AAAAAA")
	assert.Len(t, again.Players, 1, "mutating a snapshot must not leak into the store")
}

func TestStoreMergeGameStateIsShallow(t *testing.T) {
	store := newRoomStore(0)
	require.NoError(t, store.Create(testRoom("AAAAAA")))

	require.NoError(t, store.MergeGameState("AAAAAA", GameState{
		"currentIndex": 0,
		"meta":         map[string]any{"a": 1, "b": 2},
	}))
	require.NoError(t, store.MergeGameState("AAAAAA", GameState{
		"meta": map[string]any{"c": 3},
	}))

	room, _ := store.Get("AAAAAA")

	// Untouched keys survive, merged keys are replaced wholesale.
	assert.Equal(t, 0, room.GameState["currentIndex"])
	assert.Equal(t, map[string]any{"c": 3}, room.GameState["meta"])
}

func TestStoreWatchDeliversImmediatelyAndOnChange(t *testing.T) {
	store := newRoomStore(0)
	require.NoError(t, store.Create(testRoom("AAAAAA")))

	watch, err := store.Watch("AAAAAA")
	require.NoError(t, err)
	defer store.Unwatch(watch)

	snap := <-watch.C
	assert.False(t, snap.Deleted)
	assert.Equal(t, "AAAAAA", snap.Room.Code)

	require.NoError(t, store.Update("AAAAAA", func(room *Room) error {
		room.Status = StatusPlaying
		return nil
	}))

	snap = <-watch.C
	assert.Equal(t, StatusPlaying, snap.Room.Status)
}

func TestStoreWatchMissingRoom(t *testing.T) {
	store := newRoomStore(0)

	_, err := store.Watch("NOPE22")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestStoreRemoveSignalsWatchers(t *testing.T) {
	store := newRoomStore(0)
	require.NoError(t, store.Create(testRoom("AAAAAA")))

	watch, err := store.Watch("AAAAAA")
	require.NoError(t, err)
	<-watch.C

	require.NoError(t, store.Remove("AAAAAA"))

	snap := <-watch.C
	assert.True(t, snap.Deleted)

	_, open := <-watch.C
	assert.False(t, open, "watch channel closes after deletion")
}

func TestStoreWatchCoalescesWhenSlow(t *testing.T) {
	store := newRoomStore(0)
	require.NoError(t, store.Create(testRoom("AAAAAA")))

	watch, err := store.Watch("AAAAAA")
	require.NoError(t, err)
	defer store.Unwatch(watch)

	// More writes than the watch buffer holds; none of them may block.
	for i := 0; i < 50; i++ {
		i := i
		require.NoError(t, store.Update("AAAAAA", func(room *Room) error {
			if room.GameState == nil {
				room.GameState = make(GameState)
			}
			room.GameState["currentIndex"] = i
			return nil
		}))
	}

	var last int
	for {
		select {
		case snap := <-watch.C:
			last = stateInt(snap.Room.GameState, "currentIndex")
			continue
		default:
		}
		break
	}

	assert.Equal(t, 49, last, "the freshest snapshot survives coalescing")
}

func TestStoreReaperRemovesIdleRooms(t *testing.T) {
	store := newRoomStore(40 * time.Millisecond)
	require.NoError(t, store.Create(testRoom("AAAAAA")))

	assert.Eventually(t, func() bool {
		_, ok := store.Get("AAAAAA")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestStoreUpdateAbortsOnError(t *testing.T) {
	store := newRoomStore(0)
	require.NoError(t, store.Create(testRoom("AAAAAA")))

	err := store.Update("AAAAAA", func(room *Room) error {
		room.Status = StatusFinished
		return ErrRoomFull
	})
	assert.ErrorIs(t, err, ErrRoomFull)
}
