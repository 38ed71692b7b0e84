package main

import (
	"fmt"
	"time"
)

type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

// Player is one of the (at most two) participants in a room.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	IsHost   bool      `json:"isHost"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Answer is one player's submission for one round/question/blank key.
type Answer struct {
	Answer    any       `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// GameState is the game-defined payload replicated to both players. Only
// the top level is merged on update; the host writes progression fields,
// each player writes their own entries under "answers".
type GameState map[string]any

// Room is the unit of a single two-player play session, addressed by a
// short code.
type Room struct {
	Code      string            `json:"code"`
	GameID    string            `json:"gameId"`
	HostID    string            `json:"hostId"`
	Status    RoomStatus        `json:"status"`
	Players   map[string]Player `json:"players"`
	GameState GameState         `json:"gameState"`
	CreatedAt time.Time         `json:"createdAt"`
}

const maxPlayersPerRoom = 2

// RoomRegistry manages room lifecycle: creation, join admission, membership
// teardown, and status transitions, on top of the RoomStore.
type RoomRegistry struct {
	cfg   *Config
	store *RoomStore
}

func newRoomRegistry(cfg *Config, store *RoomStore) *RoomRegistry {
	return &RoomRegistry{
		cfg:   cfg,
		store: store,
	}
}

// CreateRoom generates a fresh code (re-rolled on a live collision) and
// writes a waiting room holding only the creator, who becomes the host.
func (r *RoomRegistry) CreateRoom(gameID, hostID, hostName string) (string, error) {
	if hostName == "" {
		hostName = "Player 1"
	}

	for {
		code := newRoomCode()
		now := r.store.Now()

		err := r.store.Create(Room{
			Code:   code,
			GameID: gameID,
			HostID: hostID,
			Status: StatusWaiting,
			Players: map[string]Player{
				hostID: {
					ID:       hostID,
					Name:     hostName,
					IsHost:   true,
					JoinedAt: now,
				},
			},
			CreatedAt: now,
		})
		if err == ErrRoomExists {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create room: %w", err)
		}

		logf(r.cfg, "ROOMS: Created room %s for %s", code, gameID)
		return code, nil
	}
}

// JoinRoom adds a player to the room at code. A player id already present
// rejoins idempotently, keeping its original entry, so a refresh does not
// count as a third player. Returns the normalized code.
func (r *RoomRegistry) JoinRoom(code, playerID, name string) (string, error) {
	code = normalizeRoomCode(code)
	if name == "" {
		name = "Player 2"
	}

	err := r.store.Update(code, func(room *Room) error {
		if _, rejoining := room.Players[playerID]; rejoining {
			return nil
		}
		if len(room.Players) >= maxPlayersPerRoom {
			return ErrRoomFull
		}

		room.Players[playerID] = Player{
			ID:       playerID,
			Name:     name,
			IsHost:   false,
			JoinedAt: r.store.Now(),
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	logf(r.cfg, "ROOMS: Player %q joined %s", name, code)
	return code, nil
}

// LeaveRoom removes the player's entry. The host leaving deletes the whole
// room, tearing down the session for the remaining player too; a room left
// with zero players is deleted as well.
func (r *RoomRegistry) LeaveRoom(code, playerID string) error {
	room, ok := r.store.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	if playerID == room.HostID {
		logf(r.cfg, "ROOMS: Host left, deleting room %s", code)
		return r.store.Remove(code)
	}

	empty := false
	err := r.store.Update(code, func(room *Room) error {
		delete(room.Players, playerID)
		empty = len(room.Players) == 0
		return nil
	})
	if err != nil {
		return err
	}

	if empty {
		return r.store.Remove(code)
	}
	return nil
}

// Watch subscribes to live room contents. A deleted room is delivered as a
// snapshot with Deleted set; the subscriber must treat it as a forced
// return to the unconnected state.
func (r *RoomRegistry) Watch(code string) (*RoomWatch, error) {
	return r.store.Watch(normalizeRoomCode(code))
}

func (r *RoomRegistry) Unwatch(w *RoomWatch) {
	r.store.Unwatch(w)
}

// Room returns a point-in-time snapshot of the room at code.
func (r *RoomRegistry) Room(code string) (Room, bool) {
	return r.store.Get(normalizeRoomCode(code))
}
