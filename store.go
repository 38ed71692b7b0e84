package main

import (
	"sync"
	"time"
)

// RoomSnapshot is what watchers receive on every change. Deleted marks the
// room as gone; the rest of the snapshot is the last observed contents.
type RoomSnapshot struct {
	Room    Room
	Deleted bool
}

// RoomWatch is a subscription to one room's changes. Snapshots are coalesced:
// a watcher that falls behind sees the latest state, never a stale backlog,
// and never blocks a writer.
type RoomWatch struct {
	C chan RoomSnapshot

	code string
}

type roomRecord struct {
	room       Room
	lastActive time.Time
	watchers   map[*RoomWatch]struct{}
}

// RoomStore is the replicated-state backend: a process-local, subscribable
// room table with atomic record writes, partial game-state merges, deletes,
// push-based change notification, and server-assigned timestamps.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*roomRecord
	clock func() time.Time
}

func newRoomStore(idleTimeout time.Duration) *RoomStore {
	s := &RoomStore{
		rooms: make(map[string]*roomRecord),
		clock: time.Now,
	}
	if idleTimeout > 0 {
		go s.reaperLoop(idleTimeout)
	}
	return s
}

// Now returns the store's server timestamp.
func (s *RoomStore) Now() time.Time {
	return s.clock()
}

func (s *RoomStore) Create(room Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room.Code]; exists {
		return ErrRoomExists
	}

	s.rooms[room.Code] = &roomRecord{
		room:       room,
		lastActive: s.clock(),
		watchers:   make(map[*RoomWatch]struct{}),
	}
	return nil
}

func (s *RoomStore) Get(code string) (Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rooms[code]
	if !ok {
		return Room{}, false
	}
	return cloneRoom(rec.room), true
}

// Update applies fn to the room under the store lock, so the mutation is
// visible to watchers as a single change. fn returning an error aborts the
// update without notifying anyone.
func (s *RoomStore) Update(code string, fn func(*Room) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	if err := fn(&rec.room); err != nil {
		return err
	}

	rec.lastActive = s.clock()
	s.notifyLocked(rec)
	return nil
}

// MergeGameState merges partial into the room's game state at the top level.
// Nested values under a merged key are replaced wholesale, not deep-merged;
// last writer wins.
func (s *RoomStore) MergeGameState(code string, partial GameState) error {
	return s.Update(code, func(room *Room) error {
		if room.GameState == nil {
			room.GameState = make(GameState, len(partial))
		}
		for k, v := range partial {
			room.GameState[k] = v
		}
		return nil
	})
}

func (s *RoomStore) Remove(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	delete(s.rooms, code)

	snap := RoomSnapshot{Room: cloneRoom(rec.room), Deleted: true}
	for w := range rec.watchers {
		w.deliver(snap)
		close(w.C)
	}
	rec.watchers = nil
	return nil
}

// Watch subscribes to a room's changes. The current snapshot is delivered
// immediately so a new subscriber does not have to wait for the next write.
func (s *RoomStore) Watch(code string) (*RoomWatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}

	w := &RoomWatch{
		C:    make(chan RoomSnapshot, 8),
		code: code,
	}
	rec.watchers[w] = struct{}{}
	w.deliver(RoomSnapshot{Room: cloneRoom(rec.room)})
	return w, nil
}

func (s *RoomStore) Unwatch(w *RoomWatch) {
	if w == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.rooms[w.code]; ok {
		if _, present := rec.watchers[w]; present {
			delete(rec.watchers, w)
			close(w.C)
		}
	}
}

func (s *RoomStore) notifyLocked(rec *roomRecord) {
	snap := RoomSnapshot{Room: cloneRoom(rec.room)}
	for w := range rec.watchers {
		w.deliver(snap)
	}
}

// deliver drops the oldest queued snapshot when the watcher's buffer is
// full, keeping only the freshest state for a slow consumer.
func (w *RoomWatch) deliver(snap RoomSnapshot) {
	for {
		select {
		case w.C <- snap:
			return
		default:
			select {
			case <-w.C:
			default:
			}
		}
	}
}

// reaperLoop periodically removes rooms that have been idle longer than
// idleTimeout. Watchers observe the deletion like any other teardown.
func (s *RoomStore) reaperLoop(idleTimeout time.Duration) {
	ticker := time.NewTicker(idleTimeout / 2)
	for range ticker.C {
		cutoff := s.clock().Add(-idleTimeout)

		s.mu.Lock()
		var stale []string
		for code, rec := range s.rooms {
			if rec.lastActive.Before(cutoff) {
				stale = append(stale, code)
			}
		}
		s.mu.Unlock()

		for _, code := range stale {
			_ = s.Remove(code)
		}
	}
}

func cloneRoom(room Room) Room {
	out := room

	if room.Players != nil {
		out.Players = make(map[string]Player, len(room.Players))
		for id, p := range room.Players {
			out.Players[id] = p
		}
	}

	if room.GameState != nil {
		out.GameState = make(GameState, len(room.GameState))
		for k, v := range room.GameState {
			out.GameState[k] = v
		}
		// The answers map is the one nested structure mutated in place by
		// submissions, so it gets its own copy.
		if answers, ok := room.GameState["answers"].(map[string]map[string]Answer); ok {
			cp := make(map[string]map[string]Answer, len(answers))
			for key, byPlayer := range answers {
				inner := make(map[string]Answer, len(byPlayer))
				for id, a := range byPlayer {
					inner[id] = a
				}
				cp[key] = inner
			}
			out.GameState["answers"] = cp
		}
	}

	return out
}
