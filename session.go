package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// ClientMessage is the envelope for everything a player sends. Type selects
// the command; the remaining fields are filled per command.
type ClientMessage struct {
	Type string `json:"type"`

	// create / join
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`

	// answer submission
	Key   string `json:"key,omitempty"`
	Value any    `json:"value,omitempty"`

	// deep-talk setup
	TotalCards int      `json:"totalCards,omitempty"`
	Categories []string `json:"categories,omitempty"`

	// mad-libs submission
	Blanks map[string]string `json:"blanks,omitempty"`

	// typing race
	Typed string `json:"typed,omitempty"`
}

// JoinedMessage confirms room entry to the requesting client only.
type JoinedMessage struct {
	Type     string `json:"type"` // "joined"
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
	IsHost   bool   `json:"isHost"`
}

// RoomMessage carries a full room snapshot on every replicated change.
type RoomMessage struct {
	Type string `json:"type"` // "room"
	Room Room   `json:"room"`
}

// RoomDeletedMessage signals that the room vanished out from under an
// active subscriber; the client must reset to its unconnected state.
type RoomDeletedMessage struct {
	Type    string `json:"type"` // "room_deleted"
	Message string `json:"message"`
}

// ErrorMessage surfaces create/join failures. In-game write failures are
// logged server-side and never surfaced.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// GameController is one game variant's state machine, driven by client
// commands against the session's capabilities.
type GameController interface {
	GameID() string
	HandleCommand(sess *playerSession, msg ClientMessage) error
}

// roomReactor is implemented by controllers that also react to replicated
// snapshots (the host observing "both players submitted" and advancing).
type roomReactor interface {
	OnRoomUpdate(sess *playerSession, room Room)
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	done     chan struct{}
	playerID string

	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// trySend queues msg for the write pump. A client too slow to drain its
// buffer is disconnected rather than allowed to block the sender.
func (c *Client) trySend(msg any) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		c.close()
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "couples_id"

// getOrSetPlayerID reads the player identity cookie, issuing a fresh id on
// first contact. The cookie is session-scoped, so a refresh keeps the same
// identity mid-game while a new browser session gets a new one.
func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := newPlayerID()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// playerSession binds one connected client to one room: its watch, its
// capabilities, and its role.
type playerSession struct {
	gs      *gameServer
	client  *Client
	code    string
	isHost  bool
	channel *GameStateChannel
	prog    *ProgressionWriter // nil for the non-host player
	answers *AnswerSubmitter
	watch   *RoomWatch
}

func (s *playerSession) watchLoop() {
	reactor, _ := s.gs.game.(roomReactor)

	for snap := range s.watch.C {
		if snap.Deleted {
			s.client.trySend(RoomDeletedMessage{
				Type:    "room_deleted",
				Message: "Room no longer exists",
			})
			return
		}

		s.client.trySend(RoomMessage{
			Type: "room",
			Room: snap.Room,
		})

		if reactor != nil {
			reactor.OnRoomUpdate(s, snap.Room)
		}
	}
}

// gameServer wires one game's routes: page, websocket, and QR share. It
// also tracks which player ids are currently connected per room so a
// dropped connection is only turned into a leave after the grace period.
type gameServer struct {
	cfg      *Config
	path     string
	registry *RoomRegistry
	store    *RoomStore
	game     GameController

	mu        sync.Mutex
	connected map[string]int // room code + "/" + player id -> open sockets
}

func newGameServer(cfg *Config, path string, registry *RoomRegistry, store *RoomStore, game GameController) *gameServer {
	return &gameServer{
		cfg:       cfg,
		path:      path,
		registry:  registry,
		store:     store,
		game:      game,
		connected: make(map[string]int),
	}
}

func (gs *gameServer) serveWS() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			done:     make(chan struct{}),
			playerID: playerID,
		}

		go client.writePump()
		gs.readPump(client)
	}
}

func (gs *gameServer) readPump(c *Client) {
	var sess *playerSession

	defer func() {
		if sess != nil {
			gs.detach(sess)
		}
		c.close()
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "create":
			if sess != nil {
				continue
			}
			code, err := gs.registry.CreateRoom(gs.game.GameID(), c.playerID, msg.Name)
			if err != nil {
				c.trySend(ErrorMessage{Type: "error", Message: "Failed to create room"})
				continue
			}
			sess = gs.attach(c, code)

		case "join":
			if sess != nil {
				continue
			}
			code, err := gs.registry.JoinRoom(msg.Code, c.playerID, msg.Name)
			if err != nil {
				c.trySend(ErrorMessage{Type: "error", Message: joinErrorText(err)})
				continue
			}
			sess = gs.attach(c, code)

		case "leave":
			if sess == nil {
				continue
			}
			gs.markDisconnected(sess.code, c.playerID)
			gs.registry.Unwatch(sess.watch)
			if err := gs.registry.LeaveRoom(sess.code, c.playerID); err != nil && err != ErrRoomNotFound {
				logf(gs.cfg, "ROOMS: Leave failed for %s: %v", sess.code, err)
			}
			sess = nil

		default:
			if sess == nil {
				continue
			}
			if err := gs.game.HandleCommand(sess, msg); err != nil {
				// Fire and forget: mid-game failures are logged, not surfaced.
				logf(gs.cfg, "GAMES: %s command %q failed in %s: %v",
					gs.game.GameID(), msg.Type, sess.code, err)
			}
		}
	}
}

func joinErrorText(err error) string {
	switch err {
	case ErrRoomNotFound:
		return "Room not found"
	case ErrRoomFull:
		return "Room is full"
	default:
		return "Failed to join room"
	}
}

func (gs *gameServer) attach(c *Client, code string) *playerSession {
	watch, err := gs.registry.Watch(code)
	if err != nil {
		c.trySend(ErrorMessage{Type: "error", Message: "Room no longer exists"})
		return nil
	}

	channel := newGameStateChannel(gs.cfg, gs.store, code)
	prog, err := channel.ProgressionWriter(c.playerID)
	isHost := err == nil

	sess := &playerSession{
		gs:      gs,
		client:  c,
		code:    code,
		isHost:  isHost,
		channel: channel,
		prog:    prog,
		answers: channel.AnswerSubmitter(c.playerID),
		watch:   watch,
	}

	gs.mu.Lock()
	gs.connected[code+"/"+c.playerID]++
	gs.mu.Unlock()

	go sess.watchLoop()

	c.trySend(JoinedMessage{
		Type:     "joined",
		Code:     code,
		PlayerID: c.playerID,
		IsHost:   isHost,
	})

	return sess
}

// detach handles a connection dropping without an explicit leave. The
// player keeps their seat for the grace period; if no socket with the same
// id reconnects in time, they are removed for real (which tears the room
// down when they were the host).
func (gs *gameServer) detach(sess *playerSession) {
	gs.registry.Unwatch(sess.watch)
	gs.markDisconnected(sess.code, sess.client.playerID)

	code := sess.code
	playerID := sess.client.playerID

	go func() {
		time.Sleep(gs.cfg.playerGrace)

		gs.mu.Lock()
		gone := gs.connected[code+"/"+playerID] == 0
		gs.mu.Unlock()

		if !gone {
			return
		}

		if err := gs.registry.LeaveRoom(code, playerID); err != nil && err != ErrRoomNotFound {
			logf(gs.cfg, "ROOMS: Cleanup leave failed for %s: %v", code, err)
		}
	}()
}

func (gs *gameServer) markDisconnected(code, playerID string) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	key := code + "/" + playerID
	if gs.connected[key] > 0 {
		gs.connected[key]--
	}
	if gs.connected[key] == 0 {
		delete(gs.connected, key)
	}
}

// serveQR renders a PNG QR code for joining the room at :code, so the
// second player can scan instead of typing.
func (gs *gameServer) serveQR() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := normalizeRoomCode(ps.ByName("code"))
		if _, ok := gs.registry.Room(code); !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + gs.cfg.prefix + gs.path + "?code=" + code

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func (gs *gameServer) servePage(title string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(gs.cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write([]byte(newPage(title, title)))
	}
}

// registerGame sets up routes so that:
//   - $path          → game page
//   - $path/ws       → per-player websocket
//   - $path/qr/:code → PNG QR code joining the room at :code
func registerGame(cfg *Config, mux *httprouter.Router, registry *RoomRegistry, store *RoomStore, game GameController, path, title string) {
	gs := newGameServer(cfg, path, registry, store, game)

	mux.GET(cfg.prefix+path, gs.servePage(title))
	mux.GET(cfg.prefix+path+"/ws", gs.serveWS())
	mux.GET(cfg.prefix+path+"/qr/:code", gs.serveQR())
}
