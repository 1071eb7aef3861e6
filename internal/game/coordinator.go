// Package game hosts the session coordinator: a single actor goroutine that
// owns every mutable registry (sessions, players, battles, lobbies, spawn
// pool) and processes events strictly in arrival order. Nothing in here
// needs a lock; the two asynchronous boundaries are persistence I/O (posted
// back into the inbox or fire-and-forget) and the spawn ticker.
package game

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/camelgame/backend/internal/battle"
	"github.com/camelgame/backend/internal/lobby"
	"github.com/camelgame/backend/internal/store"
	"github.com/camelgame/backend/internal/world"
	"github.com/camelgame/backend/pkg/types"
)

// Bus is the transport contract the coordinator consumes. Broadcasts are
// fire-and-forget; a dead connection is the transport's problem.
type Bus interface {
	Send(connID, event string, payload any)
	BroadcastToRoom(roomID, event string, payload any, excludeConnID string)
	BroadcastToAll(event string, payload any)
	JoinRoom(connID, roomID string)
	LeaveRoom(connID, roomID string)
}

type Msg interface{ isMsg() }

// Connect registers a fresh connection session.
type Connect struct{ Conn string }

// Disconnect tears a connection down: lobby cascade, battle discard,
// session removal. Processing it twice is harmless.
type Disconnect struct{ Conn string }

// ClientEvent is one decoded inbound event from a connection.
type ClientEvent struct {
	Conn    string
	Type    string
	Payload json.RawMessage
}

// SpawnTick regenerates the wild pool. The run loop posts one per interval;
// tests post them directly.
type SpawnTick struct{}

// playerLoaded carries a persistence read back onto the loop.
type playerLoaded struct {
	conn     string
	username string
	rec      *store.PlayerRecord
	err      error
}

// GetView reflects internal state without data races. Test-only.
type GetView struct{ Reply chan View }

type Shutdown struct{}

func (Connect) isMsg()      {}
func (Disconnect) isMsg()   {}
func (ClientEvent) isMsg()  {}
func (SpawnTick) isMsg()    {}
func (playerLoaded) isMsg() {}
func (GetView) isMsg()      {}
func (Shutdown) isMsg()     {}

// View is a consistent copy of the coordinator's bookkeeping.
type View struct {
	Sessions int
	Battles  int
	Lobbies  []lobby.Summary
	Spawns   int
	Players  map[string]string // connID -> username
}

// Session is the ephemeral binding of one live connection to game state.
type Session struct {
	Conn        string
	Username    string
	Position    types.Position
	FacingRight bool
	Cosmetic    string
}

type Options struct {
	SpawnInterval time.Duration
	RNG           *rand.Rand
}

type Coordinator struct {
	inbox chan Msg
	bus   Bus
	store store.PlayerStore
	log   *zap.Logger
	rng   *rand.Rand

	sessions map[string]*Session
	players  map[string]*store.PlayerRecord
	battles  map[string]*battle.Battle
	registry *lobby.Registry
	world    *world.Manager

	spawnEvery time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
}

func New(parent context.Context, bus Bus, st store.PlayerStore, log *zap.Logger, opts Options) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	if opts.SpawnInterval == 0 {
		opts.SpawnInterval = 30 * time.Second
	}
	if opts.RNG == nil {
		opts.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	c := &Coordinator{
		inbox:      make(chan Msg, 64),
		bus:        bus,
		store:      st,
		log:        log,
		rng:        opts.RNG,
		sessions:   make(map[string]*Session),
		players:    make(map[string]*store.PlayerRecord),
		battles:    make(map[string]*battle.Battle),
		registry:   lobby.NewRegistry(bus),
		world:      world.NewManager(opts.RNG),
		spawnEvery: opts.SpawnInterval,
		ctx:        ctx,
		cancel:     cancel,
	}
	c.world.Regenerate()
	return c
}

// Inbox exposes the message channel to the transport layer and tests.
func (c *Coordinator) Inbox() chan<- Msg { return c.inbox }

// Run processes messages until the context is done or Shutdown arrives.
func (c *Coordinator) Run() {
	ticker := time.NewTicker(c.spawnEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return

		case <-ticker.C:
			c.dispatch(SpawnTick{})

		case m := <-c.inbox:
			if _, ok := m.(Shutdown); ok {
				c.cancel()
				return
			}
			c.dispatch(m)
		}
	}
}

func (c *Coordinator) dispatch(m Msg) {
	switch msg := m.(type) {
	case Connect:
		c.sessions[msg.Conn] = &Session{Conn: msg.Conn}

	case Disconnect:
		c.handleDisconnect(msg.Conn)

	case ClientEvent:
		c.handleClientEvent(msg)

	case SpawnTick:
		c.world.Regenerate()
		c.broadcastWorld()

	case playerLoaded:
		c.handlePlayerLoaded(msg)

	case GetView:
		players := make(map[string]string, len(c.players))
		for conn, rec := range c.players {
			players[conn] = rec.Username
		}
		msg.Reply <- View{
			Sessions: len(c.sessions),
			Battles:  len(c.battles),
			Lobbies:  c.registry.List(),
			Spawns:   len(c.world.Spawns()),
			Players:  players,
		}
	}
}

func (c *Coordinator) handleDisconnect(conn string) {
	if _, ok := c.sessions[conn]; !ok {
		return // cleanup already ran
	}
	c.registry.Leave(conn)
	delete(c.battles, conn)
	delete(c.players, conn)
	delete(c.sessions, conn)
	c.broadcastWorld()
}

// persist writes a record without blocking the loop. The copy is taken on
// the loop goroutine; an already-issued write completes even if the player
// disconnects, and is never rolled back.
func (c *Coordinator) persist(rec *store.PlayerRecord) {
	cp := rec.Clone()
	go func() {
		if err := c.store.Put(c.ctx, cp); err != nil {
			c.log.Warn("persist player failed",
				zap.String("username", cp.Username), zap.Error(err))
		}
	}()
}
