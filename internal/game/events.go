package game

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/camelgame/backend/internal/battle"
	"github.com/camelgame/backend/internal/entity"
	"github.com/camelgame/backend/internal/lobby"
	"github.com/camelgame/backend/internal/store"
	"github.com/camelgame/backend/internal/world"
	"github.com/camelgame/backend/pkg/types"
)

// Server-side payloads for the event surface.

type BattleStarted struct {
	PlayerCigarette *entity.Cigarette `json:"playerCigarette"`
	WildCigarette   *entity.Cigarette `json:"wildCigarette"`
	TurnOrder       [2]battle.Side    `json:"turnOrder"`
}

type BattleEnded struct {
	Winner  battle.Side     `json:"winner"`
	Rewards *battle.Rewards `json:"rewards"`
}

type WorldPlayer struct {
	Username    string         `json:"username"`
	Position    types.Position `json:"position"`
	FacingRight bool           `json:"facingRight"`
	Cosmetic    string         `json:"cosmetic,omitempty"`
}

type WorldUpdate struct {
	Players        []WorldPlayer  `json:"players"`
	WildCigarettes []*world.Spawn `json:"wildCigarettes"`
}

func (c *Coordinator) handleClientEvent(ev ClientEvent) {
	if _, ok := c.sessions[ev.Conn]; !ok {
		return
	}

	switch ev.Type {
	case "player:join":
		var req types.JoinRequest
		if !c.decode(ev, &req) || req.Username == "" {
			return
		}
		// Loads run off-loop and come back as a playerLoaded message, so a
		// slow database never stalls other sessions' events.
		go func() {
			rec, err := c.store.Get(c.ctx, req.Username)
			select {
			case c.inbox <- playerLoaded{conn: ev.Conn, username: req.Username, rec: rec, err: err}:
			case <-c.ctx.Done():
			}
		}()

	case "player:move":
		var req types.MoveRequest
		if !c.decode(ev, &req) {
			return
		}
		sess := c.sessions[ev.Conn]
		sess.Position = req.Position
		sess.FacingRight = req.FacingRight
		if rec, ok := c.players[ev.Conn]; ok {
			rec.Position = req.Position
		}
		c.broadcastWorld()

	case "battle:start":
		c.handleBattleStart(ev)

	case "battle:action":
		c.handleBattleAction(ev)

	case "cigarette:catch":
		c.handleCatch(ev)

	case "createLobby":
		var req types.CreateLobbyRequest
		if !c.decode(ev, &req) {
			return
		}
		c.registry.Create(ev.Conn, req.Name, req.Capacity, req.LevelTag, c.displayName(ev.Conn, req.PlayerName))

	case "joinLobby":
		var req types.JoinLobbyRequest
		if !c.decode(ev, &req) {
			return
		}
		if _, err := c.registry.Join(ev.Conn, req.LobbyID, c.displayName(ev.Conn, req.PlayerName)); err != nil {
			c.sendError(ev.Conn, err)
		}

	case "leaveLobby":
		c.registry.Leave(ev.Conn)

	case "startGame":
		if err := c.registry.Start(ev.Conn); err != nil {
			c.sendError(ev.Conn, err)
		}

	case "listLobbies":
		c.bus.Send(ev.Conn, "lobbyList", c.registry.List())

	case "updatePlayerInfo":
		var req types.UpdatePlayerInfoRequest
		if !c.decode(ev, &req) {
			return
		}
		c.sessions[ev.Conn].Cosmetic = req.Cosmetic
		c.registry.UpdateMemberInfo(ev.Conn, req.PlayerName, req.Cosmetic)

	default:
		if lobby.IsHostRelayEvent(ev.Type) {
			c.registry.Relay(ev.Conn, ev.Type, ev.Payload)
			return
		}
		c.log.Debug("unknown event", zap.String("type", ev.Type), zap.String("conn", ev.Conn))
	}
}

func (c *Coordinator) handlePlayerLoaded(msg playerLoaded) {
	sess, ok := c.sessions[msg.conn]
	if !ok {
		return // disconnected while the load was in flight
	}
	if msg.err != nil {
		c.log.Error("load player failed", zap.String("username", msg.username), zap.Error(msg.err))
		c.bus.Send(msg.conn, "error", types.ErrorEvent{Code: types.CodeStorage, Message: "could not load player"})
		return
	}

	rec := msg.rec
	if rec == nil {
		rec = &store.PlayerRecord{
			Username:   msg.username,
			Cigarettes: []*entity.Cigarette{entity.NewStarter(c.rng)},
		}
		c.persist(rec)
	}

	c.players[msg.conn] = rec
	sess.Username = msg.username
	sess.Position = rec.Position

	c.bus.Send(msg.conn, "player:joined", rec)
	c.broadcastWorld()
}

func (c *Coordinator) handleBattleStart(ev ClientEvent) {
	var req types.BattleStartRequest
	if !c.decode(ev, &req) {
		return
	}
	rec, ok := c.players[ev.Conn]
	if !ok || rec.ActiveCigarette() == nil {
		return
	}

	// An id missing from the pool still starts a battle against a fresh
	// wild; the pool is replaced wholesale every tick, so stale ids from
	// the previous pool are routine, not an error.
	wild := entity.NewWild(c.rng)
	if sp := c.world.Find(req.WildID); sp != nil {
		wild = sp.Cigarette
	}

	b := battle.New(rec.ActiveCigarette(), wild, c.rng)
	c.battles[ev.Conn] = b

	c.bus.Send(ev.Conn, "battle:started", BattleStarted{
		PlayerCigarette: b.Player,
		WildCigarette:   b.Wild,
		TurnOrder:       b.Order,
	})
}

func (c *Coordinator) handleBattleAction(ev ClientEvent) {
	var req types.BattleActionRequest
	if !c.decode(ev, &req) {
		return
	}
	b, ok := c.battles[ev.Conn]
	if !ok {
		return
	}

	results, ok := b.Exchange(req.MoveID)
	if !ok {
		return // stale move id: deliberately no reply at all
	}
	for _, res := range results {
		c.bus.Send(ev.Conn, "battle:update", res)
	}
	if b.Over() {
		c.endBattle(ev.Conn, b)
	}
}

func (c *Coordinator) endBattle(conn string, b *battle.Battle) {
	winner := b.Winner()
	rewards := b.ComputeRewards()

	if winner == battle.SidePlayer && rewards != nil {
		rec := c.players[conn]
		rec.Replace(b.Player)
		rec.Active = b.Player.ID
		c.persist(rec)
	}

	c.bus.Send(conn, "battle:ended", BattleEnded{Winner: winner, Rewards: rewards})
	delete(c.battles, conn)
}

func (c *Coordinator) handleCatch(ev ClientEvent) {
	var req types.CatchRequest
	if !c.decode(ev, &req) {
		return
	}
	rec, ok := c.players[ev.Conn]
	if !ok {
		return
	}

	sp := c.world.Find(req.WildID)
	if sp == nil {
		c.sendError(ev.Conn, errWildNotFound)
		return
	}

	if c.rng.Float64() < battle.CatchRate(sp.Cigarette) {
		rec.Cigarettes = append(rec.Cigarettes, sp.Cigarette)
		c.persist(rec)
		c.bus.Send(ev.Conn, "cigarette:caught", sp.Cigarette)
		c.world.Remove(req.WildID)
		c.broadcastWorld()
	} else {
		c.bus.Send(ev.Conn, "cigarette:escaped", nil)
	}
}

func (c *Coordinator) broadcastWorld() {
	players := make([]WorldPlayer, 0, len(c.sessions))
	for _, s := range c.sessions {
		if s.Username == "" {
			continue
		}
		players = append(players, WorldPlayer{
			Username:    s.Username,
			Position:    s.Position,
			FacingRight: s.FacingRight,
			Cosmetic:    s.Cosmetic,
		})
	}
	c.bus.BroadcastToAll("world:update", WorldUpdate{
		Players:        players,
		WildCigarettes: c.world.Spawns(),
	})
}

func (c *Coordinator) displayName(conn, requested string) string {
	if requested != "" {
		return requested
	}
	if sess, ok := c.sessions[conn]; ok && sess.Username != "" {
		return sess.Username
	}
	return "Player " + shortID(conn)
}

func shortID(conn string) string {
	if len(conn) > 6 {
		return conn[:6]
	}
	return conn
}

func (c *Coordinator) decode(ev ClientEvent, into any) bool {
	if err := json.Unmarshal(ev.Payload, into); err != nil {
		c.log.Debug("malformed payload",
			zap.String("type", ev.Type), zap.String("conn", ev.Conn), zap.Error(err))
		return false
	}
	return true
}

var errWildNotFound = errors.New("wild cigarette not found")

func (c *Coordinator) sendError(conn string, err error) {
	code := "INTERNAL"
	switch {
	case errors.Is(err, lobby.ErrLobbyNotFound):
		code = types.CodeLobbyNotFound
	case errors.Is(err, lobby.ErrLobbyFull):
		code = types.CodeLobbyFull
	case errors.Is(err, lobby.ErrLobbyStarted):
		code = types.CodeLobbyStarted
	case errors.Is(err, lobby.ErrNotHost):
		code = types.CodeNotHost
	case errors.Is(err, errWildNotFound):
		code = types.CodeWildNotFound
	}
	c.bus.Send(conn, "error", types.ErrorEvent{Code: code, Message: err.Error()})
}
