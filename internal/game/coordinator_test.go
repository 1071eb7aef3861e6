package game

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/camelgame/backend/internal/battle"
	"github.com/camelgame/backend/internal/entity"
	"github.com/camelgame/backend/internal/store"
	"github.com/camelgame/backend/internal/world"
)

// fakeBus records transport calls. It is mutex-guarded because persistence
// goroutines run concurrently with some tests.
type fakeBus struct {
	mu    sync.Mutex
	calls []busCall
	rooms map[string]map[string]bool
}

type busCall struct {
	Kind    string // send | room | all
	Target  string
	Event   string
	Payload any
}

func newFakeBus() *fakeBus {
	return &fakeBus{rooms: map[string]map[string]bool{}}
}

func (f *fakeBus) Send(connID, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, busCall{Kind: "send", Target: connID, Event: event, Payload: payload})
}

func (f *fakeBus) BroadcastToRoom(roomID, event string, payload any, exclude string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, busCall{Kind: "room", Target: roomID, Event: event, Payload: payload})
}

func (f *fakeBus) BroadcastToAll(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, busCall{Kind: "all", Event: event, Payload: payload})
}

func (f *fakeBus) JoinRoom(connID, roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rooms[roomID] == nil {
		f.rooms[roomID] = map[string]bool{}
	}
	f.rooms[roomID][connID] = true
}

func (f *fakeBus) LeaveRoom(connID, roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms[roomID], connID)
}

func (f *fakeBus) last(event string) *busCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Event == event {
			c := f.calls[i]
			return &c
		}
	}
	return nil
}

func (f *fakeBus) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Event == event {
			n++
		}
	}
	return n
}

func newTestCoordinator(t *testing.T, seed int64) (*Coordinator, *fakeBus, *store.MemoryStore) {
	t.Helper()
	bus := newFakeBus()
	st := store.NewMemoryStore()
	c := New(context.Background(), bus, st, zap.NewNop(), Options{
		SpawnInterval: time.Hour,
		RNG:           rand.New(rand.NewSource(seed)),
	})
	return c, bus, st
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// recvMsg drains one message posted back into the inbox (e.g. a finished
// persistence load) so tests can dispatch it synchronously.
func recvMsg(t *testing.T, c *Coordinator) Msg {
	t.Helper()
	select {
	case m := <-c.inbox:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbox message")
		return nil
	}
}

func joinPlayer(t *testing.T, c *Coordinator, conn, username string) *store.PlayerRecord {
	t.Helper()
	c.dispatch(Connect{Conn: conn})
	c.dispatch(ClientEvent{Conn: conn, Type: "player:join",
		Payload: raw(t, map[string]string{"username": username})})
	c.dispatch(recvMsg(t, c)) // playerLoaded
	rec, ok := c.players[conn]
	require.True(t, ok, "player record should be bound after load")
	return rec
}

func damaging(t *testing.T, c *entity.Cigarette) entity.Move {
	t.Helper()
	for _, m := range c.Moves {
		if m.Effect == "" {
			return m
		}
	}
	t.Fatal("no damaging move")
	return entity.Move{}
}

func TestJoin_NewPlayerGetsStarterAndReply(t *testing.T) {
	c, bus, st := newTestCoordinator(t, 1)
	rec := joinPlayer(t, c, "c1", "Ada")

	require.Len(t, rec.Cigarettes, 1)
	assert.Equal(t, entity.StarterLevel, rec.Cigarettes[0].Level)

	joined := bus.last("player:joined")
	require.NotNil(t, joined)
	assert.Equal(t, "c1", joined.Target)
	assert.NotNil(t, bus.last("world:update"))

	// Starter grant is persisted right away.
	require.Eventually(t, func() bool {
		saved, err := st.Get(context.Background(), "Ada")
		return err == nil && saved != nil && len(saved.Cigarettes) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJoin_ExistingPlayerKeepsRoster(t *testing.T) {
	c, bus, st := newTestCoordinator(t, 2)

	rng := rand.New(rand.NewSource(9))
	owned := entity.NewStarter(rng)
	owned.Experience = 70
	require.NoError(t, st.Put(context.Background(), &store.PlayerRecord{
		Username:   "Bob",
		Cigarettes: []*entity.Cigarette{owned},
	}))

	rec := joinPlayer(t, c, "c1", "Bob")
	require.Len(t, rec.Cigarettes, 1)
	assert.Equal(t, 70, rec.Cigarettes[0].Experience)
	assert.NotNil(t, bus.last("player:joined"))
}

func TestMove_UpdatesPositionAndBroadcasts(t *testing.T) {
	c, bus, _ := newTestCoordinator(t, 3)
	joinPlayer(t, c, "c1", "Ada")

	c.dispatch(ClientEvent{Conn: "c1", Type: "player:move",
		Payload: raw(t, map[string]any{
			"position":    map[string]float64{"x": 42, "y": 7},
			"facingRight": true,
		})})

	update := bus.last("world:update")
	require.NotNil(t, update)
	wu := update.Payload.(WorldUpdate)
	require.Len(t, wu.Players, 1)
	assert.Equal(t, 42.0, wu.Players[0].Position.X)
	assert.Equal(t, 7.0, wu.Players[0].Position.Y)
	assert.True(t, wu.Players[0].FacingRight)
}

func TestUpdatePlayerInfo_CosmeticCarriedIntoWorldUpdate(t *testing.T) {
	c, bus, _ := newTestCoordinator(t, 3)
	joinPlayer(t, c, "c1", "Ada")

	c.dispatch(ClientEvent{Conn: "c1", Type: "updatePlayerInfo",
		Payload: raw(t, map[string]any{"playerName": "Ada", "selectedCosmetic": "tophat"})})
	c.dispatch(ClientEvent{Conn: "c1", Type: "player:move",
		Payload: raw(t, map[string]any{"position": map[string]float64{"x": 1, "y": 2}})})

	update := bus.last("world:update")
	require.NotNil(t, update)
	wu := update.Payload.(WorldUpdate)
	require.Len(t, wu.Players, 1)
	assert.Equal(t, "tophat", wu.Players[0].Cosmetic)
	assert.False(t, wu.Players[0].FacingRight)
}

func TestSpawnTick_ReplacesPoolAndBroadcasts(t *testing.T) {
	c, bus, _ := newTestCoordinator(t, 4)
	before := make([]string, 0)
	for _, s := range c.world.Spawns() {
		before = append(before, s.ID)
	}

	c.dispatch(SpawnTick{})

	update := bus.last("world:update")
	require.NotNil(t, update)
	wu := update.Payload.(WorldUpdate)
	assert.GreaterOrEqual(t, len(wu.WildCigarettes), 5)
	assert.LessOrEqual(t, len(wu.WildCigarettes), 10)
	for _, s := range wu.WildCigarettes {
		assert.NotContains(t, before, s.ID)
	}
}

func TestBattleAction_StaleMoveIDStaysSilent(t *testing.T) {
	c, bus, _ := newTestCoordinator(t, 5)
	joinPlayer(t, c, "c1", "Ada")

	c.dispatch(ClientEvent{Conn: "c1", Type: "battle:start",
		Payload: raw(t, map[string]string{"wildId": "whatever"})})
	require.NotNil(t, bus.last("battle:started"))

	sends := bus.count("battle:update")
	c.dispatch(ClientEvent{Conn: "c1", Type: "battle:action",
		Payload: raw(t, map[string]string{"moveId": "stale"})})
	assert.Equal(t, sends, bus.count("battle:update"))
	assert.Equal(t, 1, len(c.battles), "battle still in progress")
}

func TestCatch_UnknownWildGetsErrorEvent(t *testing.T) {
	c, bus, _ := newTestCoordinator(t, 6)
	joinPlayer(t, c, "c1", "Ada")

	c.dispatch(ClientEvent{Conn: "c1", Type: "cigarette:catch",
		Payload: raw(t, map[string]string{"wildId": "ghost"})})

	errEv := bus.last("error")
	require.NotNil(t, errEv)
}

func TestCatch_WoundedWildIsCapturable(t *testing.T) {
	c, bus, st := newTestCoordinator(t, 7)
	rec := joinPlayer(t, c, "c1", "Ada")
	require.Eventually(t, func() bool {
		saved, err := st.Get(context.Background(), "Ada")
		return err == nil && saved != nil
	}, 2*time.Second, 10*time.Millisecond)

	sp := c.world.Spawns()[0]
	sp.HP = 1 // catch rate ~= max(0.1, 1-0.5/maxHP) -> near certain

	// Retry across the pool-backed roll until the near-certain catch lands.
	for i := 0; i < 20 && bus.last("cigarette:caught") == nil; i++ {
		c.dispatch(ClientEvent{Conn: "c1", Type: "cigarette:catch",
			Payload: raw(t, map[string]string{"wildId": sp.ID})})
	}

	caught := bus.last("cigarette:caught")
	require.NotNil(t, caught)
	assert.Len(t, rec.Cigarettes, 2)
	assert.Nil(t, c.world.Find(sp.ID), "captured wild leaves the pool")

	require.Eventually(t, func() bool {
		saved, err := st.Get(context.Background(), "Ada")
		return err == nil && saved != nil && len(saved.Cigarettes) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLobbyErrors_SurfaceAsErrorEvents(t *testing.T) {
	c, bus, _ := newTestCoordinator(t, 8)
	c.dispatch(Connect{Conn: "c1"})
	c.dispatch(Connect{Conn: "c2"})

	c.dispatch(ClientEvent{Conn: "c1", Type: "joinLobby",
		Payload: raw(t, map[string]string{"lobbyId": "NOPE01"})})
	errEv := bus.last("error")
	require.NotNil(t, errEv)

	c.dispatch(ClientEvent{Conn: "c1", Type: "createLobby",
		Payload: raw(t, map[string]any{"name": "den", "capacity": 2})})
	created := bus.last("lobbyCreated")
	require.NotNil(t, created)

	// Non-host start is an authorization failure, not a silent drop.
	lobbyID := c.registry.List()[0].ID
	c.dispatch(ClientEvent{Conn: "c2", Type: "joinLobby",
		Payload: raw(t, map[string]string{"lobbyId": lobbyID})})
	before := bus.count("error")
	c.dispatch(ClientEvent{Conn: "c2", Type: "startGame", Payload: raw(t, struct{}{})})
	assert.Equal(t, before+1, bus.count("error"))
}

func TestDisconnect_CascadesOnce(t *testing.T) {
	c, _, _ := newTestCoordinator(t, 9)
	joinPlayer(t, c, "c1", "Ada")

	c.dispatch(ClientEvent{Conn: "c1", Type: "createLobby",
		Payload: raw(t, map[string]any{"name": "den", "capacity": 4})})
	c.dispatch(ClientEvent{Conn: "c1", Type: "battle:start",
		Payload: raw(t, map[string]string{"wildId": "any"})})
	require.Len(t, c.battles, 1)

	c.dispatch(Disconnect{Conn: "c1"})
	assert.Empty(t, c.sessions)
	assert.Empty(t, c.battles)
	assert.Empty(t, c.players)
	assert.Empty(t, c.registry.List(), "empty lobby torn down with its host")

	// A second disconnect for the same connection is a no-op.
	c.dispatch(Disconnect{Conn: "c1"})
	assert.Empty(t, c.sessions)
}

func TestRunLoop_ConnectAndView(t *testing.T) {
	c, _, _ := newTestCoordinator(t, 10)
	go c.Run()
	defer func() { c.Inbox() <- Shutdown{} }()

	c.Inbox() <- Connect{Conn: "c1"}

	reply := make(chan View, 1)
	c.Inbox() <- GetView{Reply: reply}
	select {
	case v := <-reply:
		assert.Equal(t, 1, v.Sessions)
		assert.GreaterOrEqual(t, v.Spawns, 5)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for view")
	}
}

// The full first-session flow: fresh player, starter grant, battle against a
// known level-3 wild, victory rewards persisted without rerolling stats.
func TestEndToEnd_AdaFirstBattle(t *testing.T) {
	c, bus, st := newTestCoordinator(t, 11)
	rec := joinPlayer(t, c, "c1", "Ada")

	starter := rec.Cigarettes[0]
	startAttack := starter.Attack
	require.Equal(t, entity.StarterLevel, starter.Level)

	// Let the starter-grant write land before the battle issues its own,
	// so the final stored record is unambiguous.
	require.Eventually(t, func() bool {
		saved, err := st.Get(context.Background(), "Ada")
		return err == nil && saved != nil
	}, 2*time.Second, 10*time.Millisecond)

	// Plant a weak, slow level-3 wild in the pool so the outcome is fixed.
	rng := rand.New(rand.NewSource(99))
	weak, err := entity.New(entity.Spec{
		Name: "Desert Cigarette Light", Type: entity.TypeLight,
		Level: 3, HP: 40, Attack: 5, Defense: 1, Speed: 1,
	}, rng)
	require.NoError(t, err)
	*c.world.Spawns()[0] = world.Spawn{Cigarette: weak, Position: c.world.Spawns()[0].Position}

	c.dispatch(ClientEvent{Conn: "c1", Type: "battle:start",
		Payload: raw(t, map[string]string{"wildId": weak.ID})})
	started := bus.last("battle:started")
	require.NotNil(t, started)
	payload := started.Payload.(BattleStarted)
	assert.Equal(t, [2]battle.Side{battle.SidePlayer, battle.SideWild}, payload.TurnOrder)

	moveID := damaging(t, payload.PlayerCigarette).ID
	for i := 0; i < 3 && bus.last("battle:ended") == nil; i++ {
		c.dispatch(ClientEvent{Conn: "c1", Type: "battle:action",
			Payload: raw(t, map[string]string{"moveId": moveID})})
	}

	ended := bus.last("battle:ended")
	require.NotNil(t, ended, "a 40 HP wild must fall within 3 exchanges")
	result := ended.Payload.(BattleEnded)
	assert.Equal(t, battle.SidePlayer, result.Winner)
	require.NotNil(t, result.Rewards)
	assert.Equal(t, 45, result.Rewards.Experience)
	assert.False(t, result.Rewards.LevelUp, "45 XP is far below the 500 threshold at level 5")
	assert.Empty(t, c.battles, "concluded battle is discarded")

	require.Eventually(t, func() bool {
		saved, err := st.Get(context.Background(), "Ada")
		if err != nil || saved == nil || len(saved.Cigarettes) != 1 {
			return false
		}
		got := saved.Cigarettes[0]
		return got.Experience == 45 && got.Level == entity.StarterLevel && got.Attack == startAttack
	}, 2*time.Second, 10*time.Millisecond, "persisted record keeps base stats, adds experience")
}
