// Package lobby is the session registry: capacity-bounded co-op lobbies with
// a single authoritative host per lobby. All methods are driven from the
// coordinator goroutine, so the registry holds no locks.
package lobby

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
)

var ErrLobbyNotFound = errors.New("lobby not found")
var ErrLobbyFull = errors.New("lobby full")
var ErrLobbyStarted = errors.New("lobby already started")
var ErrNotHost = errors.New("not the lobby host")

// Broadcaster is the slice of the message bus the registry needs.
type Broadcaster interface {
	Send(connID, event string, payload any)
	BroadcastToRoom(roomID, event string, payload any, excludeConnID string)
	BroadcastToAll(event string, payload any)
	JoinRoom(connID, roomID string)
	LeaveRoom(connID, roomID string)
}

// Member is one connection inside a lobby. Slice order is join order, which
// is also host-transfer priority.
type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cosmetic string `json:"cosmetic,omitempty"`
	IsHost   bool   `json:"isHost"`
}

type Lobby struct {
	ID       string
	Name     string
	Host     string
	Capacity int
	LevelTag string
	Started  bool
	Members  []Member

	// GameState is the host's last authoritative world snapshot, kept opaque.
	GameState json.RawMessage
}

// Snapshot is the lobby view broadcast to members on every change.
type Snapshot struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	HostID   string   `json:"hostId"`
	Capacity int      `json:"capacity"`
	LevelTag string   `json:"levelTag,omitempty"`
	Started  bool     `json:"started"`
	Players  []Member `json:"players"`
}

// Summary is one row of the joinable-lobby listing.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	Capacity    int    `json:"capacity"`
	LevelTag    string `json:"levelTag,omitempty"`
}

const defaultCapacity = 4

// hostRelayEvents are accepted only from the lobby's current host and
// forwarded untouched. The registry checks authorship, never payload
// correctness.
var hostRelayEvents = map[string]bool{
	"playerMove":    true,
	"gameState":     true,
	"enemySpawn":    true,
	"enemyDeath":    true,
	"bulletRemoved": true,
	"xpOrbPickedUp": true,
}

func IsHostRelayEvent(event string) bool { return hostRelayEvents[event] }

type Registry struct {
	bus     Broadcaster
	lobbies map[string]*Lobby
	byConn  map[string]string
}

func NewRegistry(bus Broadcaster) *Registry {
	return &Registry{
		bus:     bus,
		lobbies: make(map[string]*Lobby),
		byConn:  make(map[string]string),
	}
}

// Create allocates a lobby with the creator as host. Creation is never
// capacity-checked.
func (r *Registry) Create(conn, name string, capacity int, levelTag, playerName string) *Lobby {
	r.Leave(conn)

	if capacity < 1 {
		capacity = defaultCapacity
	}
	lb := &Lobby{
		ID:       r.freshID(),
		Name:     name,
		Host:     conn,
		Capacity: capacity,
		LevelTag: levelTag,
		Members:  []Member{{ID: conn, Name: playerName, IsHost: true}},
	}
	r.lobbies[lb.ID] = lb
	r.byConn[conn] = lb.ID
	r.bus.JoinRoom(conn, lb.ID)

	r.bus.Send(conn, "lobbyCreated", r.snapshot(lb))
	r.broadcastListChanged()
	return lb
}

func (r *Registry) Join(conn, lobbyID, playerName string) (*Lobby, error) {
	lb, ok := r.lobbies[lobbyID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if r.byConn[conn] == lobbyID {
		// Stale client re-sending join for the lobby it is already in:
		// answer with the current snapshot instead of churning membership.
		r.bus.Send(conn, "lobbyJoined", r.snapshot(lb))
		return lb, nil
	}
	if lb.Started {
		return nil, ErrLobbyStarted
	}
	if len(lb.Members) >= lb.Capacity {
		return nil, ErrLobbyFull
	}

	r.Leave(conn)
	lb.Members = append(lb.Members, Member{ID: conn, Name: playerName})
	r.byConn[conn] = lb.ID
	r.bus.JoinRoom(conn, lb.ID)

	r.bus.Send(conn, "lobbyJoined", r.snapshot(lb))
	r.bus.BroadcastToRoom(lb.ID, "lobbyUpdate", r.snapshot(lb), "")
	r.broadcastListChanged()
	return lb, nil
}

// Leave removes the connection from its lobby, if any. A departing host
// hands authority to the earliest-joined remaining member; the last member
// leaving deletes the lobby.
func (r *Registry) Leave(conn string) {
	lobbyID, ok := r.byConn[conn]
	if !ok {
		return
	}
	delete(r.byConn, conn)
	r.bus.LeaveRoom(conn, lobbyID)

	lb := r.lobbies[lobbyID]
	for i, m := range lb.Members {
		if m.ID == conn {
			lb.Members = append(lb.Members[:i], lb.Members[i+1:]...)
			break
		}
	}

	if len(lb.Members) == 0 {
		delete(r.lobbies, lobbyID)
		r.broadcastListChanged()
		return
	}

	if lb.Host == conn {
		lb.Members[0].IsHost = true
		lb.Host = lb.Members[0].ID
	}
	r.bus.BroadcastToRoom(lb.ID, "lobbyUpdate", r.snapshot(lb), "")
	r.broadcastListChanged()
}

// Start flips the started flag. Host only; started lobbies drop out of the
// joinable listing.
func (r *Registry) Start(conn string) error {
	lb := r.lobbyOf(conn)
	if lb == nil {
		return ErrLobbyNotFound
	}
	if lb.Host != conn {
		return ErrNotHost
	}
	if lb.Started {
		return ErrLobbyStarted
	}
	lb.Started = true
	r.bus.BroadcastToRoom(lb.ID, "gameStarted", r.snapshot(lb), "")
	r.broadcastListChanged()
	return nil
}

// Relay forwards a host-authoritative world event to the rest of the lobby.
// Anything from a non-host (or from a connection outside any lobby) is
// silently dropped.
func (r *Registry) Relay(conn, event string, payload json.RawMessage) {
	lb := r.lobbyOf(conn)
	if lb == nil || lb.Host != conn {
		return
	}
	if event == "gameState" {
		lb.GameState = payload
	}
	r.bus.BroadcastToRoom(lb.ID, event, payload, conn)
}

// UpdateMemberInfo changes a member's display name or cosmetic and
// rebroadcasts the lobby snapshot.
func (r *Registry) UpdateMemberInfo(conn, name, cosmetic string) {
	lb := r.lobbyOf(conn)
	if lb == nil {
		return
	}
	for i := range lb.Members {
		if lb.Members[i].ID != conn {
			continue
		}
		if name != "" {
			lb.Members[i].Name = name
		}
		if cosmetic != "" {
			lb.Members[i].Cosmetic = cosmetic
		}
	}
	r.bus.BroadcastToRoom(lb.ID, "lobbyUpdate", r.snapshot(lb), "")
}

// List returns the joinable lobbies: the ones not yet started.
func (r *Registry) List() []Summary {
	out := make([]Summary, 0, len(r.lobbies))
	for _, lb := range r.lobbies {
		if lb.Started {
			continue
		}
		out = append(out, Summary{
			ID:          lb.ID,
			Name:        lb.Name,
			PlayerCount: len(lb.Members),
			Capacity:    lb.Capacity,
			LevelTag:    lb.LevelTag,
		})
	}
	return out
}

// Get is exposed for the coordinator and tests.
func (r *Registry) Get(lobbyID string) *Lobby { return r.lobbies[lobbyID] }

func (r *Registry) lobbyOf(conn string) *Lobby {
	if id, ok := r.byConn[conn]; ok {
		return r.lobbies[id]
	}
	return nil
}

func (r *Registry) snapshot(lb *Lobby) Snapshot {
	players := make([]Member, len(lb.Members))
	copy(players, lb.Members)
	return Snapshot{
		ID:       lb.ID,
		Name:     lb.Name,
		HostID:   lb.Host,
		Capacity: lb.Capacity,
		LevelTag: lb.LevelTag,
		Started:  lb.Started,
		Players:  players,
	}
}

func (r *Registry) broadcastListChanged() {
	r.bus.BroadcastToAll("lobbyListChanged", r.List())
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateCode builds a 6-character human-shareable lobby code.
func generateCode() string {
	code := make([]byte, 6)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			// crypto/rand failing means a broken platform; degrade instead
			// of crashing a lobby create.
			code[i] = codeCharset[0]
			continue
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code)
}

func (r *Registry) freshID() string {
	for {
		id := generateCode()
		if _, taken := r.lobbies[id]; !taken {
			return id
		}
	}
}
