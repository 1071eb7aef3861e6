// Package world maintains the ambient pool of wild cigarettes. The pool is
// replaced wholesale on every tick rather than aged entry by entry.
package world

import (
	"math/rand"

	"github.com/camelgame/backend/internal/entity"
	"github.com/camelgame/backend/pkg/types"
)

const (
	// Extent is the square world size; spawns land in [0, Extent) on both axes.
	Extent = 1000.0

	minSpawns = 5
	maxSpawns = 10
)

// Spawn is one wild cigarette placed in the world.
type Spawn struct {
	*entity.Cigarette
	Position types.Position `json:"position"`
}

// Manager owns the spawn pool. It is driven only from the coordinator
// goroutine, so it needs no locking.
type Manager struct {
	rng    *rand.Rand
	spawns []*Spawn
}

func NewManager(rng *rand.Rand) *Manager {
	return &Manager{rng: rng}
}

// Regenerate discards the entire pool and rolls 5-10 fresh wilds at random
// coordinates. Captured or defeated wilds never individually respawn;
// everyone just sees the next full pool.
func (m *Manager) Regenerate() []*Spawn {
	count := m.rng.Intn(maxSpawns-minSpawns+1) + minSpawns
	m.spawns = make([]*Spawn, 0, count)
	for i := 0; i < count; i++ {
		m.spawns = append(m.spawns, &Spawn{
			Cigarette: entity.NewWild(m.rng),
			Position: types.Position{
				X: m.rng.Float64() * Extent,
				Y: m.rng.Float64() * Extent,
			},
		})
	}
	return m.spawns
}

func (m *Manager) Spawns() []*Spawn { return m.spawns }

// Find returns the pooled wild with the given id, or nil.
func (m *Manager) Find(id string) *Spawn {
	for _, s := range m.spawns {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Remove takes a wild out of the pool, typically after a capture.
func (m *Manager) Remove(id string) bool {
	for i, s := range m.spawns {
		if s.ID == id {
			m.spawns = append(m.spawns[:i], m.spawns[i+1:]...)
			return true
		}
	}
	return false
}
