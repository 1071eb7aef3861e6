package entity

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

var ErrBadLevel = errors.New("level must be at least 1")
var ErrBadMoveSet = errors.New("move set must contain exactly 4 moves")

// MoveCount is fixed for the lifetime of a cigarette.
const MoveCount = 4

type TypeTag string

const (
	TypeMenthol    TypeTag = "Menthol"
	TypeLight      TypeTag = "Light"
	TypeFull       TypeTag = "Full"
	TypeFilter     TypeTag = "Filter"
	TypeUnfiltered TypeTag = "Unfiltered"
)

type Effect string

const EffectDefenseUp Effect = "defense_up"

type Move struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Damage int    `json:"damage"`
	Type   string `json:"type"`
	Effect Effect `json:"effect,omitempty"`
}

// Cigarette is one battle-capable unit, either player-owned or wild.
type Cigarette struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       TypeTag `json:"type"`
	Level      int     `json:"level"`
	HP         int     `json:"hp"`
	MaxHP      int     `json:"maxHp"`
	Attack     int     `json:"attack"`
	Defense    int     `json:"defense"`
	Speed      int     `json:"speed"`
	Experience int     `json:"experience"`
	Moves      []Move  `json:"moves"`
}

// Spec describes a cigarette to create. Zero-valued stats are derived from
// the level; a nil move set is drawn from the catalog.
type Spec struct {
	Name    string
	Type    TypeTag
	Level   int
	HP      int
	Attack  int
	Defense int
	Speed   int
	Moves   []Move
}

// LevelUp reports the outcome of a level gain.
type LevelUp struct {
	Level      int `json:"level"`
	HPIncrease int `json:"hpIncrease"`
}

func New(spec Spec, rng *rand.Rand) (*Cigarette, error) {
	level := spec.Level
	if level == 0 {
		level = 1
	}
	if level < 1 {
		return nil, fmt.Errorf("create %q: %w", spec.Name, ErrBadLevel)
	}
	if spec.Moves != nil && len(spec.Moves) != MoveCount {
		return nil, fmt.Errorf("create %q: %w", spec.Name, ErrBadMoveSet)
	}

	c := &Cigarette{
		ID:      uuid.NewString(),
		Name:    spec.Name,
		Type:    spec.Type,
		Level:   level,
		HP:      spec.HP,
		Attack:  spec.Attack,
		Defense: spec.Defense,
		Speed:   spec.Speed,
		Moves:   spec.Moves,
	}
	if c.HP == 0 {
		c.HP = rollHP(level, rng)
	}
	c.MaxHP = c.HP
	if c.Attack == 0 {
		c.Attack = rollAttack(level, rng)
	}
	if c.Defense == 0 {
		c.Defense = rollDefense(level, rng)
	}
	if c.Speed == 0 {
		c.Speed = rollSpeed(level, rng)
	}
	if c.Moves == nil {
		c.Moves = DrawMoves(rng)
	}
	return c, nil
}

func rollHP(level int, rng *rand.Rand) int {
	return int(50 + float64(level)*10 + rng.Float64()*20)
}

func rollAttack(level int, rng *rand.Rand) int {
	return int(10 + float64(level)*2 + rng.Float64()*5)
}

func rollDefense(level int, rng *rand.Rand) int {
	return int(5 + float64(level)*1.5 + rng.Float64()*3)
}

func rollSpeed(level int, rng *rand.Rand) int {
	return int(8 + float64(level)*1.2 + rng.Float64()*4)
}

// ApplyDamage deals max(1, raw - defense) and returns the actual amount.
// HP is floored at 0. Damage is never zero so battles always progress,
// no matter how high the defense climbs.
func (c *Cigarette) ApplyDamage(raw int) int {
	actual := raw - c.Defense
	if actual < 1 {
		actual = 1
	}
	c.HP -= actual
	if c.HP < 0 {
		c.HP = 0
	}
	return actual
}

// GainExperience adds experience and resolves at most one level-up.
// The threshold is level*100; on level-up all stats are rerolled for the
// new level, HP is restored to the new maximum, and experience resets.
// Returns nil when no level was gained.
func (c *Cigarette) GainExperience(amount int, rng *rand.Rand) *LevelUp {
	c.Experience += amount
	if c.Experience < c.Level*100 {
		return nil
	}
	return c.levelUp(rng)
}

func (c *Cigarette) levelUp(rng *rand.Rand) *LevelUp {
	c.Level++
	oldMax := c.MaxHP
	c.MaxHP = rollHP(c.Level, rng)
	c.HP = c.MaxHP
	c.Attack = rollAttack(c.Level, rng)
	c.Defense = rollDefense(c.Level, rng)
	c.Speed = rollSpeed(c.Level, rng)
	c.Experience = 0
	return &LevelUp{Level: c.Level, HPIncrease: c.MaxHP - oldMax}
}

// Fainted reports whether the cigarette is out of the fight.
func (c *Cigarette) Fainted() bool { return c.HP <= 0 }

// FindMove returns the move with the given instance id, if owned.
func (c *Cigarette) FindMove(id string) (Move, bool) {
	for _, m := range c.Moves {
		if m.ID == id {
			return m, true
		}
	}
	return Move{}, false
}

// Clone returns an independent copy, including the move set.
func (c *Cigarette) Clone() *Cigarette {
	cp := *c
	cp.Moves = make([]Move, len(c.Moves))
	copy(cp.Moves, c.Moves)
	return &cp
}
