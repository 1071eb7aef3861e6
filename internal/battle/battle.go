// Package battle resolves one player-owned cigarette against one wild
// cigarette as a strict turn-based exchange. The battle works on snapshots:
// the caller decides what, if anything, to write back when it concludes.
package battle

import (
	"math/rand"

	"github.com/camelgame/backend/internal/entity"
)

type Side string

const (
	SidePlayer Side = "player"
	SideWild   Side = "wild"
)

// defenseBoost is what Filter Guard adds to the acting side's own defense.
const defenseBoost = 5

// LogEntry is one immutable resolution record. The log is the authoritative
// history for client replay and for auditing rewards.
type LogEntry struct {
	Attacker   Side          `json:"attacker"`
	Move       string        `json:"move"`
	Damage     int           `json:"damage"`
	Effect     entity.Effect `json:"effect,omitempty"`
	AttackerHP int           `json:"attackerHp"`
	DefenderHP int           `json:"defenderHp"`
}

// Result is the per-resolution payload sent back to the client.
type Result struct {
	Attacker   Side          `json:"attacker"`
	Move       string        `json:"move"`
	Damage     int           `json:"damage"`
	Effect     entity.Effect `json:"effect,omitempty"`
	AttackerHP int           `json:"attackerHp"`
	DefenderHP int           `json:"defenderHp"`
	IsDefeated bool          `json:"isDefeated"`
}

// Rewards is what the player side earns on victory.
type Rewards struct {
	Experience  int             `json:"experience"`
	LevelUp     bool            `json:"levelUp"`
	LevelUpData *entity.LevelUp `json:"levelUpData"`
}

type Battle struct {
	Player *entity.Cigarette
	Wild   *entity.Cigarette
	Order  [2]Side
	Log    []LogEntry

	wildLevel int
	rng       *rand.Rand
}

// New snapshots both combatants and fixes the turn order. The initiating
// (player) side acts first on a speed tie.
func New(player, wild *entity.Cigarette, rng *rand.Rand) *Battle {
	b := &Battle{
		Player:    player.Clone(),
		Wild:      wild.Clone(),
		wildLevel: wild.Level,
		rng:       rng,
	}
	if b.Player.Speed >= b.Wild.Speed {
		b.Order = [2]Side{SidePlayer, SideWild}
	} else {
		b.Order = [2]Side{SideWild, SidePlayer}
	}
	return b
}

func (b *Battle) combatant(s Side) *entity.Cigarette {
	if s == SidePlayer {
		return b.Player
	}
	return b.Wild
}

func (b *Battle) opponent(s Side) *entity.Cigarette {
	if s == SidePlayer {
		return b.Wild
	}
	return b.Player
}

// ResolveMove applies one move for the given side and appends a log entry.
// Filter Guard raises the acting side's own defense and deals no damage.
func (b *Battle) ResolveMove(attacker Side, move entity.Move) Result {
	atk := b.combatant(attacker)
	def := b.opponent(attacker)

	damage := 0
	if move.Effect == entity.EffectDefenseUp {
		atk.Defense += defenseBoost
	} else {
		raw := move.Damage + atk.Attack/2
		damage = def.ApplyDamage(raw)
	}

	b.Log = append(b.Log, LogEntry{
		Attacker:   attacker,
		Move:       move.Name,
		Damage:     damage,
		Effect:     move.Effect,
		AttackerHP: atk.HP,
		DefenderHP: def.HP,
	})

	return Result{
		Attacker:   attacker,
		Move:       move.Name,
		Damage:     damage,
		Effect:     move.Effect,
		AttackerHP: atk.HP,
		DefenderHP: def.HP,
		IsDefeated: def.Fainted(),
	}
}

// WildMove picks uniformly among the wild side's four moves.
func (b *Battle) WildMove() entity.Move {
	return b.Wild.Moves[b.rng.Intn(len(b.Wild.Moves))]
}

// Exchange resolves one full player+wild action round. A moveID not present
// in the player's current move set means a stale client view: nothing is
// applied, nothing is logged, and ok is false.
func (b *Battle) Exchange(moveID string) (results []Result, ok bool) {
	if b.Over() {
		return nil, false
	}
	move, found := b.Player.FindMove(moveID)
	if !found {
		return nil, false
	}

	results = append(results, b.ResolveMove(SidePlayer, move))
	if b.Over() {
		return results, true
	}
	results = append(results, b.ResolveMove(SideWild, b.WildMove()))
	return results, true
}

// Over reports whether either side has fainted.
func (b *Battle) Over() bool {
	return b.Player.Fainted() || b.Wild.Fainted()
}

// Winner returns the standing side, or "" while undecided (or on the
// never-expected double faint).
func (b *Battle) Winner() Side {
	switch {
	case !b.Player.Fainted() && b.Wild.Fainted():
		return SidePlayer
	case !b.Wild.Fainted() && b.Player.Fainted():
		return SideWild
	default:
		return ""
	}
}

// ComputeRewards grants victory experience (15 per wild level, the level the
// wild entered the battle at) to the player's cigarette. Nil unless the
// player won.
func (b *Battle) ComputeRewards() *Rewards {
	if b.Winner() != SidePlayer {
		return nil
	}
	exp := b.wildLevel * 15
	up := b.Player.GainExperience(exp, b.rng)
	return &Rewards{Experience: exp, LevelUp: up != nil, LevelUpData: up}
}

// CatchRate maps remaining health to capture probability: a wounded wild is
// easier to catch, floored at 10%.
func CatchRate(c *entity.Cigarette) float64 {
	rate := 1 - float64(c.HP)/float64(c.MaxHP)*0.5
	if rate < 0.1 {
		rate = 0.1
	}
	return rate
}
