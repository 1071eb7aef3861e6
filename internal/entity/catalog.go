package entity

import (
	"math/rand"

	"github.com/google/uuid"
)

// moveCatalog is the fixed pool every generated move set is drawn from.
// Filter Guard is the only non-damaging entry.
var moveCatalog = []Move{
	{Name: "Smoke Blast", Damage: 20, Type: "normal"},
	{Name: "Nicotine Rush", Damage: 15, Type: "speed"},
	{Name: "Tar Slam", Damage: 25, Type: "normal"},
	{Name: "Filter Guard", Damage: 0, Type: "defense", Effect: EffectDefenseUp},
	{Name: "Ashes Attack", Damage: 18, Type: "normal"},
	{Name: "Menthol Freeze", Damage: 22, Type: "ice"},
}

// DrawMoves picks 4 distinct catalog entries. Each drawn move gets a fresh
// instance id, so two cigarettes never share a move identity even when they
// draw the same catalog entry.
func DrawMoves(rng *rand.Rand) []Move {
	moves := make([]Move, 0, MoveCount)
	for _, i := range rng.Perm(len(moveCatalog))[:MoveCount] {
		m := moveCatalog[i]
		m.ID = uuid.NewString()
		moves = append(moves, m)
	}
	return moves
}

var starters = []struct {
	Name string
	Type TypeTag
}{
	{"Camel Filter", TypeFilter},
	{"Camel Menthol", TypeMenthol},
	{"Camel Light", TypeLight},
}

// StarterLevel is the level every first-grant cigarette starts at.
const StarterLevel = 5

// NewStarter grants a random level-5 starter archetype.
func NewStarter(rng *rand.Rand) *Cigarette {
	s := starters[rng.Intn(len(starters))]
	c, _ := New(Spec{Name: s.Name, Type: s.Type, Level: StarterLevel}, rng)
	return c
}

var wildTypes = []TypeTag{TypeFilter, TypeMenthol, TypeLight, TypeFull, TypeUnfiltered}

var wildNames = []string{"Camel", "Joe Camel", "Desert Cigarette", "Sandstorm Smoke"}

// NewWild generates an uncaptured cigarette at a random level between 1 and 10.
func NewWild(rng *rand.Rand) *Cigarette {
	name := wildNames[rng.Intn(len(wildNames))] + " " + string(wildTypes[rng.Intn(len(wildTypes))])
	c, _ := New(Spec{
		Name:  name,
		Type:  wildTypes[rng.Intn(len(wildTypes))],
		Level: rng.Intn(10) + 1,
	}, rng)
	return c
}
