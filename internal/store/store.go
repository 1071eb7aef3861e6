// Package store persists player progression keyed by username. The record is
// the sole durable state; everything else in the process is rebuilt on
// restart.
package store

import (
	"context"

	"github.com/camelgame/backend/internal/entity"
	"github.com/camelgame/backend/pkg/types"
)

// PlayerRecord is the durable progression state for one player.
type PlayerRecord struct {
	Username   string              `json:"username"`
	Cigarettes []*entity.Cigarette `json:"cigarettes"`
	Active     string              `json:"active,omitempty"`
	Position   types.Position      `json:"position"`
}

// ActiveCigarette resolves the active reference, defaulting to the first
// owned cigarette.
func (r *PlayerRecord) ActiveCigarette() *entity.Cigarette {
	if r.Active != "" {
		for _, c := range r.Cigarettes {
			if c.ID == r.Active {
				return c
			}
		}
	}
	if len(r.Cigarettes) > 0 {
		return r.Cigarettes[0]
	}
	return nil
}

// Replace swaps the owned cigarette with the same id for the given one.
func (r *PlayerRecord) Replace(c *entity.Cigarette) {
	for i, owned := range r.Cigarettes {
		if owned.ID == c.ID {
			r.Cigarettes[i] = c
			return
		}
	}
}

// Clone deep-copies the record so persistence goroutines never share
// cigarettes with live game state.
func (r *PlayerRecord) Clone() *PlayerRecord {
	cp := *r
	cp.Cigarettes = make([]*entity.Cigarette, len(r.Cigarettes))
	for i, c := range r.Cigarettes {
		cp.Cigarettes[i] = c.Clone()
	}
	return &cp
}

// PlayerStore is the persistence gateway. Get returns (nil, nil) when no
// record exists for the username.
type PlayerStore interface {
	Get(ctx context.Context, username string) (*PlayerRecord, error)
	Put(ctx context.Context, record *PlayerRecord) error
}
