// Package lockset computes which commissions are held by in-flight withdrawals.
// Balance summaries, withdrawal requests and commission listings all read the
// same set from here.
package lockset

import (
	"github.com/google/uuid"

	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
)

// Set is the collection of locked commission ids and the withdrawal holding each.
type Set map[uuid.UUID]uuid.UUID

// Resolve unions the commission ids of every withdrawal whose status locks.
func Resolve(withdrawals []models.CommissionWithdrawal) Set {
	set := Set{}
	for _, w := range withdrawals {
		if !w.Status.Locks() {
			continue
		}
		for _, id := range w.CommissionIDs {
			set[id] = w.ID
		}
	}
	return set
}

func (s Set) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// HeldBy returns the withdrawal locking id, if any.
func (s Set) HeldBy(id uuid.UUID) (uuid.UUID, bool) {
	w, ok := s[id]
	return w, ok
}

// Intersect returns the ids from candidates that are locked, in input order.
func (s Set) Intersect(candidates []uuid.UUID) []uuid.UUID {
	var locked []uuid.UUID
	for _, id := range candidates {
		if s.Contains(id) {
			locked = append(locked, id)
		}
	}
	return locked
}
