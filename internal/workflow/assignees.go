package workflow

import (
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/google/uuid"
)

// Unbounded is the capacity of a kind that accepts any number of assignees.
const Unbounded = 0

// Capacity is the maximum number of simultaneous assignees for a kind.
func Capacity(k Kind) int {
	if k == KindReconciliation {
		return Unbounded
	}
	return 1
}

// MergeAssignees computes the assignee set after an assign request.
// Single-capacity kinds replace the current holder; unbounded kinds take the
// union, keeping existing entries first and dropping duplicates.
func MergeAssignees(k Kind, current, incoming []uuid.UUID) ([]uuid.UUID, error) {
	incoming = dedupe(incoming)
	if len(incoming) == 0 {
		return nil, apperr.Validation("at least one shaykh is required")
	}
	for _, id := range incoming {
		if id == uuid.Nil {
			return nil, apperr.Validation("invalid shaykh id")
		}
	}

	if c := Capacity(k); c != Unbounded {
		if len(incoming) > c {
			return nil, apperr.Validation("only one shaykh can be assigned to a " + string(k))
		}
		return incoming, nil
	}
	return dedupe(append(append([]uuid.UUID{}, current...), incoming...)), nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
