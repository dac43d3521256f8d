package targeting

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// StaticMembership is an in-memory Membership keyed by user id.
type StaticMembership struct {
	mu    sync.RWMutex
	roles map[int64]string
}

// NewStaticMembership copies users (id -> role).
func NewStaticMembership(users map[int64]string) *StaticMembership {
	m := maps.Clone(users)
	if m == nil {
		m = map[int64]string{}
	}
	return &StaticMembership{roles: m}
}

// Set adds or updates a user.
func (s *StaticMembership) Set(id int64, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[id] = role
}

func (s *StaticMembership) RecipientsByRole(_ context.Context, role string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int64, 0)
	for id, r := range s.roles {
		if role == RoleAll || r == role {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *StaticMembership) Existing(_ context.Context, ids []int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.roles[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}
