package notifications

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage for development and tests.
type MemoryStorage struct {
	mu     sync.RWMutex
	rows   map[int64]Notification
	nextID int64
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{rows: make(map[int64]Notification)}
}

func (s *MemoryStorage) Create(_ context.Context, notifs ...Notification) ([]Notification, error) {
	for _, n := range notifs {
		if n.RecipientID <= 0 {
			return nil, ErrInvalidRecipient
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Notification, len(notifs))
	for i, n := range notifs {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		s.nextID++
		n.ID = s.nextID
		n.Data = maps.Clone(n.Data)
		s.rows[n.ID] = n
		out[i] = n
	}
	return out, nil
}

func (s *MemoryStorage) Get(_ context.Context, id int64) (Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.rows[id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

func (s *MemoryStorage) List(_ context.Context, recipientID int64, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]Notification, 0)
	for _, n := range s.rows {
		if n.RecipientID != recipientID {
			continue
		}
		if opts.OnlyUnread && n.IsRead() {
			continue
		}
		if len(opts.Types) > 0 && !slices.Contains(opts.Types, n.Type) {
			continue
		}
		if opts.Since != nil && !n.CreatedAt.After(*opts.Since) {
			continue
		}
		filtered = append(filtered, n)
	}

	slices.SortFunc(filtered, func(a, b Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(filtered) {
			return []Notification{}, nil
		}
		filtered = filtered[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(filtered) {
		filtered = filtered[:opts.Limit]
	}
	return filtered, nil
}

func (s *MemoryStorage) CountUnread(_ context.Context, recipientID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.rows {
		if n.RecipientID == recipientID && !n.IsRead() {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) MarkRead(_ context.Context, recipientID int64, at time.Time, ids ...int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, id := range ids {
		n, ok := s.rows[id]
		if !ok || n.RecipientID != recipientID || n.IsRead() {
			continue
		}
		readAt := at
		n.ReadAt = &readAt
		s.rows[id] = n
		changed++
	}
	return changed, nil
}

func (s *MemoryStorage) MarkAllRead(_ context.Context, recipientID int64, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for id, n := range s.rows {
		if n.RecipientID != recipientID || n.IsRead() {
			continue
		}
		readAt := at
		n.ReadAt = &readAt
		s.rows[id] = n
		changed++
	}
	return changed, nil
}

func (s *MemoryStorage) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *MemoryStorage) DeleteRead(_ context.Context, recipientID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, n := range s.rows {
		if n.RecipientID == recipientID && n.IsRead() {
			delete(s.rows, id)
			removed++
		}
	}
	return removed, nil
}
