package menu

import (
	"context"
	"sync"
)

// MemRepo is an in-process Repository used in tests and for running the
// server without Postgres.
type MemRepo struct {
	mu    sync.RWMutex
	items map[string]Item
}

func NewMemRepo() *MemRepo {
	return &MemRepo{items: make(map[string]Item)}
}

func (r *MemRepo) List(ctx context.Context) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	return out, nil
}

func (r *MemRepo) GetByID(ctx context.Context, id string) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (r *MemRepo) Create(ctx context.Context, it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.ID] = *it
	return nil
}

func (r *MemRepo) Update(ctx context.Context, it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[it.ID]
	if !ok {
		return ErrNotFound
	}
	if it.Name != "" {
		cur.Name = it.Name
	}
	if it.Category != "" {
		cur.Category = it.Category
	}
	cur.Image = it.Image
	r.items[it.ID] = cur
	return nil
}

func (r *MemRepo) Toggle(ctx context.Context, id string) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cur.IsAvailable = !cur.IsAvailable
	r.items[id] = cur
	return &cur, nil
}

func (r *MemRepo) Delete(ctx context.Context, id string) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.items, id)
	return &cur, nil
}

func (r *MemRepo) Availability(ctx context.Context, names []string) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(names))
	for _, it := range r.items {
		for _, name := range names {
			if it.Name == name {
				out[name] = it.IsAvailable
			}
		}
	}
	return out, nil
}

func (r *MemRepo) Categories(ctx context.Context, names []string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(names))
	for _, it := range r.items {
		for _, name := range names {
			if it.Name == name {
				out[name] = it.Category
			}
		}
	}
	return out, nil
}
