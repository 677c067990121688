package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a fixture-backed Store for tests and local development.
type MemoryStore struct {
	mu         sync.RWMutex
	products   map[int64]*Product
	users      map[int64]*User
	orders     map[int64]*Order
	categories map[int64]*Category
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:   make(map[int64]*Product),
		users:      make(map[int64]*User),
		orders:     make(map[int64]*Order),
		categories: make(map[int64]*Category),
	}
}

func (s *MemoryStore) PutProduct(p *Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *MemoryStore) PutUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryStore) PutOrder(o *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

func (s *MemoryStore) PutCategory(c *Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

func (s *MemoryStore) RemoveProduct(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

func (s *MemoryStore) RemoveUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *MemoryStore) Product(_ context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products[id], nil
}

func (s *MemoryStore) User(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id], nil
}

func (s *MemoryStore) Order(_ context.Context, id int64) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders[id], nil
}

func (s *MemoryStore) Category(_ context.Context, id int64) (*Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories[id], nil
}

func (s *MemoryStore) PublishedProductIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for id, p := range s.products {
		if !p.IsVariant() && p.Published() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryStore) PublishedVariantIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for id, p := range s.products {
		if p.IsVariant() && p.Published() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryStore) UserIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.users), nil
}

func (s *MemoryStore) OrderIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.orders), nil
}

func (s *MemoryStore) CategoryIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.categories), nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
