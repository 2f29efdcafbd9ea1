package kv

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

type InMemoryStore struct {
	lock   *sync.RWMutex
	values map[Namespace]map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		lock:   new(sync.RWMutex),
		values: make(map[Namespace]map[string]string),
	}
}

func (s *InMemoryStore) Start(ctx context.Context, g *errgroup.Group) error {
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, ns Namespace, key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.values[ns][key], nil
}

func (s *InMemoryStore) Set(ctx context.Context, ns Namespace, key string, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	nsMap := s.values[ns]
	if nsMap == nil {
		nsMap = make(map[string]string)
		s.values[ns] = nsMap
	}

	nsMap[key] = value
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, ns Namespace, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.values[ns], key)
	return nil
}

func (s *InMemoryStore) Keys(ctx context.Context, ns Namespace) ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	keys := make([]string, 0, len(s.values[ns]))
	for k := range s.values[ns] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
