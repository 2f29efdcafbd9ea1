package kv

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Store is a namespaced string key-value store. Get returns an empty string
// for missing keys.
type Store interface {
	Start(ctx context.Context, g *errgroup.Group) error
	Get(ctx context.Context, ns Namespace, key string) (string, error)
	Set(ctx context.Context, ns Namespace, key string, value string) error
	Delete(ctx context.Context, ns Namespace, key string) error
	Keys(ctx context.Context, ns Namespace) ([]string, error)
}

var (
	namespaceLock = new(sync.RWMutex)
	namespaces    = make(map[string]struct{})
)

type Namespace string

func RegisterNamespace(ns string) Namespace {
	namespaceLock.Lock()
	defer namespaceLock.Unlock()

	namespaces[ns] = struct{}{}
	return Namespace(ns)
}

func registeredNamespaces() []string {
	namespaceLock.RLock()
	defer namespaceLock.RUnlock()

	var list []string
	for ns := range namespaces {
		list = append(list, ns)
	}
	return list
}

func isRegistered(ns string) bool {
	namespaceLock.RLock()
	defer namespaceLock.RUnlock()

	_, ok := namespaces[ns]
	return ok
}
