package kv

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FSStore keeps one file per key under <root>/<namespace>/. Keys are path
// escaped.
type FSStore struct {
	logger *zap.Logger
	lock   *sync.RWMutex
	fsPath string
}

func NewFSStore(logger *zap.Logger, fsPath string) *FSStore {
	return &FSStore{
		logger: logger.Named("fs-store"),
		lock:   new(sync.RWMutex),
		fsPath: fsPath,
	}
}

func (s *FSStore) Start(ctx context.Context, g *errgroup.Group) error {
	for _, ns := range registeredNamespaces() {
		if err := os.MkdirAll(s.dir(Namespace(ns)), 0755); err != nil {
			return err
		}
	}
	s.logger.Info("store ready", zap.String("path", s.fsPath))
	return nil
}

func (s *FSStore) dir(ns Namespace) string {
	return filepath.Join(s.fsPath, url.PathEscape(string(ns)))
}

func (s *FSStore) path(ns Namespace, key string) string {
	return filepath.Join(s.dir(ns), url.PathEscape(key))
}

func (s *FSStore) Get(ctx context.Context, ns Namespace, key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	b, err := os.ReadFile(s.path(ns, key))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *FSStore) Set(ctx context.Context, ns Namespace, key string, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := os.MkdirAll(s.dir(ns), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path(ns, key), []byte(value), 0644)
}

func (s *FSStore) Delete(ctx context.Context, ns Namespace, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	err := os.Remove(s.path(ns, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FSStore) Keys(ctx context.Context, ns Namespace) ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	entries, err := os.ReadDir(s.dir(ns))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, err := url.PathUnescape(e.Name())
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
