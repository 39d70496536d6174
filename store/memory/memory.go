// Package memory provides a map-backed store.Backend, mainly for tests.
package memory

import (
	"slices"
	"sync"

	"go.hackfix.me/stow/store"
)

type entry struct {
	payload []byte
	access  store.Accessibility
}

// Memory is an in-memory backend. It is safe for concurrent use.
type Memory struct {
	mx   sync.RWMutex
	data map[string]map[string]entry
}

var (
	_ store.Backend      = &Memory{}
	_ store.Lister       = &Memory{}
	_ store.AccessReader = &Memory{}
)

// New returns an empty in-memory backend.
func New() *Memory {
	return &Memory{data: map[string]map[string]entry{}}
}

func (m *Memory) Exists(namespace, key string) (bool, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	_, ok := m.data[namespace][key]
	return ok, nil
}

func (m *Memory) Put(namespace, key string, payload []byte, access store.Accessibility) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	ns, ok := m.data[namespace]
	if !ok {
		ns = map[string]entry{}
		m.data[namespace] = ns
	}
	ns[key] = entry{payload: slices.Clone(payload), access: access}
	return nil
}

func (m *Memory) Get(namespace, key string) ([]byte, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	e, ok := m.data[namespace][key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return slices.Clone(e.payload), nil
}

func (m *Memory) Delete(namespace, key string) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if _, ok := m.data[namespace][key]; !ok {
		return store.ErrNotFound
	}
	delete(m.data[namespace], key)
	return nil
}

func (m *Memory) DeleteAll(namespace string) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	delete(m.data, namespace)
	return nil
}

// List returns the keys in the namespace in lexicographic order.
func (m *Memory) List(namespace string) ([]string, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	keys := make([]string, 0, len(m.data[namespace]))
	for k := range m.data[namespace] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Accessibility returns the accessibility an entry was stored with.
func (m *Memory) Accessibility(namespace, key string) (store.Accessibility, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	e, ok := m.data[namespace][key]
	if !ok {
		return store.Accessibility{}, store.ErrNotFound
	}
	return e.access, nil
}
