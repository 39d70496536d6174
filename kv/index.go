package kv

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.hackfix.me/stow/store"
)

// index returns the keys recorded in the key index. A missing or corrupt
// index is treated as empty.
func (s *Store) index() []string {
	keys := []string{}

	data, err := s.backend.Get(s.namespace, IndexKey)
	if errors.Is(err, store.ErrNotFound) {
		return keys
	}
	if err != nil {
		s.logger.Warn("failed reading key index", "namespace", s.namespace, "error", err.Error())
		return keys
	}

	if err = json.Unmarshal(data, &keys); err != nil {
		s.logger.Warn("failed decoding key index", "namespace", s.namespace, "error", err.Error())
		return []string{}
	}
	if keys == nil {
		keys = []string{}
	}

	return keys
}

func (s *Store) writeIndex(keys []string) error {
	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed encoding key index: %w", err)
	}

	return s.backend.Put(s.namespace, IndexKey, data, store.AccessibleAlways)
}
