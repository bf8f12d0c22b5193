package ephemeral

import (
	"context"
	"encoding/json"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// MemoryStore -> backend in-process untuk development tanpa Redis dan untuk test
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		c: cache.New(cache.NoExpiration, time.Minute),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.c.Set(key, data, ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := s.c.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw.([]byte), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	if err := s.c.Add(key, data, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}
