package inmemorykv

import (
	"encoding/json"
	"sync"

	"github.com/heliowallet/wallet-sdk/types"
)

type kvStore struct {
	data map[string][]byte
	lock *sync.RWMutex
}

func NewKVStore() types.KVStore {
	return &kvStore{
		data: make(map[string][]byte),
		lock: &sync.RWMutex{},
	}
}

func (s *kvStore) Get(key string) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	buf, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	if !json.Valid(buf) {
		// Legacy entry stored as a raw string, re-persist it as JSON.
		repaired, err := json.Marshal(string(buf))
		if err != nil {
			return nil, err
		}
		s.data[key] = repaired
		return repaired, nil
	}
	return buf, nil
}

func (s *kvStore) Set(key string, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	buf := make([]byte, len(value))
	copy(buf, value)
	s.data[key] = buf
	return nil
}

func (s *kvStore) Remove(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.data, key)
	return nil
}

func (s *kvStore) Keys() ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *kvStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = make(map[string][]byte)
	return nil
}
