package inmemorystore

import (
	"context"
	"sync"

	"github.com/heliowallet/wallet-sdk/types"
)

type accessStore struct {
	data *types.AccessData
	lock *sync.RWMutex
}

func NewAccessStore() types.AccessStore {
	lock := &sync.RWMutex{}
	return &accessStore{lock: lock}
}

func (s *accessStore) SaveAccessData(
	_ context.Context, data types.AccessData,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = &data
	return nil
}

func (s *accessStore) GetAccessData(
	_ context.Context,
) (*types.AccessData, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.data == nil {
		return nil, nil
	}
	return s.data, nil
}

func (s *accessStore) CleanData(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = nil
	return nil
}

type tokenStore struct {
	tokens map[string]types.TokenData
	lock   *sync.RWMutex
}

func NewTokenStore() types.TokenStore {
	lock := &sync.RWMutex{}
	return &tokenStore{
		tokens: make(map[string]types.TokenData),
		lock:   lock,
	}
}

func (s *tokenStore) RegisterToken(
	_ context.Context, token types.TokenData,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.tokens[token.UID] = token
	return nil
}

func (s *tokenStore) GetRegisteredTokens(
	_ context.Context,
) ([]types.TokenData, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	tokens := make([]types.TokenData, 0, len(s.tokens))
	for _, token := range s.tokens {
		tokens = append(tokens, token)
	}
	return tokens, nil
}
