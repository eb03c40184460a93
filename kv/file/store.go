package filekv

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/heliowallet/wallet-sdk/types"
)

const (
	filename = "settings.json"
)

// kvStore persists the flat key space as a single JSON object whose values
// are the JSON-encoded entries.
type kvStore struct {
	filePath string
}

func NewKVStore(baseDir string) (types.KVStore, error) {
	datadir := cleanAndExpandPath(baseDir)
	if err := makeDirectoryIfNotExists(datadir); err != nil {
		return nil, fmt.Errorf("failed to initialize datadir: %s", err)
	}
	filePath := filepath.Join(datadir, filename)

	store := &kvStore{filePath}

	if _, err := store.open(); err != nil {
		return nil, fmt.Errorf("failed to open kv store: %s", err)
	}

	return store, nil
}

func (s *kvStore) Get(key string) ([]byte, error) {
	data, err := s.open()
	if err != nil {
		return nil, err
	}

	value, ok := data[key]
	if !ok {
		return nil, nil
	}
	if !json.Valid([]byte(value)) {
		// Legacy entry stored as a raw string, re-persist it as JSON.
		repaired, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		data[key] = string(repaired)
		if err := s.write(data); err != nil {
			return nil, err
		}
		return repaired, nil
	}
	return []byte(value), nil
}

func (s *kvStore) Set(key string, value []byte) error {
	data, err := s.open()
	if err != nil {
		return err
	}

	data[key] = string(value)
	return s.write(data)
}

func (s *kvStore) Remove(key string) error {
	data, err := s.open()
	if err != nil {
		return err
	}

	delete(data, key)
	return s.write(data)
}

func (s *kvStore) Keys() ([]string, error) {
	data, err := s.open()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *kvStore) Clear() error {
	return s.write(map[string]string{})
}

func (s *kvStore) open() (map[string]string, error) {
	file, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open kv store: %s", err)
		}
		if err := s.write(map[string]string{}); err != nil {
			return nil, fmt.Errorf("failed to initialize kv store: %s", err)
		}
		return map[string]string{}, nil
	}

	data := map[string]string{}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("failed to read kv store: %s", err)
	}
	return data, nil
}

func (s *kvStore) write(data map[string]string) error {
	jsonString, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, jsonString, 0755)
}

func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
