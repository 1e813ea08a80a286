// Package prefs is a small typed key-value store for scalar settings
// and serialized sets: idempotency flags, streak bookkeeping, legacy
// record blobs. Backed by PebbleDB.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/cockroachdb/pebble/v2"
)

type Store struct {
	db *pebble.DB
}

func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open prefs store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) ([]byte, bool, error) {
	value, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (s *Store) set(key string, value []byte) error {
	if err := s.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// GetString returns the stored value, or def when the key is absent.
func (s *Store) GetString(key, def string) (string, error) {
	value, ok, err := s.get(key)
	if err != nil || !ok {
		return def, err
	}
	return string(value), nil
}

func (s *Store) SetString(key, value string) error {
	return s.set(key, []byte(value))
}

func (s *Store) GetBool(key string, def bool) (bool, error) {
	value, ok, err := s.get(key)
	if err != nil || !ok {
		return def, err
	}
	b, err := strconv.ParseBool(string(value))
	if err != nil {
		return def, fmt.Errorf("parse bool %s: %w", key, err)
	}
	return b, nil
}

func (s *Store) SetBool(key string, value bool) error {
	return s.set(key, []byte(strconv.FormatBool(value)))
}

func (s *Store) GetInt(key string, def int) (int, error) {
	value, ok, err := s.get(key)
	if err != nil || !ok {
		return def, err
	}
	n, err := strconv.Atoi(string(value))
	if err != nil {
		return def, fmt.Errorf("parse int %s: %w", key, err)
	}
	return n, nil
}

func (s *Store) SetInt(key string, value int) error {
	return s.set(key, []byte(strconv.Itoa(value)))
}

// GetJSON unmarshals the stored value into v. It reports whether the
// key was present.
func (s *Store) GetJSON(key string, v any) (bool, error) {
	value, ok, err := s.get(key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(value, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.set(key, data)
}

func (s *Store) Delete(key string) error {
	if err := s.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
