package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EnvelopeVersion - текущая версия формата сохранения
const EnvelopeVersion = 1

var (
	ErrNotFound        = errors.New("state not found")
	ErrVersionMismatch = errors.New("state version mismatch")
	ErrInvalidKey      = errors.New("invalid state key")
)

// Store хранит сериализованные снимки игры по ключу игрока.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Envelope - обертка сохраненного состояния
type Envelope struct {
	Version int             `json:"version"`
	Key     string          `json:"key"`
	SavedAt time.Time       `json:"saved_at"`
	State   json.RawMessage `json:"state"`
}

// Encode wraps state into a versioned envelope.
func Encode(key string, state any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	data, err := json.Marshal(Envelope{Version: EnvelopeVersion, Key: key, SavedAt: now.UTC(), State: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// Decode unwraps data into state. Envelopes of another version are rejected,
// there is no migration.
func Decode(data []byte, state any) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != EnvelopeVersion {
		return env, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, env.Version, EnvelopeVersion)
	}
	if len(env.State) == 0 {
		return env, fmt.Errorf("%w: empty state", ErrNotFound)
	}
	if err := json.Unmarshal(env.State, state); err != nil {
		return env, fmt.Errorf("unmarshal state: %w", err)
	}
	return env, nil
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}
