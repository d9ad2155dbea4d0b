package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"sgr/internal/auth/models"
	"sgr/pkg/platform/sentinel"
)

// Key names one of the logical records kept per browser session.
type Key string

const (
	KeyAuthData Key = "authData"
	KeyUserData Key = "userData"
)

var (
	// ErrNotFound is returned by Read when the key holds no value.
	ErrNotFound = fmt.Errorf("session entry: %w", sentinel.ErrNotFound)
	// ErrCorrupt marks a stored record that no longer decodes.
	ErrCorrupt = fmt.Errorf("session entry corrupt: %w", sentinel.ErrInvalidState)
)

// Store is the durable key-value medium behind one browser session. Every
// call is a single critical section: Delete removes all given keys at once.
type Store interface {
	Persist(ctx context.Context, key Key, value []byte) error
	Read(ctx context.Context, key Key) ([]byte, error)
	Delete(ctx context.Context, keys ...Key) error
}

// Provider hands out the Store namespaced to a browser session.
type Provider interface {
	ForSession(sessionID string) Store
}

// SaveAuthData persists the login payload unmodified.
func SaveAuthData(ctx context.Context, s Store, resp models.LoginResponse) error {
	return persistJSON(ctx, s, KeyAuthData, resp)
}

// AuthData reads the persisted login payload. A missing or corrupt record
// is reported as an error; callers treat both as "no token".
func AuthData(ctx context.Context, s Store) (models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := readJSON(ctx, s, KeyAuthData, &resp); err != nil {
		return models.LoginResponse{}, err
	}
	return resp, nil
}

func SaveProfile(ctx context.Context, s Store, profile models.Profile) error {
	return persistJSON(ctx, s, KeyUserData, profile)
}

// Profile reads the cached profile. Returns (nil, nil) when none is cached.
func Profile(ctx context.Context, s Store) (*models.Profile, error) {
	var profile models.Profile
	if err := readJSON(ctx, s, KeyUserData, &profile); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// Clear removes the token and the cached profile together.
func Clear(ctx context.Context, s Store) error {
	return s.Delete(ctx, KeyAuthData, KeyUserData)
}

func persistJSON(ctx context.Context, s Store, key Key, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Persist(ctx, key, raw)
}

func readJSON(ctx context.Context, s Store, key Key, v any) error {
	raw, err := s.Read(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w: %w", key, ErrCorrupt, err)
	}
	return nil
}
