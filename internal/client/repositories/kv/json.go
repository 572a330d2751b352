package kv

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetJSON decodes the value under key into dst. It reports false, leaving
// dst untouched, when the key is absent.
func GetJSON(ctx context.Context, repo Repository, key string, dst any) (bool, error) {
	raw, err := repo.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode kv[%s]: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v under key as JSON.
func SetJSON(ctx context.Context, repo Repository, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode kv[%s]: %w", key, err)
	}
	return repo.Set(ctx, key, raw)
}
