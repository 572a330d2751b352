package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetJSON_RoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, r, "credits.processed_transactions", map[string]int{"a": 1}))

	var got map[string]int
	ok, err := GetJSON(ctx, r, "credits.processed_transactions", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]int{"a": 1}, got)
}

func TestGetJSON_AbsentAndCorrupt(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	var v []string
	ok, err := GetJSON(ctx, r, "missing", &v)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)

	require.NoError(t, r.Set(ctx, "bad", []byte("{not json")))
	_, err = GetJSON(ctx, r, "bad", &v)
	require.ErrorContains(t, err, "failed to decode kv[bad]")
}
