package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnknownProductError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("purchase: %w", &UnknownProductError{ProductID: "credits_7"})

	assert.ErrorIs(t, err, ErrUnknownProduct)

	var upe *UnknownProductError
	assert.True(t, errors.As(err, &upe))
	assert.Equal(t, "credits_7", upe.ProductID)
	assert.Contains(t, err.Error(), "unknown product credits_7")
}
