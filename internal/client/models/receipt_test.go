package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationResult_HasTransaction(t *testing.T) {
	r := &ValidationResult{Transactions: []ReceiptTransaction{{TransactionID: "a"}, {TransactionID: "b"}}}

	assert.True(t, r.HasTransaction("b"))
	assert.False(t, r.HasTransaction("c"))

	var nilResult *ValidationResult
	assert.False(t, nilResult.HasTransaction("a"))
}
