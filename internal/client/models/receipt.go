package models

import "time"

// Environment is the store environment that issued a receipt.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

// ReceiptTransaction is one in-app purchase embedded in a verified receipt.
type ReceiptTransaction struct {
	TransactionID         string    `json:"transaction_id"`
	OriginalTransactionID string    `json:"original_transaction_id"`
	ProductID             string    `json:"product_id"`
	PurchasedAt           time.Time `json:"purchased_at"`
	Quantity              int       `json:"quantity"`
}

// ValidationResult is the interpreted answer of the verification endpoint.
type ValidationResult struct {
	Success      bool                 `json:"success"`
	Status       int                  `json:"status"`
	Environment  Environment          `json:"environment"`
	Transactions []ReceiptTransaction `json:"transactions"`
}

// HasTransaction reports whether the receipt lists transactionID.
func (r *ValidationResult) HasTransaction(transactionID string) bool {
	if r == nil {
		return false
	}
	for _, t := range r.Transactions {
		if t.TransactionID == transactionID {
			return true
		}
	}
	return false
}
