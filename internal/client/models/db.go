// Package models defines the value types persisted by the credit engine and
// exchanged with the store adapters.
package models

import "time"

// HistoryAction is the reason recorded for a balance-affecting event.
type HistoryAction string

const (
	ActionFreeAnalysisUsed HistoryAction = "free_analysis_used"
	ActionCreditUsed       HistoryAction = "credit_used"
	ActionCreditsAdded     HistoryAction = "credits_added"
	ActionPurchaseRestored HistoryAction = "purchase_restored"
)

// CreditHistoryEntry is one immutable row of the user-facing credit ledger.
// Amount is signed: positive for grants, negative for spending, zero for the
// free analysis.
type CreditHistoryEntry struct {
	ID            string        `json:"id"`
	Action        HistoryAction `json:"action"`
	Amount        int64         `json:"amount"`
	Description   string        `json:"description"`
	Timestamp     time.Time     `json:"timestamp"`
	BalanceAfter  int64         `json:"balance_after"`
	TransactionID string        `json:"transaction_id,omitempty"`
}

// PurchaseRecord is the receipt-side record of a committed purchase.
// ID is the vendor transaction id, or a synthetic one in demo mode.
type PurchaseRecord struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Credits   int64     `json:"credits"`
	Price     string    `json:"price"`
	Currency  string    `json:"currency"`
	Platform  string    `json:"platform"`
	Timestamp time.Time `json:"timestamp"`
}

// FreeTrialState tracks the single free analysis granted per installation.
type FreeTrialState struct {
	HasUsedFreeAnalysis   bool       `json:"has_used_free_analysis"`
	InstallationTimestamp time.Time  `json:"installation_timestamp"`
	UsedTimestamp         *time.Time `json:"used_timestamp,omitempty"`
}
