package models

import "time"

// EventSource names the delivery path a purchase event arrived through.
type EventSource string

const (
	SourceDirect   EventSource = "direct"
	SourceListener EventSource = "listener"
	SourcePolling  EventSource = "polling"
	SourceRestore  EventSource = "restore"
)

// PurchaseEvent is what a store adapter reports for a vendor transaction.
//
// Receipt is the opaque receipt blob for server-side verification.
// SignedTransaction is a compact JWS carrying the same transaction, as newer
// store SDKs deliver it; either or both may be empty.
type PurchaseEvent struct {
	TransactionID         string    `json:"transaction_id"`
	OriginalTransactionID string    `json:"original_transaction_id,omitempty"`
	ProductID             string    `json:"product_id"`
	Receipt               string    `json:"receipt,omitempty"`
	SignedTransaction     string    `json:"signed_transaction,omitempty"`
	Acknowledged          bool      `json:"acknowledged"`
	PurchasedAt           time.Time `json:"purchased_at"`
	Platform              string    `json:"platform,omitempty"`
	Environment           string    `json:"environment,omitempty"`
}

// Product is a consumable credit pack offered by the store.
type Product struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Credits  int64  `json:"credits"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// AnalysisType tells the caller which resource an analysis would consume.
type AnalysisType string

const (
	AnalysisFree   AnalysisType = "free"
	AnalysisCredit AnalysisType = "credit"
	AnalysisNone   AnalysisType = "none"
)

// AnalysisAvailability answers "may the user run one more analysis".
type AnalysisAvailability struct {
	CanUse      bool         `json:"can_use"`
	Type        AnalysisType `json:"type"`
	CreditsLeft int64        `json:"credits_left"`
}
