// Package receipt verifies store receipts against the vendor verification
// endpoint and decodes signed (JWS) transactions.
//
// Verification always starts at the production endpoint. A sandbox receipt
// sent to production (21007) is retried once at the sandbox endpoint, and a
// production receipt sent to sandbox (21008) once at production; the
// redirected answer is final. Transport failures are retried with
// exponential backoff and, when they persist, surface as
// common.ErrValidationUnreachable.
package receipt

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
)

const (
	ProductionURL = "https://buy.itunes.apple.com/verifyReceipt"
	SandboxURL    = "https://sandbox.itunes.apple.com/verifyReceipt"
)

// Verification endpoint status codes.
const (
	StatusOK                         = 0
	StatusMalformed                  = 21002
	StatusSecretMismatch             = 21004
	StatusSandboxReceiptOnProduction = 21007
	StatusProductionReceiptOnSandbox = 21008
)

const maxResponseSize = 4 << 20

// InvalidError is returned for a receipt the endpoint rejected.
type InvalidError struct {
	Status int
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("receipt rejected with status %d", e.Status)
}

func (e *InvalidError) Unwrap() error { return common.ErrReceiptInvalid }

// Validator checks a receipt blob.
type Validator interface {
	Validate(ctx context.Context, receipt string) (*models.ValidationResult, error)
}

type Config struct {
	ProductionURL          string
	SandboxURL             string
	SharedSecret           string
	Timeout                time.Duration
	Retries                uint64
	RetryBase              time.Duration
	ExcludeOldTransactions bool
}

type HTTPValidator struct {
	cfg    Config
	client *http.Client
	log    logging.Logger
	group  singleflight.Group

	mu     sync.RWMutex
	secret string
}

func NewHTTPValidator(cfg Config, client *http.Client, log logging.Logger) *HTTPValidator {
	if cfg.ProductionURL == "" {
		cfg.ProductionURL = ProductionURL
	}
	if cfg.SandboxURL == "" {
		cfg.SandboxURL = SandboxURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPValidator{
		cfg:    cfg,
		client: client,
		log:    log.With("module", "receipt"),
		secret: cfg.SharedSecret,
	}
}

// SetSharedSecret replaces the app-specific shared secret sent with every
// verification request.
func (v *HTTPValidator) SetSharedSecret(secret string) {
	v.mu.Lock()
	v.secret = secret
	v.mu.Unlock()
}

func (v *HTTPValidator) sharedSecret() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.secret
}

// Validate verifies receipt. Concurrent calls for the same receipt share one
// round trip.
func (v *HTTPValidator) Validate(ctx context.Context, receipt string) (*models.ValidationResult, error) {
	if strings.TrimSpace(receipt) == "" {
		return nil, &InvalidError{Status: StatusMalformed}
	}

	sum := sha256.Sum256([]byte(receipt))
	key := hex.EncodeToString(sum[:])

	ch := v.group.DoChan(key, func() (any, error) {
		return v.validate(context.WithoutCancel(ctx), receipt)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", common.ErrValidationUnreachable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.ValidationResult), nil
	}
}

func (v *HTTPValidator) validate(ctx context.Context, receipt string) (*models.ValidationResult, error) {
	env := models.EnvironmentProduction
	resp, err := v.post(ctx, v.cfg.ProductionURL, receipt)
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case StatusSandboxReceiptOnProduction:
		v.log.Debug(ctx, "sandbox receipt, retrying at sandbox endpoint")
		env = models.EnvironmentSandbox
		resp, err = v.post(ctx, v.cfg.SandboxURL, receipt)
	case StatusProductionReceiptOnSandbox:
		v.log.Debug(ctx, "production receipt, retrying at production endpoint")
		resp, err = v.post(ctx, v.cfg.ProductionURL, receipt)
	}
	if err != nil {
		return nil, err
	}

	if resp.Status != StatusOK {
		v.log.Warn(ctx, "receipt rejected", "status", resp.Status)
		return nil, &InvalidError{Status: resp.Status}
	}

	if e := parseEnvironment(resp.Environment); e != "" {
		env = e
	}
	return &models.ValidationResult{
		Success:      true,
		Status:       resp.Status,
		Environment:  env,
		Transactions: resp.transactions(),
	}, nil
}

type verifyRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password,omitempty"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions"`
}

type inAppPurchase struct {
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	ProductID             string `json:"product_id"`
	PurchaseDateMS        string `json:"purchase_date_ms"`
	Quantity              string `json:"quantity"`
}

type verifyResponse struct {
	Status      int    `json:"status"`
	Environment string `json:"environment"`
	Receipt     struct {
		InApp []inAppPurchase `json:"in_app"`
	} `json:"receipt"`
	InApp             []inAppPurchase `json:"in_app"`
	LatestReceiptInfo []inAppPurchase `json:"latest_receipt_info"`
}

func (r *verifyResponse) transactions() []models.ReceiptTransaction {
	seen := map[string]bool{}
	var out []models.ReceiptTransaction
	for _, list := range [][]inAppPurchase{r.Receipt.InApp, r.InApp, r.LatestReceiptInfo} {
		for _, p := range list {
			if p.TransactionID == "" || seen[p.TransactionID] {
				continue
			}
			seen[p.TransactionID] = true
			out = append(out, p.toModel())
		}
	}
	return out
}

func (p inAppPurchase) toModel() models.ReceiptTransaction {
	t := models.ReceiptTransaction{
		TransactionID:         p.TransactionID,
		OriginalTransactionID: p.OriginalTransactionID,
		ProductID:             p.ProductID,
		Quantity:              1,
	}
	if ms, err := strconv.ParseInt(p.PurchaseDateMS, 10, 64); err == nil {
		t.PurchasedAt = time.UnixMilli(ms).UTC()
	}
	if q, err := strconv.Atoi(p.Quantity); err == nil && q > 0 {
		t.Quantity = q
	}
	return t
}

func parseEnvironment(s string) models.Environment {
	switch strings.ToLower(s) {
	case "sandbox":
		return models.EnvironmentSandbox
	case "production":
		return models.EnvironmentProduction
	}
	return ""
}

func (v *HTTPValidator) post(ctx context.Context, url, receipt string) (*verifyResponse, error) {
	body, err := json.Marshal(verifyRequest{
		ReceiptData:            receipt,
		Password:               v.sharedSecret(),
		ExcludeOldTransactions: v.cfg.ExcludeOldTransactions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode verification request: %w", err)
	}

	var out *verifyResponse
	backoff := retry.WithMaxRetries(v.cfg.Retries, retry.NewExponential(v.cfg.RetryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := v.client.Do(req)
		if err != nil {
			v.log.Debug(ctx, "verification request failed", "url", url, "error", err)
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("verification endpoint returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("verification endpoint returned %d", resp.StatusCode)
		}

		var r verifyResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&r); err != nil {
			return fmt.Errorf("failed to decode verification response: %w", err)
		}
		out = &r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidationUnreachable, err)
	}
	return out, nil
}
