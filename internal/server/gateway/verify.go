package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/creditkeeper/internal/client/receipt"
	"github.com/dmitrijs2005/creditkeeper/internal/metrics"
	"github.com/dmitrijs2005/creditkeeper/internal/server/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type verifyRequest struct {
	ReceiptData string `json:"receipt-data"`
	Password    string `json:"password"`
}

type inApp struct {
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	ProductID             string `json:"product_id"`
	PurchaseDateMS        string `json:"purchase_date_ms"`
	Quantity              string `json:"quantity"`
}

type verifyResponse struct {
	Status      int    `json:"status"`
	Environment string `json:"environment,omitempty"`
	Receipt     *struct {
		InApp []inApp `json:"in_app"`
	} `json:"receipt,omitempty"`
	LatestReceiptInfo []inApp `json:"latest_receipt_info,omitempty"`
}

// Verifier answers receipt verification requests for receipts issued by a
// Store, imitating the production and sandbox verification endpoints.
type Verifier struct {
	store        *Store
	sharedSecret string
	metrics      *metrics.Metrics
}

func NewVerifier(store *Store, sharedSecret string, m *metrics.Metrics) *Verifier {
	return &Verifier{store: store, sharedSecret: sharedSecret, metrics: m}
}

// Handler mounts /verifyReceipt, /sandbox/verifyReceipt, /healthz and, when
// reg is not nil, /metrics.
func (v *Verifier) Handler(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/verifyReceipt", v.verify(envProduction))
	r.Post("/sandbox/verifyReceipt", v.verify(envSandbox))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}
	return r
}

const (
	envProduction = "Production"
	envSandbox    = "Sandbox"
)

func (v *Verifier) verify(endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			v.respond(w, verifyResponse{Status: receipt.StatusMalformed})
			return
		}

		if v.sharedSecret != "" && req.Password != v.sharedSecret {
			v.respond(w, verifyResponse{Status: receipt.StatusSecretMismatch})
			return
		}

		txs, ok := v.store.receiptTransactions(req.ReceiptData)
		if !ok {
			v.respond(w, verifyResponse{Status: receipt.StatusMalformed})
			return
		}

		issuedIn := envProduction
		if v.store.opts.Environment != config.EnvironmentProduction {
			issuedIn = envSandbox
		}
		switch {
		case issuedIn == envSandbox && endpoint == envProduction:
			v.respond(w, verifyResponse{Status: receipt.StatusSandboxReceiptOnProduction})
			return
		case issuedIn == envProduction && endpoint == envSandbox:
			v.respond(w, verifyResponse{Status: receipt.StatusProductionReceiptOnSandbox})
			return
		}

		list := make([]inApp, 0, len(txs))
		for _, ev := range txs {
			list = append(list, inApp{
				TransactionID:         ev.TransactionID,
				OriginalTransactionID: ev.TransactionID,
				ProductID:             ev.ProductID,
				PurchaseDateMS:        strconv.FormatInt(ev.PurchasedAt.UnixMilli(), 10),
				Quantity:              "1",
			})
		}
		resp := verifyResponse{Status: receipt.StatusOK, Environment: issuedIn, LatestReceiptInfo: list}
		resp.Receipt = &struct {
			InApp []inApp `json:"in_app"`
		}{InApp: list}
		v.respond(w, resp)
	}
}

func (v *Verifier) respond(w http.ResponseWriter, resp verifyResponse) {
	result := "ok"
	if resp.Status != receipt.StatusOK {
		result = strconv.Itoa(resp.Status)
	}
	v.metrics.ObserveGatewayCall("VerifyReceipt", result)
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
