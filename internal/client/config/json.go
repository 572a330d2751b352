package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/flagx"
	"github.com/dmitrijs2005/creditkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// use timex.Duration ("3s" or integer nanoseconds); booleans are pointers
// so an absent key keeps the earlier value.
type JsonConfig struct {
	DatabaseDriver string `json:"database_driver"`
	DatabaseDSN    string `json:"database_dsn"`

	StoreMode         string `json:"store_mode"`
	StoreEndpointAddr string `json:"store_endpoint_addr"`
	DemoFallback      *bool  `json:"demo_fallback"`

	ValidationEnabled   *bool          `json:"validation_enabled"`
	ProductionVerifyURL string         `json:"production_verify_url"`
	SandboxVerifyURL    string         `json:"sandbox_verify_url"`
	SharedSecret        string         `json:"shared_secret"`
	TrustedFallback     *bool          `json:"trusted_fallback"`
	ValidationTimeout   timex.Duration `json:"validation_timeout"`
	ValidationRetries   *int           `json:"validation_retries"`
	SignedTxKey         string         `json:"signed_transaction_key"`

	PollInterval          timex.Duration `json:"poll_interval"`
	PollBudget            timex.Duration `json:"poll_budget"`
	ManualReconcileWindow timex.Duration `json:"manual_reconcile_window"`

	HistoryLimit       int            `json:"history_limit"`
	PurchaseLimit      int            `json:"purchase_limit"`
	ProcessedRetention timex.Duration `json:"processed_retention"`

	ProductCatalogFile string `json:"product_catalog_file"`
	MetricsAddr        string `json:"metrics_addr"`

	ExportDir      string `json:"export_dir"`
	S3Bucket       string `json:"s3_bucket"`
	S3Prefix       string `json:"s3_prefix"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

// parseJson overlays cfg with the JSON file named by -c or -config. Keys
// that are absent keep their current value. Read or decode errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.DatabaseDriver, jc.DatabaseDriver)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.StoreMode, jc.StoreMode)
	setString(&cfg.StoreEndpointAddr, jc.StoreEndpointAddr)
	if jc.DemoFallback != nil {
		cfg.DemoFallback = *jc.DemoFallback
	}

	if jc.ValidationEnabled != nil {
		cfg.ValidationEnabled = *jc.ValidationEnabled
	}
	setString(&cfg.ProductionVerifyURL, jc.ProductionVerifyURL)
	setString(&cfg.SandboxVerifyURL, jc.SandboxVerifyURL)
	setString(&cfg.SharedSecret, jc.SharedSecret)
	if jc.TrustedFallback != nil {
		cfg.TrustedFallback = *jc.TrustedFallback
	}
	setDuration(&cfg.ValidationTimeout, jc.ValidationTimeout)
	if jc.ValidationRetries != nil {
		cfg.ValidationRetries = *jc.ValidationRetries
	}
	setString(&cfg.SignedTxKey, jc.SignedTxKey)

	setDuration(&cfg.PollInterval, jc.PollInterval)
	setDuration(&cfg.PollBudget, jc.PollBudget)
	setDuration(&cfg.ManualReconcileWindow, jc.ManualReconcileWindow)

	if jc.HistoryLimit > 0 {
		cfg.HistoryLimit = jc.HistoryLimit
	}
	if jc.PurchaseLimit > 0 {
		cfg.PurchaseLimit = jc.PurchaseLimit
	}
	setDuration(&cfg.ProcessedRetention, jc.ProcessedRetention)

	setString(&cfg.ProductCatalogFile, jc.ProductCatalogFile)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)

	setString(&cfg.ExportDir, jc.ExportDir)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Prefix, jc.S3Prefix)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)

	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
}
