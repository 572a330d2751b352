package config

import "time"

// Config holds runtime settings for the CreditKeeper CLI.
type Config struct {
	DatabaseDriver string
	DatabaseDSN    string

	StoreMode         string
	StoreEndpointAddr string
	DemoFallback      bool

	ValidationEnabled   bool
	ProductionVerifyURL string
	SandboxVerifyURL    string
	SharedSecret        string
	TrustedFallback     bool
	ValidationTimeout   time.Duration
	ValidationRetries   int
	SignedTxKey         string

	PollInterval          time.Duration
	PollBudget            time.Duration
	ManualReconcileWindow time.Duration

	HistoryLimit       int
	PurchaseLimit      int
	ProcessedRetention time.Duration

	ProductCatalogFile string
	MetricsAddr        string

	ExportDir      string
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string

	LogLevel  string
	LogFormat string
}

const (
	StoreModeGRPC = "grpc"
	StoreModeMock = "mock"
)

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "credits.db"

	c.StoreMode = StoreModeGRPC
	c.StoreEndpointAddr = "127.0.0.1:50061"
	c.DemoFallback = true

	c.ValidationEnabled = true
	c.ProductionVerifyURL = "https://buy.itunes.apple.com/verifyReceipt"
	c.SandboxVerifyURL = "https://sandbox.itunes.apple.com/verifyReceipt"
	c.TrustedFallback = true
	c.ValidationTimeout = 10 * time.Second
	c.ValidationRetries = 2

	c.PollInterval = 500 * time.Millisecond
	c.PollBudget = 5 * time.Second
	c.ManualReconcileWindow = 24 * time.Hour

	c.HistoryLimit = 100
	c.PurchaseLimit = 50
	c.ProcessedRetention = 30 * 24 * time.Hour

	c.S3Region = "us-east-1"
	c.S3Prefix = "exports"

	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
