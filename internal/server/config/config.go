// Package config handles configuration for the store simulator,
// including defaults, JSON overlay, and command-line flags.
package config

// Config holds runtime settings for the store simulator.
//
// Fields:
//   - EndpointAddrGRPC: bind address of the StoreGateway gRPC service.
//   - HTTPAddr: bind address of the receipt verification and metrics endpoint.
//   - SigningKey: HMAC key for signed transactions (HS256); empty disables signing.
//   - Environment: "sandbox" or "production"; sandbox receipts sent to the
//     production verification URL answer status 21007.
//   - SharedSecret: password the verification endpoint expects; empty accepts any.
//   - CancelEvery: every n-th purchase is reported as cancelled by the user; 0 disables.
//   - ProductCatalogFile: JSON product list; empty uses the built-in catalog.
type Config struct {
	EndpointAddrGRPC   string
	HTTPAddr           string
	SigningKey         string
	Environment        string
	SharedSecret       string
	CancelEvery        int
	ProductCatalogFile string
	LogLevel           string
	LogFormat          string
}

const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

// LoadDefaults populates Config with development defaults.
// NOTE: the signing key is a test value and must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50061"
	c.HTTPAddr = ":8081"
	c.SigningKey = "devSigningKey"
	c.Environment = EnvironmentSandbox
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
