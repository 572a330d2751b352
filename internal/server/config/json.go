package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/creditkeeper/internal/flagx"
)

// JsonConfig is the JSON shape of Config. Empty strings and a nil
// cancel_every keep the earlier value.
type JsonConfig struct {
	EndpointAddrGRPC   string `json:"endpoint_addr_grpc"`
	HTTPAddr           string `json:"http_addr"`
	SigningKey         string `json:"signing_key"`
	Environment        string `json:"environment"`
	SharedSecret       string `json:"shared_secret"`
	CancelEvery        *int   `json:"cancel_every"`
	ProductCatalogFile string `json:"product_catalog_file"`
	LogLevel           string `json:"log_level"`
	LogFormat          string `json:"log_format"`
}

// parseJson loads configuration values from the JSON file named by -c or
// -config into config. If the file cannot be read or contains invalid JSON,
// the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	for dst, v := range map[*string]string{
		&config.EndpointAddrGRPC:   c.EndpointAddrGRPC,
		&config.HTTPAddr:           c.HTTPAddr,
		&config.SigningKey:         c.SigningKey,
		&config.Environment:        c.Environment,
		&config.SharedSecret:       c.SharedSecret,
		&config.ProductCatalogFile: c.ProductCatalogFile,
		&config.LogLevel:           c.LogLevel,
		&config.LogFormat:          c.LogFormat,
	} {
		if v != "" {
			*dst = v
		}
	}
	if c.CancelEvery != nil {
		config.CancelEvery = *c.CancelEvery
	}
}
