package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPAddr string `envconfig:"E2E_HTTP_ADDR"`
	GRPCAddr string `envconfig:"E2E_GRPC_ADDR"`
	// Shared with the server, the suite mints its own tokens
	JWTSecret string `envconfig:"E2E_JWT_SECRET"`
	JWTIssuer string `envconfig:"E2E_JWT_ISSUER" default:"fasolink"`
	// E2E_DEBUG_JSON dumps every gRPC request and response as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
