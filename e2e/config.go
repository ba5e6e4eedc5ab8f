package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BufferSize           int           `envconfig:"E2E_BUFFER_SIZE" default:"64"`
	ConnectionBufferSize int           `envconfig:"E2E_CONNECTION_BUFFER_SIZE" default:"32"`
	SinkTimeout          time.Duration `envconfig:"E2E_SINK_TIMEOUT" default:"100ms"`
	// E2E_READ_TIMEOUT bounds how long a scenario waits for one frame
	ReadTimeout time.Duration `envconfig:"E2E_READ_TIMEOUT" default:"2s"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
