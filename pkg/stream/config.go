package stream

import "time"

// Config holds stream session settings.
type Config struct {
	HeartbeatInterval time.Duration `env:"STREAM_HEARTBEAT_INTERVAL" envDefault:"30s"`
	BufferSize        int           `env:"STREAM_BUFFER_SIZE" envDefault:"32"`
	AckMessage        string        `env:"STREAM_ACK_MESSAGE" envDefault:"Connected to notification stream"`
	TokenQueryParam   string        `env:"STREAM_TOKEN_QUERY_PARAM" envDefault:"token"`
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 32
	}
	if c.AckMessage == "" {
		c.AckMessage = "Connected to notification stream"
	}
	if c.TokenQueryParam == "" {
		c.TokenQueryParam = "token"
	}
	return c
}
