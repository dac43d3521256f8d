package intake

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// Config holds consumer settings. Intake is disabled without brokers.
type Config struct {
	Brokers      []string      `env:"NOTIFY_KAFKA_BROKERS" envSeparator:","`
	Topic        string        `env:"NOTIFY_KAFKA_TOPIC" envDefault:"notifications.requests"`
	GroupID      string        `env:"NOTIFY_KAFKA_GROUP_ID" envDefault:"notifier"`
	MinBytes     int           `env:"NOTIFY_KAFKA_MIN_BYTES" envDefault:"1"`
	MaxBytes     int           `env:"NOTIFY_KAFKA_MAX_BYTES" envDefault:"10485760"`
	MaxWait      time.Duration `env:"NOTIFY_KAFKA_MAX_WAIT" envDefault:"1s"`
	RetryBackoff time.Duration `env:"NOTIFY_KAFKA_RETRY_BACKOFF" envDefault:"1s"`
	MaxBackoff   time.Duration `env:"NOTIFY_KAFKA_MAX_BACKOFF" envDefault:"30s"`
}

// Enabled reports whether brokers are configured.
func (c Config) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewReader creates a consumer group reader for cfg. Offsets are committed
// explicitly by the Consumer.
func NewReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
		MaxWait:  cfg.MaxWait,
	})
}
