package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmatch/notifier/pkg/config"
)

type streamSettings struct {
	Heartbeat time.Duration `env:"CFGTEST_HEARTBEAT" envDefault:"30s"`
	Buffer    int           `env:"CFGTEST_BUFFER" envDefault:"16"`
}

type requiredSettings struct {
	Secret string `env:"CFGTEST_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg streamSettings
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 30*time.Second, cfg.Heartbeat)
		assert.Equal(t, 16, cfg.Buffer)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("CFGTEST_HEARTBEAT", "5s")
		t.Setenv("CFGTEST_BUFFER", "64")

		var cfg streamSettings
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 5*time.Second, cfg.Heartbeat)
		assert.Equal(t, 64, cfg.Buffer)
	})

	t.Run("missing required value", func(t *testing.T) {
		var cfg requiredSettings
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *streamSettings
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})
}

func TestLoadWithPrefix(t *testing.T) {
	t.Setenv("APP_CFGTEST_BUFFER", "8")

	var cfg streamSettings
	require.NoError(t, config.LoadWithPrefix(&cfg, "APP_"))
	assert.Equal(t, 8, cfg.Buffer)
}

func TestMustLoad(t *testing.T) {
	assert.Panics(t, func() {
		var cfg requiredSettings
		config.MustLoad(&cfg)
	})
}
