package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/errs"
)

func TestResolveAllVariants(t *testing.T) {
	t.Parallel()

	for _, variant := range config.Variants() {
		t.Run(string(variant), func(t *testing.T) {
			t.Parallel()

			cfg := &config.Config{Context: string(variant), VolumePath: config.DefaultVolumePath}
			rc, err := config.Resolve(cfg)
			require.NoError(t, err)

			assert.Equal(t, variant, rc.Variant)
			assert.NotEmpty(t, rc.VolumePath)
			assert.NotEmpty(t, rc.DBPath)
			assert.NotEqual(t, rc.VolumePath, rc.DBPath)

			again, err := config.Resolve(cfg)
			require.NoError(t, err)
			assert.Equal(t, rc, again)
		})
	}
}

func TestResolveLocal(t *testing.T) {
	t.Parallel()

	rc, err := config.Resolve(&config.Config{Context: "local"})
	require.NoError(t, err)
	assert.Equal(t, config.RuntimeContext{Variant: config.VariantLocal, VolumePath: "./data", DBPath: "./data/bot.db"}, rc)
}

func TestResolveProd(t *testing.T) {
	t.Parallel()

	rc, err := config.Resolve(&config.Config{Context: "prod", VolumePath: "/srv/bot/"})
	require.NoError(t, err)
	assert.Equal(t, "/srv/bot", rc.VolumePath)
	assert.Equal(t, "/srv/bot/bot.db", rc.DBPath)
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"nil config", nil},
		{"empty selector", &config.Config{}},
		{"unknown selector", &config.Config{Context: "staging"}},
		{"prod without volume", &config.Config{Context: "prod"}},
		{"prod with relative volume", &config.Config{Context: "prod", VolumePath: "data"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Resolve(tt.cfg)
			var cfgErr *errs.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
