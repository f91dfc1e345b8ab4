package config

import (
	"fmt"
	"path/filepath"

	"github.com/edgard/attendancebot/internal/errs"
)

// Variant names a deployment context.
type Variant string

const (
	VariantLocal Variant = "local"
	VariantDev   Variant = "dev"
	VariantProd  Variant = "prod"
)

// DBFileName is the SQLite file name inside the volume.
const DBFileName = "bot.db"

// RuntimeContext describes where the process keeps its mutable state. It is
// resolved once at startup and never changes afterwards.
type RuntimeContext struct {
	Variant    Variant
	VolumePath string
	DBPath     string
}

func (rc RuntimeContext) String() string {
	return fmt.Sprintf("%s (volume=%s, db=%s)", rc.Variant, rc.VolumePath, rc.DBPath)
}

// Variants lists every supported selector.
func Variants() []Variant {
	return []Variant{VariantLocal, VariantDev, VariantProd}
}

// Resolve maps the configured context selector to a RuntimeContext. It reads
// nothing but cfg, so the same configuration always yields the same context.
func Resolve(cfg *Config) (RuntimeContext, error) {
	if cfg == nil {
		return RuntimeContext{}, errs.NewConfigurationError("configuration is nil", nil)
	}

	var rc RuntimeContext
	switch Variant(cfg.Context) {
	case VariantLocal:
		rc = RuntimeContext{Variant: VariantLocal, VolumePath: "./data", DBPath: "./data/" + DBFileName}
	case VariantDev:
		rc = RuntimeContext{Variant: VariantDev, VolumePath: "./data-dev", DBPath: "./data-dev/" + DBFileName}
	case VariantProd:
		if cfg.VolumePath == "" {
			return RuntimeContext{}, errs.NewConfigurationError("volume_path is required for the prod context", nil)
		}
		if !filepath.IsAbs(cfg.VolumePath) {
			return RuntimeContext{}, errs.NewConfigurationError(
				fmt.Sprintf("volume_path %q must be absolute for the prod context", cfg.VolumePath), nil)
		}
		volume := filepath.Clean(cfg.VolumePath)
		rc = RuntimeContext{Variant: VariantProd, VolumePath: volume, DBPath: filepath.Join(volume, DBFileName)}
	default:
		return RuntimeContext{}, errs.NewConfigurationError(fmt.Sprintf("unknown context %q", cfg.Context), nil)
	}

	return rc, nil
}
