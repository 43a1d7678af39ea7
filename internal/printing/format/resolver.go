package format

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrFormatNotFound is returned by a Source when a format record is missing.
var ErrFormatNotFound = errors.New("format: record not found")

// Source provides the two stored tiers.
type Source interface {
	FormatRecord(ctx context.Context, id int64) (Layer, error)
	GlobalSettings(ctx context.Context) (Layer, error)
}

// Resolver merges format record, global settings and defaults.
type Resolver struct {
	source   Source
	defaults Layer
	logger   *slog.Logger
}

// NewResolver builds a resolver. A nil source resolves to defaults only.
func NewResolver(source Source, defaults Layer, logger *slog.Logger) *Resolver {
	if defaults == nil {
		defaults = Defaults()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{source: source, defaults: defaults, logger: logger}
}

// LoadDefaults returns the embedded defaults overlaid with the YAML file at
// path, if any.
func LoadDefaults(path string) (Layer, error) {
	base := Defaults()
	if strings.TrimSpace(path) == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("format: read defaults: %w", err)
	}
	override, err := ParseLayer(raw)
	if err != nil {
		return nil, err
	}
	return Merge(base, override), nil
}

// Resolve returns the effective config for formatID (0 = no record). overrides
// is applied last and carries per-request values such as the title.
func (r *Resolver) Resolve(ctx context.Context, formatID int64, overrides Layer) Config {
	layers := []Layer{r.defaults}
	if r.source != nil {
		global, err := r.source.GlobalSettings(ctx)
		if err != nil {
			r.logger.Warn("format global settings unavailable", slog.Any("error", err))
		} else {
			layers = append(layers, global)
		}
		if formatID > 0 {
			record, err := r.source.FormatRecord(ctx, formatID)
			switch {
			case errors.Is(err, ErrFormatNotFound):
				r.logger.Debug("format record missing", slog.Int64("format_id", formatID))
			case err != nil:
				r.logger.Warn("format record unavailable", slog.Int64("format_id", formatID), slog.Any("error", err))
			default:
				layers = append(layers, record)
			}
		}
	}
	layers = append(layers, overrides)
	return Build(Merge(layers...))
}
