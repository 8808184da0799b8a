package resolver

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytmproxy/internal/cache"
	"github.com/desertthunder/ytmproxy/internal/extract"
	"github.com/desertthunder/ytmproxy/internal/shared"
)

// StrategiesFromConfig builds the configured strategies in their configured order.
func StrategiesFromConfig(cfg *shared.Config, logger *log.Logger) ([]extract.Strategy, error) {
	strategies := make([]extract.Strategy, 0, len(cfg.Resolver.Strategies))
	for _, name := range cfg.Resolver.Strategies {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "ytdlp":
			strategies = append(strategies, extract.NewYtdlpStrategy(cfg.Ytdlp, nil, logger))
		case "library":
			strategies = append(strategies, extract.NewLibraryStrategy(cfg.Library, logger))
		case "mirrors":
			strategies = append(strategies, extract.NewMirrorStrategy(cfg.Mirrors, logger))
		default:
			return nil, fmt.Errorf("%w: unknown strategy %q", shared.ErrInvalidConfig, name)
		}
	}
	return strategies, nil
}

// NewFromConfig wires a [Pipeline] with the cache and strategies described by cfg.
func NewFromConfig(cfg *shared.Config, logger *log.Logger, opts ...Option) (*Pipeline, error) {
	strategies, err := StrategiesFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	c := cache.New(cfg.Resolver.CacheTTL.Duration, cache.WithCapacity(cfg.Resolver.CacheCapacity))
	if cfg.Resolver.Coalesce {
		opts = append([]Option{WithCoalescing()}, opts...)
	}

	return New(c, strategies, logger, opts...), nil
}
