// Package encorefx provides an fx module wiring the two standard cache
// namespaces: a compressed byte cache for raw upstream payloads and a plain
// cache for derived query results.
package encorefx

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/phansite/encore"
	"github.com/phansite/encore/codec/zstdcodec"
	"github.com/phansite/encore/internal/stats"
	"github.com/phansite/encore/internal/stats/logger"
)

// Config holds configuration for the provided caches.
type Config struct {
	// FetchCapacity bounds the raw-payload cache. Default is 50.
	FetchCapacity int

	// QueryCapacity bounds the derived-result cache. Default is 200.
	QueryCapacity int

	// SlowAfter enables slow-operation warnings past this threshold.
	// Zero disables them.
	SlowAfter time.Duration
}

// Module provides the cache namespaces.
// Requires a *zap.Logger and a Config to be provided.
var Module = fx.Module("encore",
	fx.Provide(
		newStatsCollector,
		newCaches,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("encore.stats"))
}

// Params holds dependencies for creating the caches.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided caches.
type Result struct {
	fx.Out

	// Fetch caches raw upstream payloads, zstd-compressed.
	Fetch *encore.ByteCache

	// Query caches derived computation results.
	Query *encore.Cache[any]
}

func newCaches(p Params) (Result, error) {
	fetchCapacity := p.Config.FetchCapacity
	if fetchCapacity <= 0 {
		fetchCapacity = 50
	}
	queryCapacity := p.Config.QueryCapacity
	if queryCapacity <= 0 {
		queryCapacity = 200
	}

	opts := []encore.Option{
		encore.WithLogger(p.Logger.Named("encore")),
		encore.WithCollector(p.Collector),
	}
	if p.Config.SlowAfter > 0 {
		opts = append(opts, encore.WithSlowWarn(p.Config.SlowAfter))
	}

	fetchInner, err := encore.New[[]byte](fetchCapacity, opts...)
	if err != nil {
		return Result{}, err
	}
	zc, err := zstdcodec.New()
	if err != nil {
		return Result{}, err
	}
	fetch := encore.NewByteCache(fetchInner, zc)

	query, err := encore.New[any](queryCapacity, opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			fetch.Clear()
			query.Clear()
			return nil
		},
	})

	return Result{
		Fetch: fetch,
		Query: query,
	}, nil
}
