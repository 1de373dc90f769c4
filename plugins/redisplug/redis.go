// Package redisplug provides the Redis cache plugin. Its init handler opens
// the client, attaches operation collectors to the shared metrics registry,
// and publishes the client as a named dependency for peer plugins.
package redisplug

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugin"
	"github.com/lynxplug/runtime/plugins/metricsplug"
)

const (
	pluginName        = "redis.client"
	pluginVersion     = "v1.0.0"
	pluginDescription = "redis cache plugin"
	confPrefix        = "lynx.redis"

	// ClientDep is the dependency name the opened client is published
	// under.
	ClientDep = "redis.client"
)

// Conf mirrors the lynx.redis configuration block.
type Conf struct {
	Addr         string               `json:"addr"`
	Password     string               `json:"password"`
	DB           int                  `json:"db"`
	PoolSize     int                  `json:"pool_size"`
	MinIdleConns int                  `json:"min_idle_conns"`
	DialTimeout  *durationpb.Duration `json:"dial_timeout"`
	ReadTimeout  *durationpb.Duration `json:"read_timeout"`
	WriteTimeout *durationpb.Duration `json:"write_timeout"`
}

func defaultConf() *Conf {
	return &Conf{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  durationpb.New(0),
		ReadTimeout:  durationpb.New(0),
		WriteTimeout: durationpb.New(0),
	}
}

// CachePlugin manages one Redis client.
type CachePlugin struct {
	plugin.Base
	conf *Conf
	rdb  *redis.Client

	opsTotal    *prometheus.CounterVec
	connsActive prometheus.Gauge
}

// Option customizes the plugin at construction.
type Option func(*CachePlugin)

// WithConfig scans the lynx.redis configuration block over the defaults.
func WithConfig(v config.Value) Option {
	return func(p *CachePlugin) {
		if err := v.Scan(p.conf); err != nil {
			panic(fmt.Errorf("redisplug: scanning %s config: %w", confPrefix, err))
		}
	}
}

// WithConf replaces the configuration wholesale.
func WithConf(c *Conf) Option {
	return func(p *CachePlugin) { p.conf = c }
}

// NewCachePlugin builds the plugin with defaults overlaid by opts.
func NewCachePlugin(opts ...Option) *CachePlugin {
	p := &CachePlugin{conf: defaultConf()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the plugin's registered name.
func (p *CachePlugin) Name() string { return pluginName }

// Client returns the opened client, nil before initialization.
func (p *CachePlugin) Client() *redis.Client { return p.rdb }

// Handlers declares the plugin's lifecycle and event handlers.
func (p *CachePlugin) Handlers() []handler.Descriptor {
	return []handler.Descriptor{
		handler.Init(p.start, metricsplug.RegistryDep),
		handler.Destroy(p.stop),
		handler.Event("cache.warm", p.warm),
	}
}

// start opens the client once the shared metrics registry is available.
func (p *CachePlugin) start(reg *prometheus.Registry) error {
	p.rdb = redis.NewClient(&redis.Options{
		Addr:         p.conf.Addr,
		Password:     p.conf.Password,
		DB:           p.conf.DB,
		PoolSize:     p.conf.PoolSize,
		MinIdleConns: p.conf.MinIdleConns,
		DialTimeout:  p.conf.DialTimeout.AsDuration(),
		ReadTimeout:  p.conf.ReadTimeout.AsDuration(),
		WriteTimeout: p.conf.WriteTimeout.AsDuration(),
	})
	p.opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lynx_redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)
	p.connsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lynx_redis_connections_active",
		Help: "Number of active Redis connections",
	})
	reg.MustRegister(p.opsTotal, p.connsActive)
	return p.RegisterNamed(ClientDep, p.rdb)
}

func (p *CachePlugin) stop() error {
	if p.rdb == nil {
		return nil
	}
	err := p.rdb.Close()
	p.rdb = nil
	return err
}

// warm pings the server and snapshots the pool gauge.
func (p *CachePlugin) warm() error {
	if p.rdb == nil {
		return fmt.Errorf("redisplug: client not started")
	}
	ctx := context.Background()
	if d := p.conf.DialTimeout.AsDuration(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	err := p.rdb.Ping(ctx).Err()
	if err != nil {
		p.opsTotal.WithLabelValues("ping", "error").Inc()
		return err
	}
	p.opsTotal.WithLabelValues("ping", "success").Inc()
	p.connsActive.Set(float64(p.rdb.PoolStats().TotalConns))
	return nil
}
