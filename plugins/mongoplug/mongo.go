// Package mongoplug provides the MongoDB store plugin backed by the
// official mongo-driver.
package mongoplug

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugin"
	"github.com/lynxplug/runtime/plugins/metricsplug"
)

const (
	pluginName        = "mongodb.store"
	pluginVersion     = "v1.0.0"
	pluginDescription = "mongodb store plugin"
	confPrefix        = "lynx.mongodb"

	// ClientDep is the dependency name the connected client is published
	// under.
	ClientDep = "mongodb.client"
)

// Conf mirrors the lynx.mongodb configuration block.
type Conf struct {
	URI            string `json:"uri"`
	Database       string `json:"database"`
	MaxPoolSize    uint64 `json:"max_pool_size"`
	ConnectTimeout int    `json:"connect_timeout_seconds"`
}

func defaultConf() *Conf {
	return &Conf{
		URI:            "mongodb://localhost:27017",
		Database:       "lynx",
		MaxPoolSize:    20,
		ConnectTimeout: 10,
	}
}

// StorePlugin manages one MongoDB client.
type StorePlugin struct {
	plugin.Base
	conf   *Conf
	client *mongo.Client

	opsTotal *prometheus.CounterVec
}

// Option customizes the plugin at construction.
type Option func(*StorePlugin)

// WithConfig scans the lynx.mongodb configuration block over the defaults.
func WithConfig(v config.Value) Option {
	return func(p *StorePlugin) {
		if err := v.Scan(p.conf); err != nil {
			panic(fmt.Errorf("mongoplug: scanning %s config: %w", confPrefix, err))
		}
	}
}

// WithConf replaces the configuration wholesale.
func WithConf(c *Conf) Option {
	return func(p *StorePlugin) { p.conf = c }
}

// NewStorePlugin builds the plugin with defaults overlaid by opts.
func NewStorePlugin(opts ...Option) *StorePlugin {
	p := &StorePlugin{conf: defaultConf()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the plugin's registered name.
func (p *StorePlugin) Name() string { return pluginName }

// Client returns the connected client, nil before initialization.
func (p *StorePlugin) Client() *mongo.Client { return p.client }

// Database returns the configured database handle, nil before
// initialization.
func (p *StorePlugin) Database() *mongo.Database {
	if p.client == nil {
		return nil
	}
	return p.client.Database(p.conf.Database)
}

// Handlers declares the plugin's lifecycle and event handlers.
func (p *StorePlugin) Handlers() []handler.Descriptor {
	return []handler.Descriptor{
		handler.Init(p.start, metricsplug.RegistryDep),
		handler.Destroy(p.stop),
		handler.Event("store.migrate", p.ping),
	}
}

func (p *StorePlugin) start(reg *prometheus.Registry) error {
	ctx, cancel := p.timeoutCtx()
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(p.conf.URI).
		SetMaxPoolSize(p.conf.MaxPoolSize))
	if err != nil {
		return fmt.Errorf("mongoplug: connecting: %w", err)
	}
	p.client = client

	p.opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lynx_mongodb_operations_total",
			Help: "Total number of MongoDB operations",
		},
		[]string{"operation", "status"},
	)
	reg.MustRegister(p.opsTotal)
	return p.RegisterNamed(ClientDep, p.client)
}

func (p *StorePlugin) stop() error {
	if p.client == nil {
		return nil
	}
	ctx, cancel := p.timeoutCtx()
	defer cancel()
	err := p.client.Disconnect(ctx)
	p.client = nil
	return err
}

// ping verifies the primary is reachable.
func (p *StorePlugin) ping() error {
	if p.client == nil {
		return fmt.Errorf("mongoplug: client not started")
	}
	ctx, cancel := p.timeoutCtx()
	defer cancel()
	if err := p.client.Ping(ctx, readpref.Primary()); err != nil {
		p.opsTotal.WithLabelValues("ping", "error").Inc()
		return err
	}
	p.opsTotal.WithLabelValues("ping", "success").Inc()
	return nil
}

func (p *StorePlugin) timeoutCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(),
		time.Duration(p.conf.ConnectTimeout)*time.Second)
}
