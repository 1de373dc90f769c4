// Package pgplug provides the PostgreSQL store plugin backed by
// database/sql and lib/pq.
package pgplug

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugin"
	"github.com/lynxplug/runtime/plugins/metricsplug"
)

const (
	pluginName        = "pgsql.store"
	pluginVersion     = "v1.0.0"
	pluginDescription = "postgresql store plugin"
	confPrefix        = "lynx.pgsql"

	// PoolDep is the dependency name the opened *sql.DB is published under.
	PoolDep = "pgsql.db"
)

// Conf mirrors the lynx.pgsql configuration block.
type Conf struct {
	DSN             string   `json:"dsn"`
	MaxOpenConns    int      `json:"max_open_conns"`
	MaxIdleConns    int      `json:"max_idle_conns"`
	ConnMaxIdleTime int      `json:"conn_max_idle_time_seconds"`
	Migrations      []string `json:"migrations"`
}

func defaultConf() *Conf {
	return &Conf{
		DSN:             "postgres://postgres@localhost:5432/lynx?sslmode=disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 300,
	}
}

// StorePlugin manages one PostgreSQL connection pool.
type StorePlugin struct {
	plugin.Base
	conf *Conf
	db   *sql.DB

	queriesTotal *prometheus.CounterVec
}

// Option customizes the plugin at construction.
type Option func(*StorePlugin)

// WithConfig scans the lynx.pgsql configuration block over the defaults.
func WithConfig(v config.Value) Option {
	return func(p *StorePlugin) {
		if err := v.Scan(p.conf); err != nil {
			panic(fmt.Errorf("pgplug: scanning %s config: %w", confPrefix, err))
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

// DB returns the opened pool, nil before initialization.
func (p *StorePlugin) DB() *sql.DB { return p.db }

// Handlers declares the plugin's lifecycle and event handlers.
func (p *StorePlugin) Handlers() []handler.Descriptor {
	return []handler.Descriptor{
		handler.Init(p.start, metricsplug.RegistryDep),
		handler.Destroy(p.stop),
		handler.Event("store.migrate", p.migrate),
	}
}

func (p *StorePlugin) start(reg *prometheus.Registry) error {
	db, err := sql.Open("postgres", p.conf.DSN)
	if err != nil {
		return fmt.Errorf("pgplug: opening pool: %w", err)
	}
	db.SetMaxOpenConns(p.conf.MaxOpenConns)
	db.SetMaxIdleConns(p.conf.MaxIdleConns)
	db.SetConnMaxIdleTime(time.Duration(p.conf.ConnMaxIdleTime) * time.Second)
	p.db = db

	p.queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lynx_pgsql_queries_total",
			Help: "Total number of PostgreSQL statements executed",
		},
		[]string{"kind", "status"},
	)
	reg.MustRegister(p.queriesTotal)
	return p.RegisterNamed(PoolDep, p.db)
}

func (p *StorePlugin) stop() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

func (p *StorePlugin) migrate() error {
	if p.db == nil {
		return fmt.Errorf("pgplug: pool not started")
	}
	ctx := context.Background()
	for _, stmt := range p.conf.Migrations {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			p.queriesTotal.WithLabelValues("migrate", "error").Inc()
			return fmt.Errorf("pgplug: migration %q: %w", stmt, err)
		}
		p.queriesTotal.WithLabelValues("migrate", "success").Inc()
	}
	return nil
}
