// Package mysqlplug provides the MySQL store plugin backed by database/sql
// and the go-sql-driver. The opened pool is published as a named dependency
// for peer plugins.
package mysqlplug

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugin"
	"github.com/lynxplug/runtime/plugins/metricsplug"
)

const (
	pluginName        = "mysql.store"
	pluginVersion     = "v1.0.0"
	pluginDescription = "mysql store plugin"
	confPrefix        = "lynx.mysql"

	// PoolDep is the dependency name the opened *sql.DB is published under.
	PoolDep = "mysql.db"
)

// Conf mirrors the lynx.mysql configuration block.
type Conf struct {
	DSN             string `json:"dsn"`
	MaxOpenConns    int    `json:"max_open_conns"`
	MaxIdleConns    int    `json:"max_idle_conns"`
	ConnMaxLifetime int    `json:"conn_max_lifetime_seconds"`
	// Migrations are statements replayed by the store.migrate event.
	Migrations []string `json:"migrations"`
}

func defaultConf() *Conf {
	return &Conf{
		DSN:             "root@tcp(localhost:3306)/lynx?parseTime=true",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 300,
	}
}

// StorePlugin manages one MySQL connection pool.
type StorePlugin struct {
	plugin.Base
	conf *Conf
	db   *sql.DB

	queriesTotal *prometheus.CounterVec
	poolOpen     prometheus.Gauge
}

// Option customizes the plugin at construction.
type Option func(*StorePlugin)

// WithConfig scans the lynx.mysql configuration block over the defaults.
func WithConfig(v config.Value) Option {
	return func(p *StorePlugin) {
		if err := v.Scan(p.conf); err != nil {
			panic(fmt.Errorf("mysqlplug: scanning %s config: %w", confPrefix, err))
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
	db, err := sql.Open("mysql", p.conf.DSN)
	if err != nil {
		return fmt.Errorf("mysqlplug: opening pool: %w", err)
	}
	db.SetMaxOpenConns(p.conf.MaxOpenConns)
	db.SetMaxIdleConns(p.conf.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(p.conf.ConnMaxLifetime) * time.Second)
	p.db = db

	p.queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lynx_mysql_queries_total",
			Help: "Total number of MySQL statements executed",
		},
		[]string{"kind", "status"},
	)
	p.poolOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lynx_mysql_connections_open",
		Help: "Number of open MySQL connections",
	})
	reg.MustRegister(p.queriesTotal, p.poolOpen)
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

// migrate replays the configured migration statements.
func (p *StorePlugin) migrate() error {
	if p.db == nil {
		return fmt.Errorf("mysqlplug: pool not started")
	}
	ctx := context.Background()
	for _, stmt := range p.conf.Migrations {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			p.queriesTotal.WithLabelValues("migrate", "error").Inc()
			return fmt.Errorf("mysqlplug: migration %q: %w", stmt, err)
		}
		p.queriesTotal.WithLabelValues("migrate", "success").Inc()
	}
	p.poolOpen.Set(float64(p.db.Stats().OpenConnections))
	return nil
}
