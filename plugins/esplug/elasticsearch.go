// Package esplug provides the Elasticsearch index plugin backed by the
// official go-elasticsearch client.
package esplug

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugin"
	"github.com/lynxplug/runtime/plugins/metricsplug"
)

const (
	pluginName        = "elasticsearch.index"
	pluginVersion     = "v1.0.0"
	pluginDescription = "elasticsearch index plugin"
	confPrefix        = "lynx.elasticsearch"

	// ClientDep is the dependency name the client is published under.
	ClientDep = "elasticsearch.client"
)

// Conf mirrors the lynx.elasticsearch configuration block.
type Conf struct {
	Addresses []string `json:"addresses"`
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	// Indices are refreshed by the index.refresh event.
	Indices []string `json:"indices"`
}

func defaultConf() *Conf {
	return &Conf{Addresses: []string{"http://localhost:9200"}}
}

// IndexPlugin manages one Elasticsearch client.
type IndexPlugin struct {
	plugin.Base
	conf   *Conf
	client *elasticsearch.Client

	refreshTotal *prometheus.CounterVec
}

// Option customizes the plugin at construction.
type Option func(*IndexPlugin)

// WithConfig scans the lynx.elasticsearch configuration block over the
// defaults.
func WithConfig(v config.Value) Option {
	return func(p *IndexPlugin) {
		if err := v.Scan(p.conf); err != nil {
			panic(fmt.Errorf("esplug: scanning %s config: %w", confPrefix, err))
		}
	}
}

// WithConf replaces the configuration wholesale.
func WithConf(c *Conf) Option {
	return func(p *IndexPlugin) { p.conf = c }
}

// NewIndexPlugin builds the plugin with defaults overlaid by opts.
func NewIndexPlugin(opts ...Option) *IndexPlugin {
	p := &IndexPlugin{conf: defaultConf()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the plugin's registered name.
func (p *IndexPlugin) Name() string { return pluginName }

// Client returns the client, nil before initialization.
func (p *IndexPlugin) Client() *elasticsearch.Client { return p.client }

// Handlers declares the plugin's lifecycle and event handlers.
func (p *IndexPlugin) Handlers() []handler.Descriptor {
	return []handler.Descriptor{
		handler.Init(p.start, metricsplug.RegistryDep),
		handler.Destroy(p.stop),
		handler.Event("index.refresh", p.refresh),
	}
}

func (p *IndexPlugin) start(reg *prometheus.Registry) error {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: p.conf.Addresses,
		Username:  p.conf.Username,
		Password:  p.conf.Password,
	})
	if err != nil {
		return fmt.Errorf("esplug: building client: %w", err)
	}
	p.client = client

	p.refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lynx_elasticsearch_refreshes_total",
			Help: "Total number of index refresh requests",
		},
		[]string{"status"},
	)
	reg.MustRegister(p.refreshTotal)
	return p.RegisterNamed(ClientDep, p.client)
}

func (p *IndexPlugin) stop() error {
	p.client = nil
	return nil
}

// refresh forces a refresh of the configured indices.
func (p *IndexPlugin) refresh() error {
	if p.client == nil {
		return fmt.Errorf("esplug: client not started")
	}
	res, err := p.client.Indices.Refresh(
		p.client.Indices.Refresh.WithIndex(p.conf.Indices...),
	)
	if err != nil {
		p.refreshTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("esplug: refreshing indices: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		p.refreshTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("esplug: refresh returned %s", res.Status())
	}
	p.refreshTotal.WithLabelValues("success").Inc()
	return nil
}
