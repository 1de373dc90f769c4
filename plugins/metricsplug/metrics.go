// Package metricsplug provides the metrics plugin. Its init handler
// publishes a shared Prometheus registry as a named dependency, so every
// other infrastructure plugin can attach its collectors to it; the fixed
// point invoker orders those init handlers after this one regardless of
// batch order.
package metricsplug

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugin"
)

const (
	pluginName        = "metrics.server"
	pluginVersion     = "v1.0.0"
	pluginDescription = "prometheus metrics registry plugin"
	confPrefix        = "lynx.metrics"

	// RegistryDep is the dependency name the shared registry is published
	// under.
	RegistryDep = "metrics.registry"
	// EventNameDep is the scoped dependency carrying the fired event's name.
	// Callers dispatching one of the observed events provide it in the
	// event scope.
	EventNameDep = "event.name"
)

// MetricsPlugin owns the process-wide Prometheus registry.
type MetricsPlugin struct {
	plugin.Base
	conf     *Conf
	registry *prometheus.Registry

	eventsFired *prometheus.CounterVec
}

// Conf controls which built-in collectors are attached.
type Conf struct {
	// GoCollector attaches the Go runtime collector.
	GoCollector bool `json:"go_collector"`
	// ProcessCollector attaches the process collector.
	ProcessCollector bool `json:"process_collector"`
}

func defaultConf() *Conf {
	return &Conf{GoCollector: true, ProcessCollector: true}
}

// NewMetricsPlugin builds the plugin with default configuration.
func NewMetricsPlugin() *MetricsPlugin {
	return &MetricsPlugin{conf: defaultConf()}
}

// Name returns the plugin's registered name.
func (p *MetricsPlugin) Name() string { return pluginName }

// Registry returns the owned registry, nil before initialization.
func (p *MetricsPlugin) Registry() *prometheus.Registry { return p.registry }

// Handlers declares the plugin's lifecycle and event handlers.
func (p *MetricsPlugin) Handlers() []handler.Descriptor {
	return []handler.Descriptor{
		handler.Init(p.start),
		handler.Destroy(p.stop),
		handler.Events([]string{"cache.warm", "store.migrate", "broker.flush", "trace.flush", "index.refresh"}, p.countEvent, EventNameDep),
	}
}

func (p *MetricsPlugin) start() error {
	p.registry = prometheus.NewRegistry()
	if p.conf.GoCollector {
		p.registry.MustRegister(collectors.NewGoCollector())
	}
	if p.conf.ProcessCollector {
		p.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	p.eventsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lynx_plugin_events_total",
			Help: "Total number of plugin events observed",
		},
		[]string{"event"},
	)
	p.registry.MustRegister(p.eventsFired)
	return p.RegisterNamed(RegistryDep, p.registry)
}

func (p *MetricsPlugin) stop() error {
	p.registry = nil
	p.eventsFired = nil
	return nil
}

// countEvent observes every domain event the runtime fans out.
func (p *MetricsPlugin) countEvent(name string) {
	if p.eventsFired != nil {
		p.eventsFired.WithLabelValues(name).Inc()
	}
}
