// Package tracerplug provides the tracing plugin. It stands up an OTLP
// gRPC exporter and a batching tracer provider, installs the provider
// globally, and publishes it as a named dependency.
package tracerplug

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugin"
)

const (
	pluginName        = "tracer.provider"
	pluginVersion     = "v1.0.0"
	pluginDescription = "opentelemetry tracer plugin"
	confPrefix        = "lynx.tracer"

	// ProviderDep is the dependency name the provider is published under.
	ProviderDep = "tracer.provider"
)

// Conf mirrors the lynx.tracer configuration block.
type Conf struct {
	Endpoint    string  `json:"endpoint"`
	ServiceName string  `json:"service_name"`
	SampleRatio float64 `json:"sample_ratio"`
	Insecure    bool    `json:"insecure"`
}

func defaultConf() *Conf {
	return &Conf{
		Endpoint:    "localhost:4317",
		ServiceName: "lynx-plugin-runtime",
		SampleRatio: 1.0,
		Insecure:    true,
	}
}

// TracerPlugin manages the tracer provider lifecycle.
type TracerPlugin struct {
	plugin.Base
	conf     *Conf
	provider *tracesdk.TracerProvider
}

// Option customizes the plugin at construction.
type Option func(*TracerPlugin)

// WithConfig scans the lynx.tracer configuration block over the defaults.
func WithConfig(v config.Value) Option {
	return func(p *TracerPlugin) {
		if err := v.Scan(p.conf); err != nil {
			panic(fmt.Errorf("tracerplug: scanning %s config: %w", confPrefix, err))
		}
	}
}

// WithConf replaces the configuration wholesale.
func WithConf(c *Conf) Option {
	return func(p *TracerPlugin) { p.conf = c }
}

// NewTracerPlugin builds the plugin with defaults overlaid by opts.
func NewTracerPlugin(opts ...Option) *TracerPlugin {
	p := &TracerPlugin{conf: defaultConf()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the plugin's registered name.
func (p *TracerPlugin) Name() string { return pluginName }

// Provider returns the tracer provider, nil before initialization.
func (p *TracerPlugin) Provider() *tracesdk.TracerProvider { return p.provider }

// Handlers declares the plugin's lifecycle and event handlers.
func (p *TracerPlugin) Handlers() []handler.Descriptor {
	return []handler.Descriptor{
		handler.Init(p.start),
		handler.Destroy(p.stop),
		handler.Event("trace.flush", p.flush),
	}
}

func (p *TracerPlugin) start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(p.conf.Endpoint),
	}
	if p.conf.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return fmt.Errorf("tracerplug: building exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(p.conf.ServiceName),
			attribute.String("service.version", pluginVersion),
		),
	)
	if err != nil {
		return fmt.Errorf("tracerplug: building resource: %w", err)
	}
	p.provider = tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(res),
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(p.conf.SampleRatio))),
	)
	otel.SetTracerProvider(p.provider)
	return p.RegisterNamed(ProviderDep, p.provider)
}

func (p *TracerPlugin) stop() error {
	if p.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := p.provider.Shutdown(ctx)
	p.provider = nil
	return err
}

// flush forces the batcher to export buffered spans.
func (p *TracerPlugin) flush() error {
	if p.provider == nil {
		return fmt.Errorf("tracerplug: provider not started")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.provider.ForceFlush(ctx)
}
