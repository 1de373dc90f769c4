// Package kafkaplug provides the Kafka producer plugin backed by sarama.
// The synchronous producer is published as a named dependency.
package kafkaplug

import (
	"fmt"

	"github.com/IBM/sarama"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugin"
	"github.com/lynxplug/runtime/plugins/metricsplug"
)

const (
	pluginName        = "kafka.producer"
	pluginVersion     = "v1.0.0"
	pluginDescription = "kafka producer plugin"
	confPrefix        = "lynx.kafka"

	// ProducerDep is the dependency name the producer is published under.
	ProducerDep = "kafka.producer"
)

// Conf mirrors the lynx.kafka configuration block.
type Conf struct {
	Brokers      []string `json:"brokers"`
	Topic        string   `json:"topic"`
	RequiredAcks int      `json:"required_acks"`
	MaxRetries   int      `json:"max_retries"`
}

func defaultConf() *Conf {
	return &Conf{
		Brokers:      []string{"localhost:9092"},
		Topic:        "lynx-events",
		RequiredAcks: int(sarama.WaitForLocal),
		MaxRetries:   3,
	}
}

// ProducerPlugin manages one synchronous Kafka producer.
type ProducerPlugin struct {
	plugin.Base
	conf     *Conf
	producer sarama.SyncProducer

	messagesTotal *prometheus.CounterVec
}

// Option customizes the plugin at construction.
type Option func(*ProducerPlugin)

// WithConfig scans the lynx.kafka configuration block over the defaults.
func WithConfig(v config.Value) Option {
	return func(p *ProducerPlugin) {
		if err := v.Scan(p.conf); err != nil {
			panic(fmt.Errorf("kafkaplug: scanning %s config: %w", confPrefix, err))
		}
	}
}

// WithConf replaces the configuration wholesale.
func WithConf(c *Conf) Option {
	return func(p *ProducerPlugin) { p.conf = c }
}

// NewProducerPlugin builds the plugin with defaults overlaid by opts.
func NewProducerPlugin(opts ...Option) *ProducerPlugin {
	p := &ProducerPlugin{conf: defaultConf()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the plugin's registered name.
func (p *ProducerPlugin) Name() string { return pluginName }

// Producer returns the producer, nil before initialization.
func (p *ProducerPlugin) Producer() sarama.SyncProducer { return p.producer }

// Handlers declares the plugin's lifecycle and event handlers.
func (p *ProducerPlugin) Handlers() []handler.Descriptor {
	return []handler.Descriptor{
		handler.Init(p.start, metricsplug.RegistryDep),
		handler.Destroy(p.stop),
		handler.Event("broker.flush", p.flushMarker),
	}
}

func (p *ProducerPlugin) start(reg *prometheus.Registry) error {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.RequiredAcks(p.conf.RequiredAcks)
	cfg.Producer.Retry.Max = p.conf.MaxRetries
	cfg.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(p.conf.Brokers, cfg)
	if err != nil {
		return fmt.Errorf("kafkaplug: building producer: %w", err)
	}
	p.producer = producer

	p.messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lynx_kafka_messages_total",
			Help: "Total number of Kafka messages produced",
		},
		[]string{"topic", "status"},
	)
	reg.MustRegister(p.messagesTotal)
	return p.RegisterNamed(ProducerDep, p.producer)
}

func (p *ProducerPlugin) stop() error {
	if p.producer == nil {
		return nil
	}
	err := p.producer.Close()
	p.producer = nil
	return err
}

// flushMarker emits a marker message so downstream consumers observe a
// flush boundary.
func (p *ProducerPlugin) flushMarker() error {
	if p.producer == nil {
		return fmt.Errorf("kafkaplug: producer not started")
	}
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.conf.Topic,
		Value: sarama.StringEncoder("flush"),
	})
	if err != nil {
		p.messagesTotal.WithLabelValues(p.conf.Topic, "error").Inc()
		return fmt.Errorf("kafkaplug: sending flush marker: %w", err)
	}
	p.messagesTotal.WithLabelValues(p.conf.Topic, "success").Inc()
	return nil
}
