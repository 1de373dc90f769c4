// Package grpcplug provides the gRPC transport plugin. It stands up a
// server with the standard health service, publishes the server as a named
// dependency so peer plugins can register their services before serving
// begins, and starts serving on the serve event.
package grpcplug

import (
	"fmt"
	"net"
	"sync"

	"github.com/go-kratos/kratos/v2/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugin"
)

const (
	pluginName        = "grpc.server"
	pluginVersion     = "v1.0.0"
	pluginDescription = "grpc transport plugin"
	confPrefix        = "lynx.grpc"

	// ServerDep is the dependency name the server is published under.
	ServerDep = "grpc.server"
)

// Conf mirrors the lynx.grpc configuration block.
type Conf struct {
	Addr              string               `json:"addr"`
	MaxRecvMsgSize    int                  `json:"max_recv_msg_size"`
	MaxSendMsgSize    int                  `json:"max_send_msg_size"`
	ConnectionTimeout *durationpb.Duration `json:"connection_timeout"`
}

func defaultConf() *Conf {
	return &Conf{
		Addr:              ":9000",
		MaxRecvMsgSize:    4 << 20,
		MaxSendMsgSize:    4 << 20,
		ConnectionTimeout: durationpb.New(0),
	}
}

// ServerPlugin manages one gRPC server.
type ServerPlugin struct {
	plugin.Base
	conf   *Conf
	server *grpc.Server
	hsrv   *health.Server
	lis    net.Listener

	serveOnce sync.Once
	serveErr  chan error
}

// Option customizes the plugin at construction.
type Option func(*ServerPlugin)

// WithConfig scans the lynx.grpc configuration block over the defaults.
func WithConfig(v config.Value) Option {
	return func(p *ServerPlugin) {
		if err := v.Scan(p.conf); err != nil {
			panic(fmt.Errorf("grpcplug: scanning %s config: %w", confPrefix, err))
		}
	}
}

// WithConf replaces the configuration wholesale.
func WithConf(c *Conf) Option {
	return func(p *ServerPlugin) { p.conf = c }
}

// NewServerPlugin builds the plugin with defaults overlaid by opts.
func NewServerPlugin(opts ...Option) *ServerPlugin {
	p := &ServerPlugin{conf: defaultConf(), serveErr: make(chan error, 1)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the plugin's registered name.
func (p *ServerPlugin) Name() string { return pluginName }

// Server returns the server, nil before initialization.
func (p *ServerPlugin) Server() *grpc.Server { return p.server }

// Handlers declares the plugin's lifecycle and event handlers.
func (p *ServerPlugin) Handlers() []handler.Descriptor {
	return []handler.Descriptor{
		handler.Init(p.start),
		handler.Destroy(p.stop),
		handler.Event("grpc.serve", p.serve),
	}
}

// start builds the server and health service without binding the listen
// address; peers register their services between init and the serve event.
func (p *ServerPlugin) start() error {
	serverOpts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(p.conf.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(p.conf.MaxSendMsgSize),
	}
	if d := p.conf.ConnectionTimeout.AsDuration(); d > 0 {
		serverOpts = append(serverOpts, grpc.ConnectionTimeout(d))
	}
	p.server = grpc.NewServer(serverOpts...)
	p.hsrv = health.NewServer()
	healthpb.RegisterHealthServer(p.server, p.hsrv)
	return p.RegisterNamed(ServerDep, p.server)
}

// serve binds the configured address and serves in the background. Repeat
// serve events are no-ops.
func (p *ServerPlugin) serve() error {
	if p.server == nil {
		return fmt.Errorf("grpcplug: server not started")
	}
	var err error
	p.serveOnce.Do(func() {
		p.lis, err = net.Listen("tcp", p.conf.Addr)
		if err != nil {
			err = fmt.Errorf("grpcplug: listening on %s: %w", p.conf.Addr, err)
			return
		}
		p.hsrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			p.serveErr <- p.server.Serve(p.lis)
		}()
	})
	return err
}

func (p *ServerPlugin) stop() error {
	if p.server == nil {
		return nil
	}
	if p.hsrv != nil {
		p.hsrv.Shutdown()
	}
	p.server.GracefulStop()
	p.server = nil
	p.lis = nil
	return nil
}
