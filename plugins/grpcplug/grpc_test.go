package grpcplug

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/lynxplug/runtime/dependency"
)

type captureRegistrar struct {
	named map[string]any
}

func (r *captureRegistrar) Register(value any) (dependency.Dependency, error) {
	return dependency.NewFromValue("generated", value)
}

func (r *captureRegistrar) RegisterNamed(name string, value any) error {
	if r.named == nil {
		r.named = make(map[string]any)
	}
	r.named[name] = value
	return nil
}

func TestStartPublishesServer(t *testing.T) {
	p := NewServerPlugin()
	reg := &captureRegistrar{}
	require.NoError(t, p.Attach(reg))
	require.NoError(t, p.start())
	t.Cleanup(func() { _ = p.stop() })

	require.NotNil(t, p.Server())
	assert.Same(t, p.Server(), reg.named[ServerDep])
}

func TestServeAnswersHealthChecks(t *testing.T) {
	p := NewServerPlugin(WithConf(&Conf{Addr: "127.0.0.1:0", MaxRecvMsgSize: 4 << 20, MaxSendMsgSize: 4 << 20}))
	require.NoError(t, p.Attach(&captureRegistrar{}))
	require.NoError(t, p.start())
	require.NoError(t, p.serve())
	t.Cleanup(func() { _ = p.stop() })

	// Repeat serve events are no-ops.
	require.NoError(t, p.serve())

	conn, err := grpc.NewClient(p.lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestServeBeforeStartFails(t *testing.T) {
	p := NewServerPlugin()
	assert.Error(t, p.serve())
}
