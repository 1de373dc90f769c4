package redisplug

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynxplug/runtime/dependency"
	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugins/metricsplug"
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

func TestDefaultConf(t *testing.T) {
	p := NewCachePlugin()
	assert.Equal(t, "localhost:6379", p.conf.Addr)
	assert.Equal(t, 10, p.conf.PoolSize)
}

func TestWithConfReplacesDefaults(t *testing.T) {
	p := NewCachePlugin(WithConf(&Conf{Addr: "cache:6380", PoolSize: 50}))
	assert.Equal(t, "cache:6380", p.conf.Addr)
	assert.Equal(t, 50, p.conf.PoolSize)
}

func TestInitDependsOnMetricsRegistry(t *testing.T) {
	p := NewCachePlugin()
	descriptors := p.Handlers()
	require.Len(t, descriptors, 3)

	init := descriptors[0]
	require.Equal(t, handler.KindInit, init.Kind())
	require.Len(t, init.Params(), 1)
	assert.Equal(t, metricsplug.RegistryDep, init.Params()[0].DepName)
}

func TestStartPublishesClient(t *testing.T) {
	p := NewCachePlugin()
	reg := &captureRegistrar{}
	require.NoError(t, p.Attach(reg))
	require.NoError(t, p.start(prometheus.NewRegistry()))
	t.Cleanup(func() { _ = p.stop() })

	require.NotNil(t, p.Client())
	assert.Same(t, p.Client(), reg.named[ClientDep])
}

func TestWarmBeforeStartFails(t *testing.T) {
	p := NewCachePlugin()
	assert.Error(t, p.warm())
}
