package metricsplug

import (
	"github.com/lynxplug/runtime/factory"
	"github.com/lynxplug/runtime/plugin"
)

// init registers the metrics plugin with the global plugin factory so the
// manager can materialize it by name.
func init() {
	factory.Register(pluginName, func() plugin.Plugin {
		return NewMetricsPlugin()
	})
}
