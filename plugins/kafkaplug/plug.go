package kafkaplug

import (
	"github.com/lynxplug/runtime/factory"
	"github.com/lynxplug/runtime/plugin"
)

// init registers the Kafka producer plugin with the global plugin factory.
func init() {
	factory.Register(pluginName, func() plugin.Plugin {
		return NewProducerPlugin()
	})
}
