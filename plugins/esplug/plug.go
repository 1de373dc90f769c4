package esplug

import (
	"github.com/lynxplug/runtime/factory"
	"github.com/lynxplug/runtime/plugin"
)

// init registers the Elasticsearch index plugin with the global plugin
// factory.
func init() {
	factory.Register(pluginName, func() plugin.Plugin {
		return NewIndexPlugin()
	})
}
