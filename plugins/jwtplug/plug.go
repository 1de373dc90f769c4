package jwtplug

import (
	"github.com/lynxplug/runtime/factory"
	"github.com/lynxplug/runtime/plugin"
)

// init registers the token plugin with the global plugin factory.
func init() {
	factory.Register(pluginName, func() plugin.Plugin {
		return NewTokenPlugin()
	})
}
