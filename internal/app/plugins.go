package app

import (
	"github.com/vk/weavergo/internal/registry"
	"github.com/vk/weavergo/modules/audit"
	"github.com/vk/weavergo/modules/nullcheck"
	"github.com/vk/weavergo/modules/rename"
	"github.com/vk/weavergo/modules/stamp"
)

// corePlugins is the definitive list of all plugins that are compiled
// into the weavergo binary.
var corePlugins = []registry.Plugin{
	&nullcheck.Module{},
	&rename.Module{},
	&audit.Module{},
	&stamp.Module{},
}
