package app

import (
	"github.com/vk/benchgrid/internal/tool"
	"github.com/vk/benchgrid/modules/copybuild"
	"github.com/vk/benchgrid/modules/procexec"
	"github.com/vk/benchgrid/modules/socketexec"
)

// coreModules lists the built-in tool integrations, one per package under
// modules/.
var coreModules = []tool.Module{
	copybuild.Module{},
	procexec.Module{},
	socketexec.Module{},
}
