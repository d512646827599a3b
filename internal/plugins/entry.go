package plugins

import (
	"bytemomo/oarfish/internal/plugin"
	"bytemomo/oarfish/internal/plugins/cvelookup"
	"bytemomo/oarfish/internal/plugins/privesc"
)

// Init registers every built-in plugin on the default registry.
func Init() {
	Register(plugin.Default)
}

// Register adds the built-in plugins to r.
func Register(r *plugin.Registry) {
	r.Register(privesc.ID, privesc.New)
	r.Register(cvelookup.ID, cvelookup.New)
}
