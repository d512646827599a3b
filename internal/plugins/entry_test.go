package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bytemomo/oarfish/internal/plugin"
)

func TestRegister(t *testing.T) {
	r := plugin.NewRegistry()
	Register(r)

	assert.Equal(t, []string{"cve-lookup", "old-odoo-privesc"}, r.Names())
	for name, desc := range r.DescribeAll() {
		assert.Empty(t, desc.Error, name)
		assert.Equal(t, name, desc.ID)
	}
}
