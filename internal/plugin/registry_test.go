package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bytemomo/oarfish/internal/domain"
)

type stubPlugin struct {
	desc domain.Descriptor
	runs int
}

func (s *stubPlugin) Metadata() domain.Descriptor { return s.desc }

func (s *stubPlugin) Run(context.Context, *Env) domain.PluginResult {
	s.runs++
	return domain.PluginResult{Plugin: s.desc.ID, Outcome: domain.OutcomeSuccess, Detail: "ran"}
}

type panickyMetadata struct{ stubPlugin }

func (panickyMetadata) Metadata() domain.Descriptor { panic("metadata exploded") }

func TestRegister_IgnoresInvalid(t *testing.T) {
	r := NewRegistry()
	r.Register("", func() (Plugin, error) { return &stubPlugin{}, nil })
	r.Register("nil-factory", nil)
	assert.Empty(t, r.Names())
}

func TestNames_Sorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		r.Register(name, func() (Plugin, error) { return &stubPlugin{}, nil })
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}

func TestDescribeAll_IsTotal(t *testing.T) {
	good := &stubPlugin{desc: domain.Descriptor{ID: "good", Name: "Good", Category: domain.CategorySecurity}}
	r := NewRegistry()
	r.Register("good", func() (Plugin, error) { return good, nil })
	r.Register("broken", func() (Plugin, error) { return nil, errors.New("missing dependency") })
	r.Register("panics", func() (Plugin, error) { return &panickyMetadata{}, nil })
	r.Register("empty", func() (Plugin, error) { return nil, nil })

	all := r.DescribeAll()
	require.Len(t, all, 4)

	assert.Equal(t, "Good", all["good"].Name)
	assert.Empty(t, all["good"].Error)
	assert.Equal(t, "missing dependency", all["broken"].Error)
	assert.Contains(t, all["panics"].Error, "metadata exploded")
	assert.NotEmpty(t, all["empty"].Error)
	assert.Zero(t, good.runs, "describing must not run plugins")
}

func TestLoad(t *testing.T) {
	r := NewRegistry()
	r.Register("good", func() (Plugin, error) { return &stubPlugin{desc: domain.Descriptor{ID: "good"}}, nil })
	r.Register("broken", func() (Plugin, error) { return nil, errors.New("boom") })

	p, err := r.Load("good")
	require.NoError(t, err)
	assert.Equal(t, "good", p.Metadata().ID)

	_, err = r.Load("broken")
	assert.ErrorContains(t, err, "boom")

	_, err = r.Load("missing")
	require.ErrorIs(t, err, ErrPluginNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"broken", "good"}, nf.Known)
	assert.Contains(t, err.Error(), "broken, good")
}
