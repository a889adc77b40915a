package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/benchgrid/internal/errs"
)

type fakeTool struct{ label string }

func TestRegisterAssignsStableHandles(t *testing.T) {
	r := NewRegistry()
	a := &fakeTool{"a"}
	b := &fakeTool{"b"}

	idA, err := r.Register(a, "builder-a")
	require.NoError(t, err)
	idB, err := r.Register(b, "builder-b")
	require.NoError(t, err)

	assert.NotEqual(t, idA, idB)
	assert.Equal(t, "builder-a", r.NameOf(idA))
	assert.Equal(t, "builder-b", r.NameOf(idB))
	assert.Same(t, a, r.Tool(idA))
	assert.Equal(t, 2, r.Len())
}

func TestRegisterSameToolSameNameIsNoOp(t *testing.T) {
	r := NewRegistry()
	tl := &fakeTool{"a"}

	first, err := r.Register(tl, "shared")
	require.NoError(t, err)
	second, err := r.Register(tl, "shared")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, r.Len())
}

func TestRegisterSameToolDifferentNameFails(t *testing.T) {
	r := NewRegistry()
	tl := &fakeTool{"a"}

	_, err := r.Register(tl, "one")
	require.NoError(t, err)
	_, err = r.Register(tl, "two")

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfig))
}

func TestRegisterDifferentToolsSameNameFails(t *testing.T) {
	r := NewRegistry()

	_, err := r.Register(&fakeTool{"a"}, "same")
	require.NoError(t, err)
	_, err = r.Register(&fakeTool{"b"}, "same")

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfig))
}

func TestRegisterBlankNameFails(t *testing.T) {
	r := NewRegistry()

	_, err := r.Register(&fakeTool{"a"}, "  ")

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfig))
}
