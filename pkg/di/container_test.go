package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface {
	Greet() string
}

type stubGreeter struct{ msg string }

func (s *stubGreeter) Greet() string { return s.msg }

func TestRegisterAndResolve(t *testing.T) {
	c := New()
	require.NoError(t, c.Register((*greeter)(nil), func(_ *Container) (interface{}, error) {
		return &stubGreeter{msg: "hello"}, nil
	}))

	var g greeter
	require.NoError(t, c.Resolve(&g))
	assert.Equal(t, "hello", g.Greet())

	// singleton: second resolve returns the same instance
	var g2 greeter
	require.NoError(t, c.Resolve(&g2))
	assert.Same(t, g, g2)
}

func TestRegisterAndResolveConcrete(t *testing.T) {
	c := New()
	require.NoError(t, c.Register((*stubGreeter)(nil), func(_ *Container) (interface{}, error) {
		return &stubGreeter{msg: "direct"}, nil
	}))

	var s *stubGreeter
	require.NoError(t, c.Resolve(&s))
	assert.Equal(t, "direct", s.Greet())
}

func TestResolveUnregistered(t *testing.T) {
	c := New()
	var g greeter
	err := c.Resolve(&g)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFactoryRegistered)
}

func TestRegisterNonPointer(t *testing.T) {
	c := New()
	err := c.Register("not a pointer", func(_ *Container) (interface{}, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrInterfaceMustBePointer)
}
