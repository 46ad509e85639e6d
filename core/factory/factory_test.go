package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	MaxNodes int
	Timeout  time.Duration
}

type backendConf struct {
	MaxNodes int           `json:"max_nodes"`
	Timeout  time.Duration `json:"timeout"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*backend]()
	require.NoError(t, reg.Register("bnb", func(conf map[string]any) (*backend, error) {
		var c backendConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &backend{MaxNodes: c.MaxNodes, Timeout: c.Timeout}, nil
	}))

	inst, err := reg.Create(ModuleConfig{Type: "bnb", Conf: map[string]any{"max_nodes": "300", "timeout": "2s"}})
	require.NoError(t, err)
	assert.Equal(t, 300, inst.MaxNodes)
	assert.Equal(t, 2*time.Second, inst.Timeout)
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	require.NoError(t, reg.Register("x", func(map[string]any) (int, error) { return 1, nil }))
	assert.Error(t, reg.Register("x", func(map[string]any) (int, error) { return 2, nil }))
	assert.Error(t, reg.Register("z", nil))

	_, err := reg.Create(ModuleConfig{Type: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "known: [x]")
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry[int]()
	for _, n := range []string{"gonum", "bnb"} {
		require.NoError(t, reg.Register(n, func(map[string]any) (int, error) { return 0, nil }))
	}
	assert.Equal(t, []string{"bnb", "gonum"}, reg.Names())
}
