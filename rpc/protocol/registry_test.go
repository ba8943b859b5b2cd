package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Names())

	require.NoError(t, RegisterDefaults(r))
	assert.Equal(t, []string{"get", "test"}, r.Names())

	key := testKey(t)
	p, err := r.Create("get", key)
	require.NoError(t, err)
	assert.IsType(t, &Get{}, p)
	assert.Equal(t, "get", p.Name())
	assert.Equal(t, key, p.Key())

	p, err = r.Create("test", key)
	require.NoError(t, err)
	assert.IsType(t, &Test{}, p)

	_, err = r.Create("put", key)
	assert.Error(t, err)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := DefaultRegistry()
	assert.Error(t, r.Register("get", func(key Key) Protocol { return NewGet(key) }))
	assert.Error(t, r.Register("", func(key Key) Protocol { return NewGet(key) }))
	assert.Error(t, r.Register("nil", nil))
	assert.Error(t, RegisterDefaults(r))
}
