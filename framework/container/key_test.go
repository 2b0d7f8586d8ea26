package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-carbon/framework/container"
)

func TestKey_String(t *testing.T) {
	const pkg = "github.com/km-arc/go-carbon/framework/container_test"

	tests := []struct {
		name string
		key  container.Key
		want string
	}{
		{"capability", container.KeyFor[Storage](), pkg + ".Storage"},
		{"named capability", container.NamedKeyFor[Storage]("disk"), pkg + ".Storage; disk"},
		{"name only", container.NameKey("home"), "home"},
		{"pointer", container.KeyFor[*Disk](), "*" + pkg + ".Disk"},
		{"builtin", container.KeyFor[string](), "string"},
		{"with args", container.WithArgs[string](container.NamedKeyFor[Storage]("disk")), pkg + ".Storage(string); disk"},
		{"zero", container.Key{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.String())
		})
	}
}

func TestKey_Identity(t *testing.T) {
	assert.Equal(t, container.KeyFor[Storage](), container.KeyFor[Storage]())
	assert.NotEqual(t, container.KeyFor[Storage](), container.KeyFor[Accounts]())
	assert.Equal(t, container.NamedKeyFor[Storage]("disk"), container.KeyFor[Storage]().WithName("disk"))
	assert.NotEqual(t, container.NameKey("disk"), container.NamedKeyFor[Storage]("disk"))
	assert.NotEqual(t, container.KeyFor[Storage](), container.WithArgs[string](container.KeyFor[Storage]()))

	m := map[container.Key]int{container.KeyFor[Storage](): 1}
	m[container.KeyFor[Storage]()]++
	require.Len(t, m, 1)
	assert.Equal(t, 2, m[container.KeyFor[Storage]()])
}

func TestKey_IsZero(t *testing.T) {
	assert.True(t, container.Key{}.IsZero())
	assert.False(t, container.NameKey("x").IsZero())
	assert.False(t, container.KeyFor[Storage]().IsZero())
}
