package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/idler/pkg/resource"
)

// mockPlugin implements Plugin for testing.
type mockPlugin struct {
	name   string
	region string
}

func (m *mockPlugin) Name() string {
	return m.name
}

func (m *mockPlugin) Region() string {
	return m.region
}

func (m *mockPlugin) Queries() []Query {
	return nil
}

func (m *mockPlugin) Delete(_ context.Context, _ resource.Type, _ string) error {
	return nil
}

func TestRegister(t *testing.T) {
	Clear()
	defer Clear()

	p := &mockPlugin{name: "test"}
	Register(p)

	got, ok := Get("test")
	require.True(t, ok)
	assert.Equal(t, "test", got.Name())
}

func TestGet_NotFound(t *testing.T) {
	Clear()
	defer Clear()

	_, ok := Get("nonexistent")
	assert.False(t, ok)
}

func TestNames(t *testing.T) {
	Clear()
	defer Clear()

	Register(&mockPlugin{name: "aws"})
	Register(&mockPlugin{name: "gcp"})

	names := Names()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "aws")
	assert.Contains(t, names, "gcp")
}

func TestRegister_Overwrites(t *testing.T) {
	Clear()
	defer Clear()

	Register(&mockPlugin{name: "aws", region: "us-east-1"})
	Register(&mockPlugin{name: "aws", region: "eu-west-1"})

	got, _ := Get("aws")
	assert.Equal(t, "eu-west-1", got.Region())
}

func TestClear(t *testing.T) {
	Clear()

	Register(&mockPlugin{name: "aws"})
	assert.Len(t, Names(), 1)

	Clear()
	assert.Empty(t, Names())
}
