package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snap-backend/backend/internal/store"
)

func appendStep(name string) Transform {
	return func(rec store.Record) store.Record {
		steps, _ := rec["steps"].([]string)
		rec["steps"] = append(steps, name)
		return rec
	}
}

func TestRegistry_RunAppliesDefaultFirst(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Register("default", appendStep("default")))
	require.True(t, r.Register("a", appendStep("a")))
	require.True(t, r.Register("b", appendStep("b")))

	out := r.Run(store.Record{}, []string{"b", "a"})
	assert.Equal(t, []string{"default", "b", "a"}, out["steps"])
}

func TestRegistry_RunDefaultNotDuplicatedByOmission(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Register("default", appendStep("default")))

	out := r.Run(store.Record{}, nil)
	assert.Equal(t, []string{"default"}, out["steps"])
}

func TestRegistry_RunExplicitDefaultRunsAgain(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Register("default", appendStep("default")))
	require.True(t, r.Register("a", appendStep("a")))

	out := r.Run(store.Record{}, []string{"default", "a"})
	assert.Equal(t, []string{"default", "default", "a"}, out["steps"])
}

func TestRegistry_RunSkipsUnknownNames(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Register("a", appendStep("a")))

	out := r.Run(store.Record{"x": 1}, []string{"nope", "a", "missing"})
	assert.Equal(t, []string{"a"}, out["steps"])
	assert.Equal(t, 1, out["x"])
}

func TestRegistry_RegisterRejectsBadInput(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Register("", appendStep("x")))
	assert.False(t, r.Register("has space", appendStep("x")))
	assert.False(t, r.Register("nilfn", nil))

	assert.Equal(t, []string{"default"}, r.Keys())
}

func TestRegistry_RegisterOverwritesIncludingDefault(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Register("default", func(rec store.Record) store.Record {
		rec["shaped"] = true
		return rec
	}))

	out := r.Run(store.Record{}, nil)
	assert.Equal(t, true, out["shaped"])
}

func TestRegistry_Keys(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Register("b", appendStep("b")))
	require.True(t, r.Register("a", appendStep("a")))

	assert.Equal(t, []string{"a", "b", "default"}, r.Keys())
}

func TestRegistry_RunNilRecord(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Run(nil, []string{"default"}))
}
