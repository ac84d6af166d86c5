package parameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromConfigString(t *testing.T) {
	p := NewFromConfigString("depth=6, movetime=250,rollout, leaves=egtb.bin")
	assert.Equal(t, Params{
		"depth":    "6",
		"movetime": "250",
		"rollout":  "",
		"leaves":   "egtb.bin",
	}, p)

	assert.Empty(t, NewFromConfigString(""))
}

func TestGetParamOrTypes(t *testing.T) {
	p := NewFromConfigString("depth=6,bias=0.25,rollout,name=uct")

	depth, err := GetParamOr(p, "depth", 0)
	require.NoError(t, err)
	assert.Equal(t, 6, depth)

	bias, err := GetParamOr(p, "bias", 0.707)
	require.NoError(t, err)
	assert.Equal(t, 0.25, bias)

	rollout, err := GetParamOr(p, "rollout", false)
	require.NoError(t, err)
	assert.True(t, rollout, "a bare key must read as true for bool accessors")

	name, err := GetParamOr(p, "name", "negamax")
	require.NoError(t, err)
	assert.Equal(t, "uct", name)

	missing, err := GetParamOr(p, "absent", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, missing)
}

func TestGetParamOrMalformedValue(t *testing.T) {
	p := NewFromConfigString("depth=six")
	depth, err := GetParamOr(p, "depth", 4)
	require.Error(t, err)
	assert.Equal(t, 4, depth, "a malformed value must fall back to the default")
}

func TestPopParamOrDrainsEntries(t *testing.T) {
	p := NewFromConfigString("depth=6,bogus=1")

	depth, err := PopParamOr(p, "depth", 0)
	require.NoError(t, err)
	assert.Equal(t, 6, depth)

	// Only the unrecognized leftover remains, ready for an unknown-key warning.
	assert.Equal(t, Params{"bogus": "1"}, p)
}
