package param

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NamesRowAfterComponent(t *testing.T) {
	s := New("recharge", "A", 1, 0, 100)
	assert.Equal(t, "recharge_A", s.Name)
	assert.Equal(t, "recharge", s.Component)
	assert.True(t, s.Vary)
	assert.False(t, s.Fixed().Vary)
}

func TestSpec_BoundsWithNaN(t *testing.T) {
	open := New("constant", "d", 0, math.NaN(), math.NaN())
	assert.True(t, open.Bounded(-1e9))
	assert.Equal(t, 5.0, open.Clamp(5))

	s := New("x", "a", 1, 0, 10)
	assert.False(t, s.Bounded(11))
	assert.Equal(t, 10.0, s.Clamp(11))
	assert.Equal(t, 0.0, s.Clamp(-1))
}

func TestSpec_Validate(t *testing.T) {
	assert.NoError(t, New("x", "a", 1, 0, 10).Validate())
	assert.Error(t, Spec{}.Validate())
	assert.Error(t, New("x", "a", 1, 10, 0).Validate())
	assert.Error(t, New("x", "a", math.NaN(), 0, 1).Validate())
}

func TestSpec_JSONUsesNullForOpenBounds(t *testing.T) {
	s := New("constant", "d", 2.5, math.NaN(), math.NaN())
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"constant_d","initial":2.5,"pmin":null,"pmax":null,"vary":true,"component":"constant"}`, string(data))

	var back Spec
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s.Name, back.Name)
	assert.True(t, math.IsNaN(back.PMin))
	assert.True(t, math.IsNaN(back.PMax))
}

func TestTable_Accessors(t *testing.T) {
	tab := Table{New("a", "x", 1, 0, 2), New("b", "y", 3, 0, 4)}
	assert.Equal(t, []string{"a_x", "b_y"}, tab.Names())
	assert.Equal(t, []float64{1, 3}, tab.Initial())

	c := tab.Clone()
	c[0].Initial = 9
	assert.Equal(t, 1.0, tab[0].Initial)
}
