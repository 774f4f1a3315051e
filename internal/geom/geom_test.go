package geom

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVec_Arithmetic(t *testing.T) {
	a := V(3, 4)
	b := V(1, 1)

	assert.Equal(t, V(4, 5), a.Add(b))
	assert.Equal(t, V(2, 3), a.Sub(b))
	assert.Equal(t, 5.0, a.Len())
	assert.Equal(t, 5.0, V(0, 0).Dist(a))
	assert.Equal(t, V(1.5, 2), a.Mul(0.5))
	assert.Equal(t, V(3, 0), V(6, 5).Div(V(2, 0)))
}

func TestVec_JSONPair(t *testing.T) {
	data, err := json.Marshal(V(110, 20.5))
	require.NoError(t, err)
	assert.JSONEq(t, `[110, 20.5]`, string(data))

	var v Vec
	require.NoError(t, json.Unmarshal([]byte(`[1, 2, 0.5]`), &v))
	assert.Equal(t, V(1, 2), v)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &v))
}

func TestVec_RotateAround(t *testing.T) {
	p := V(10, 0).RotateAround(V(0, 0), math.Pi/2)
	assert.True(t, p.Nearly(V(0, 10), 1e-9), "got %v", p)
}

func TestRect_ContainsAndExpand(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 100}

	assert.True(t, r.Contains(V(100, 100)))
	assert.False(t, r.Contains(V(110, 110)))
	assert.True(t, r.Expand(16).Contains(V(110, 110)))
	assert.Equal(t, V(50, 50), r.Center())
}

func TestRect_Union(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 20, Y: -5, Width: 10, Height: 10}

	assert.Equal(t, Rect{X: 0, Y: -5, Width: 30, Height: 15}, a.Union(b))
	assert.Equal(t, b, Rect{}.Union(b))
}

func TestRect_DistanceAndNormalize(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 50}

	assert.Equal(t, 0.0, r.DistanceTo(V(20, 20)))
	assert.Equal(t, 5.0, r.DistanceTo(V(103, 54)))
	assert.Equal(t, V(0.5, 0.5), r.Normalize(V(50, 25)))
	assert.Equal(t, V(50, 25), r.Denormalize(V(0.5, 0.5)))
}

func TestMatrix_InvertRoundTrip(t *testing.T) {
	m := ShapeTransform(V(40, 60), V(100, 50), math.Pi/3)
	p := V(12, 34)

	back := m.Invert().Apply(m.Apply(p))
	assert.True(t, back.Nearly(p, 1e-9), "got %v", back)
	assert.True(t, m.Multiply(m.Invert()).IsIdentity())
}

func TestShapeTransform_RotatesAroundCenter(t *testing.T) {
	m := ShapeTransform(V(0, 0), V(100, 100), math.Pi)

	// The center is fixed, the top-left corner swaps with the bottom-right.
	assert.True(t, m.Apply(V(50, 50)).Nearly(V(50, 50), 1e-9))
	assert.True(t, m.Apply(V(0, 0)).Nearly(V(100, 100), 1e-9))
}
