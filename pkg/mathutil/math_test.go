package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCeilDiv(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, CeilDiv(0, 5))
	assert.Equal(t, 1, CeilDiv(1, 5))
	assert.Equal(t, 1, CeilDiv(5, 5))
	assert.Equal(t, 2, CeilDiv(6, 5))
}

func TestCeilFrac(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, CeilFrac(0))
	assert.Equal(t, 0, CeilFrac(-3.2))
	assert.Equal(t, 4, CeilFrac(3.2))
	assert.Equal(t, 3, CeilFrac(3.0))
	assert.Equal(t, 0, CeilFrac(math.NaN()))
	assert.Equal(t, 0, CeilFrac(math.Inf(1)))
}

func TestClamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5, Clamp(3, 5, 10))
	assert.Equal(t, 10, Clamp(12, 5, 10))
	assert.Equal(t, 7, Clamp(7, 5, 10))
}

func TestClampFloat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, ClampFloat(-1, 0, 1))
	assert.Equal(t, 1.0, ClampFloat(2, 0, 1))
	assert.Equal(t, 0.5, ClampFloat(0.5, 0, 1))
}
