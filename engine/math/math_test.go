package math

import (
	"encoding/binary"
	m "math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-5

func TestIdentityMul(t *testing.T) {
	r := NewMat4EulerXYZ(0.3, 1.1, -0.7)
	assert.Equal(t, r, NewMat4Identity().Mul(r))
	assert.Equal(t, r, r.Mul(NewMat4Identity()))
}

func TestMulAppliesRightOperandFirst(t *testing.T) {
	p := NewVec3(1, 0, 0)
	rz := NewMat4EulerZ(K_PI / 2)
	rx := NewMat4EulerX(K_PI / 2)

	// Z turns +X into +Y, then X turns +Y into +Z.
	assert.True(t, p.Transform(rx.Mul(rz)).Compare(NewVec3(0, 0, 1), tolerance))
	assert.True(t, p.Transform(rz).Compare(NewVec3(0, 1, 0), tolerance))
}

func TestLookAtMovesEyeToOrigin(t *testing.T) {
	eye := NewVec3(0, 2, 5)
	view := NewMat4LookAt(eye, NewVec3(0, 0, 0), NewVec3(0, 1, 0))

	assert.True(t, eye.Transform(view).Compare(NewVec3(0, 0, 0), tolerance))
	// The target lies straight ahead, down -Z.
	target := NewVec3(0, 0, 0).Transform(view)
	assert.InDelta(t, 0, target.X, tolerance)
	assert.InDelta(t, 0, target.Y, tolerance)
	assert.InDelta(t, -eye.Length(), target.Z, tolerance)
}

func TestPerspectiveDepthRange(t *testing.T) {
	proj := NewMat4Perspective(DegToRad(60), 4.0/3.0, 0.1, 100)

	near := NewVec3(0, 0, -0.1).Transform(proj)
	far := NewVec3(0, 0, -100).Transform(proj)
	assert.InDelta(t, 0, near.Z, tolerance)
	assert.InDelta(t, 1, far.Z, 1e-4)

	// Vulkan clip space has Y pointing down.
	up := NewVec3(0, 1, -1).Transform(proj)
	assert.Less(t, up.Y, float32(0))
}

func TestMat4Bytes(t *testing.T) {
	b := NewMat4Identity().Bytes()
	assert.Len(t, b, 64)
	assert.Equal(t, float32(1), m.Float32frombits(binary.LittleEndian.Uint32(b[0:])))
	assert.Equal(t, float32(0), m.Float32frombits(binary.LittleEndian.Uint32(b[4:])))
	assert.Equal(t, float32(1), m.Float32frombits(binary.LittleEndian.Uint32(b[60:])))
}

func TestClampAndDivCeil(t *testing.T) {
	assert.Equal(t, 5, Clamp(9, 1, 5))
	assert.Equal(t, float32(1), Clamp(float32(-2), 1, 5))
	assert.Equal(t, uint32(40), DivCeil(uint32(640), 16))
	assert.Equal(t, uint32(38), DivCeil(uint32(600), 16))
	assert.Equal(t, uint32(1), DivCeil(uint32(1), 16))
}
