package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func assertVec3InDelta(t *testing.T, expected, actual mgl32.Vec3) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, expected[i], actual[i], 1e-5)
	}
}

func TestCameraDefaultViewIsIdentity(t *testing.T) {
	camera := NewCamera()
	assert.Equal(t, mgl32.Ident4(), camera.GetView())
}

func TestCameraViewInvertsWorldTransform(t *testing.T) {
	camera := NewCamera()
	camera.SetPosition(mgl32.Vec3{1, 2, 3})
	camera.Yaw(0.7)

	// The camera's own position must map to the view space origin.
	origin := camera.GetView().Mul4x1(mgl32.Vec4{1, 2, 3, 1})
	assertVec3InDelta(t, mgl32.Vec3{}, origin.Vec3())
}

func TestCameraYawTurnsForwardVector(t *testing.T) {
	camera := NewCamera()
	assertVec3InDelta(t, mgl32.Vec3{0, 0, -1}, camera.Forward())

	camera.Yaw(mgl32.DegToRad(90))
	assertVec3InDelta(t, mgl32.Vec3{-1, 0, 0}, camera.Forward())
	assertVec3InDelta(t, mgl32.Vec3{0, 0, -1}, camera.Right())
}

func TestCameraPitchIsClamped(t *testing.T) {
	camera := NewCamera()
	camera.Pitch(10)
	assert.InDelta(t, pitchLimit, camera.GetEulerRotation().X(), 1e-5)
	camera.Pitch(-20)
	assert.InDelta(t, -pitchLimit, camera.GetEulerRotation().X(), 1e-5)
}

func TestCameraMoveFollowsHeading(t *testing.T) {
	camera := NewCamera()
	camera.Yaw(mgl32.DegToRad(90))
	camera.MoveForward(2)
	assertVec3InDelta(t, mgl32.Vec3{-2, 0, 0}, camera.GetPosition())

	camera.MoveUp(1)
	assertVec3InDelta(t, mgl32.Vec3{-2, 1, 0}, camera.GetPosition())
}
