package components

import (
	"github.com/go-gl/mathgl/mgl32"
)

/**
 * @brief A free-fly camera driven by a position and Euler angles
 * (pitch, yaw, roll). The view matrix is rebuilt lazily the next
 * time it is read after a mutation.
 */
type Camera struct {
	position      mgl32.Vec3
	eulerRotation mgl32.Vec3
	isDirty       bool
	viewMatrix    mgl32.Mat4
}

// Pitch stays short of straight up or down to avoid gimbal lock.
const pitchLimit = float32(1.55334306) // 89 degrees

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.position = mgl32.Vec3{}
	c.eulerRotation = mgl32.Vec3{}
	c.viewMatrix = mgl32.Ident4()
	c.isDirty = false
}

func (c *Camera) GetPosition() mgl32.Vec3 {
	return c.position
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.position = position
	c.isDirty = true
}

func (c *Camera) GetEulerRotation() mgl32.Vec3 {
	return c.eulerRotation
}

func (c *Camera) SetEulerRotation(rotation mgl32.Vec3) {
	c.eulerRotation = rotation
	c.eulerRotation[0] = mgl32.Clamp(c.eulerRotation[0], -pitchLimit, pitchLimit)
	c.isDirty = true
}

// rotation is yaw about Y then pitch about the rotated X axis. Roll is
// unused by the engine but kept in the Euler triple for symmetry.
func (c *Camera) rotation() mgl32.Mat4 {
	return mgl32.HomogRotate3DY(c.eulerRotation.Y()).
		Mul4(mgl32.HomogRotate3DX(c.eulerRotation.X())).
		Mul4(mgl32.HomogRotate3DZ(c.eulerRotation.Z()))
}

func (c *Camera) GetView() mgl32.Mat4 {
	if c.isDirty {
		world := mgl32.Translate3D(c.position.X(), c.position.Y(), c.position.Z()).Mul4(c.rotation())
		c.viewMatrix = world.Inv()
		c.isDirty = false
	}
	return c.viewMatrix
}

func (c *Camera) Forward() mgl32.Vec3 {
	return c.rotation().Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3()
}

func (c *Camera) Backward() mgl32.Vec3 {
	return c.Forward().Mul(-1)
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.rotation().Mul4x1(mgl32.Vec4{1, 0, 0, 0}).Vec3()
}

func (c *Camera) Left() mgl32.Vec3 {
	return c.Right().Mul(-1)
}

func (c *Camera) MoveForward(amount float32) {
	c.position = c.position.Add(c.Forward().Mul(amount))
	c.isDirty = true
}

func (c *Camera) MoveBackward(amount float32) {
	c.position = c.position.Add(c.Backward().Mul(amount))
	c.isDirty = true
}

func (c *Camera) MoveLeft(amount float32) {
	c.position = c.position.Add(c.Left().Mul(amount))
	c.isDirty = true
}

func (c *Camera) MoveRight(amount float32) {
	c.position = c.position.Add(c.Right().Mul(amount))
	c.isDirty = true
}

func (c *Camera) MoveUp(amount float32) {
	c.position = c.position.Add(mgl32.Vec3{0, 1, 0}.Mul(amount))
	c.isDirty = true
}

func (c *Camera) MoveDown(amount float32) {
	c.position = c.position.Add(mgl32.Vec3{0, -1, 0}.Mul(amount))
	c.isDirty = true
}

func (c *Camera) Yaw(amount float32) {
	c.eulerRotation[1] += amount
	c.isDirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.eulerRotation[0] = mgl32.Clamp(c.eulerRotation[0]+amount, -pitchLimit, pitchLimit)
	c.isDirty = true
}
