package renderer

import "github.com/spaghettifunk/lumen/engine/renderer/metadata"

// RendererBackend is the device-facing half of the renderer. The frame
// lifecycle operations are called once each per frame, in order; the
// front-end owns that ordering so backends stay simple and testable.
type RendererBackend interface {
	Initialize() error
	Shutdown()
	Resized(width, height uint32)

	// PrepareFrame blocks until the frame slot's previous submission
	// retired, then claims a presentable image. It returns
	// core.ErrSwapchainBooting when the frame must be skipped.
	PrepareFrame(deltaTime float64) error
	// UpdateResources runs pending resource uploads at the safe point
	// between the fence wait and command recording.
	UpdateResources(fn func() error) error
	BeginRendering() error
	DrawScene(packet *metadata.RenderPacket) error
	EndRendering() error
	Present() error

	WaitIdle() error
}
