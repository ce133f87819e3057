package renderer

import (
	"errors"
	"sync"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

type Renderer struct {
	backend     RendererBackend
	frameNumber uint64
}

var initRenderer sync.Once
var renderer *Renderer

// Initialize creates the renderer with the Vulkan backend.
func Initialize(window vulkan.Window, config *vulkan.BackendConfig) error {
	initRenderer.Do(func() {
		renderer = &Renderer{
			backend: vulkan.New(window, config),
		}
	})
	return renderer.backend.Initialize()
}

// InitializeWithBackend wires a custom backend. Used by tests.
func InitializeWithBackend(backend RendererBackend) error {
	renderer = &Renderer{backend: backend}
	return renderer.backend.Initialize()
}

func Shutdown() {
	renderer.backend.Shutdown()
}

func OnResize(width, height uint32) {
	renderer.backend.Resized(width, height)
}

func WaitIdle() error {
	return renderer.backend.WaitIdle()
}

// FrameNumber returns the number of frames fully submitted so far.
func FrameNumber() uint64 {
	return renderer.frameNumber
}

// Backend returns the active backend. The systems use it to reach the
// Vulkan arena and descriptor table.
func Backend() RendererBackend {
	return renderer.backend
}

// DrawFrame runs one full frame: slot gating, resource uploads, the two
// draw passes and presentation. A frame skipped because the swapchain is
// rebuilding is not an error and not counted.
func DrawFrame(deltaTime float64, packet *metadata.RenderPacket, uploads func() error) error {
	if err := renderer.backend.PrepareFrame(deltaTime); err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			return nil
		}
		core.LogError(err.Error())
		return err
	}

	if err := renderer.backend.UpdateResources(uploads); err != nil {
		core.LogError(err.Error())
		return err
	}

	if err := renderer.backend.BeginRendering(); err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := renderer.backend.DrawScene(packet); err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := renderer.backend.EndRendering(); err != nil {
		core.LogError(err.Error())
		return err
	}

	if err := renderer.backend.Present(); err != nil {
		core.LogError(err.Error())
		return err
	}
	renderer.frameNumber++
	return nil
}
