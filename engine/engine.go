package engine

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	config       *Config
	gameInstance *Game
	isRunning    bool
	isSuspended  bool

	platform      *platform.Platform
	systemManager *systems.SystemManager

	width      uint32
	height     uint32
	clock      *core.Clock
	lastTime   float64
	statsTimer float64

	shutdownOnce sync.Once
}

func New(config *Config, g *Game) (*Engine, error) {
	if g.FnInitialize == nil || g.FnUpdate == nil || g.FnRender == nil || g.FnOnResize == nil {
		return nil, fmt.Errorf("game instance is missing one of its hooks")
	}
	g.ApplicationConfig = &config.Application

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     platform.New(),
		isRunning:    true,
		isSuspended:  false,
		width:        config.Application.StartWidth,
		height:       config.Application.StartHeight,
	}, nil
}

// Initialize brings the stack up in dependency order: events and input,
// the window, the renderer backend, then the resource systems.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	if err := e.platform.Startup(e.config.Application.Name,
		e.config.Application.StartPosX,
		e.config.Application.StartPosY,
		e.width,
		e.height); err != nil {
		return err
	}

	vertexShader, fragmentShader, err := e.loadShaders()
	if err != nil {
		return err
	}

	if err := renderer.Initialize(e.platform, &vulkan.BackendConfig{
		ApplicationName:       e.config.Application.Name,
		Debug:                 e.config.Renderer.Debug,
		VertexShader:          vertexShader,
		FragmentShader:        fragmentShader,
		MaxBuffers:            e.config.Renderer.MaxBuffers,
		MaxImages:             e.config.Renderer.MaxImages,
		MaxSamplers:           e.config.Renderer.MaxSamplers,
		MaxMeshes:             e.config.Renderer.MaxMeshes,
		MaxBoundSamplers:      e.config.Renderer.MaxBoundSamplers,
		MaxBoundStorageImages: e.config.Renderer.MaxBoundStorageImages,
		MaxBoundSampledImages: e.config.Renderer.MaxBoundSampledImages,
		MaxDrawsPerFrame:      e.config.Renderer.MaxDrawsPerFrame,
	}); err != nil {
		return err
	}

	gpu, ok := renderer.Backend().(systems.GPU)
	if !ok {
		return fmt.Errorf("renderer backend does not expose the resource interface")
	}
	sm, err := systems.NewSystemManager(&systems.SystemManagerConfig{
		AssetsDir:        e.config.Assets.Dir,
		MaxMeshCount:     e.config.Systems.MaxMeshCount,
		MaxMaterialCount: e.config.Systems.MaxMaterialCount,
		MaxTextureCount:  e.config.Systems.MaxTextureCount,
	}, gpu)
	if err != nil {
		return err
	}
	e.systemManager = sm
	e.gameInstance.SystemManager = sm

	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}
	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) loadShaders() (vertex []byte, fragment []byte, err error) {
	loader := &loaders.ShaderLoader{}

	vertexResource, err := loader.Load(filepath.Join(e.config.Assets.ShaderDir, "draw.vert.spv"), metadata.ResourceTypeShader, nil)
	if err != nil {
		return nil, nil, err
	}
	fragmentResource, err := loader.Load(filepath.Join(e.config.Assets.ShaderDir, "draw.frag.spv"), metadata.ResourceTypeShader, nil)
	if err != nil {
		return nil, nil, err
	}
	return vertexResource.Data.([]byte), fragmentResource.Data.([]byte), nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.ElapsedSeconds()

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	// process events around the engine on their own goroutine
	go core.ProcessEvents()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
		}

		if e.isSuspended {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.ElapsedSeconds()
		delta := currentTime - e.lastTime
		frameStartTime := platform.GetAbsoluteTime()

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogFatal("game update failed, shutting down")
			e.isRunning = false
			break
		}

		// re-import assets that changed on disk before touching the frame
		e.systemManager.Update()

		packet, err := e.gameInstance.FnRender(delta)
		if err != nil {
			core.LogFatal("game render failed, shutting down")
			e.isRunning = false
			break
		}

		if err := renderer.DrawFrame(delta, packet, nil); err != nil {
			core.LogError("frame %d failed: %s", renderer.FrameNumber(), err.Error())
			e.isRunning = false
			break
		}

		core.MetricsUpdate(platform.GetAbsoluteTime() - frameStartTime)
		e.statsTimer += delta
		if e.statsTimer >= 5.0 {
			fps, frameMS := core.MetricsFrame()
			core.LogDebug("frame avg %.2f ms (%.0f fps), worst %.2f ms", frameMS, fps, core.MetricsWorstFrame())
			e.statsTimer = 0
		}

		// Input state copying happens after everything that may record
		// input for this frame.
		core.InputUpdate(delta)

		e.lastTime = currentTime
	}

	return e.Shutdown()
}

// Shutdown tears the stack down in reverse initialization order. Safe to
// call from a signal handler and from the run loop; only the first call
// does the work.
func (e *Engine) Shutdown() error {
	var shutdownErr error
	e.shutdownOnce.Do(func() {
		e.currentStage = EngineStageShuttingDown
		e.isRunning = false

		if err := renderer.WaitIdle(); err != nil {
			core.LogError(err.Error())
			shutdownErr = err
		}
		if e.systemManager != nil {
			e.systemManager.Shutdown()
		}
		renderer.Shutdown()

		if err := core.EventSystemShutdown(); err != nil {
			shutdownErr = err
		}
		if err := core.InputShutdown(); err != nil {
			shutdownErr = err
		}
		core.MetricsShutdown()
		if err := e.platform.Shutdown(); err != nil {
			shutdownErr = err
		}
	})
	return shutdownErr
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down")
		e.isRunning = false
	}
}

func (e *Engine) onKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	if ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be
		// other listeners.
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_APPLICATION_QUIT,
		})
	}
}

func (e *Engine) onResized(context core.EventContext) {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	width := se.WindowWidth
	height := se.WindowHeight
	if width == e.width && height == e.height {
		return
	}
	e.width = width
	e.height = height
	core.LogDebug("window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending application")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("window restored, resuming application")
		e.isSuspended = false
	}
	if err := e.gameInstance.FnOnResize(width, height); err != nil {
		core.LogError(err.Error())
	}
	renderer.OnResize(width, height)
}
