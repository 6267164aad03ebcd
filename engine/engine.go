package engine

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/framecore/engine/assets"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/platform"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// metricsLogInterval is how often, in seconds, frame timings are logged.
const metricsLogInterval = 1.0

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	stopRequest  atomic.Bool

	platform *platform.Platform
	renderer *vulkan.Renderer
	frontend *renderer.Frontend
	watcher  *assets.ShaderWatcher

	width       uint32
	height      uint32
	clock       *core.Clock
	metrics     *core.Metrics
	lastTime    float64
	lastReport  float64
	lastResizes uint64
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	if err := g.ApplicationConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "application config")
	}
	core.SetLogLevel(g.ApplicationConfig.Level())

	return &Engine{
		currentStage: EngineStageBootComplete,
		gameInstance: g,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		platform:     platform.New(),
		isRunning:    true,
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}, nil
}

func (e *Engine) Stage() Stage { return e.currentStage }

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	cfg := e.gameInstance.ApplicationConfig

	if !core.EventInitialize() {
		return errors.New("failed to initialize the event system")
	}
	e.registerEvents()

	if err := e.platform.Startup(cfg.Name, cfg.StartPosX, cfg.StartPosY, cfg.StartWidth, cfg.StartHeight); err != nil {
		return err
	}

	driver, err := vulkan.NewVulkanDriver(e.platform.VulkanProcAddr())
	if err != nil {
		return err
	}
	e.renderer, err = vulkan.NewRenderer(driver, cfg.Renderer)
	if err != nil {
		return err
	}
	if err := e.renderer.Init(cfg.Name, e.platform); err != nil {
		return err
	}
	e.frontend = renderer.NewFrontend(e.renderer, e.platform)
	e.width, e.height = e.renderer.FramebufferSize()

	if cfg.WatchShaders {
		if err := e.startShaderWatcher(cfg.ShaderDir); err != nil {
			core.LogWarn("shader hot reload disabled: %v", err)
		}
	}

	e.gameInstance.Renderer = e.renderer
	e.gameInstance.Shaders = vulkan.NewShaderLoader(cfg.ShaderDir)
	if err := e.gameInstance.FnInitialize(); err != nil {
		return errors.Wrap(err, "game initialize")
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) startShaderWatcher(dir string) error {
	w, err := assets.NewShaderWatcher()
	if err != nil {
		return err
	}
	if err := w.Watch(dir); err != nil {
		_ = w.Close()
		return err
	}
	e.watcher = w
	return nil
}

func (e *Engine) registerEvents() {
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_KEY_RELEASED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
}

// Stop asks the run loop to exit after the current frame. It is safe to call
// from any goroutine.
func (e *Engine) Stop() {
	e.stopRequest.Store(true)
}

func (e *Engine) Run() error {
	defer reportPanic()

	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() || e.stopRequest.Load() {
			e.isRunning = false
			break
		}
		if e.isSuspended {
			e.platform.WaitMessages()
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.AbsoluteTime()

		if err := e.drainShaderChanges(); err != nil {
			return err
		}
		if err := e.frame(delta); err != nil {
			return err
		}

		e.metrics.Update(e.platform.AbsoluteTime() - frameStartTime)
		if currentTime-e.lastReport >= metricsLogInterval {
			fps, frameTime := e.metrics.Frame()
			core.LogDebug("%.1f fps, %.3f ms/frame", fps, frameTime)
			e.lastReport = currentTime
		}
		e.lastTime = currentTime
	}
	return nil
}

// frame runs one update and render. A frame abandoned for swapchain
// recreation is not an error.
func (e *Engine) frame(delta float64) error {
	g := e.gameInstance
	if err := g.FnUpdate(delta); err != nil {
		core.LogError("Game update failed, shutting down.")
		return errors.Wrap(err, "game update")
	}

	err := g.FnRender(e.frontend, delta)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrSwapchainBooting):
		core.LogDebug("frame skipped while the swapchain reboots")
	case errors.Is(err, core.ErrNotPrepared):
		e.frontend.RequestResize()
	default:
		core.LogError("Game render failed, shutting down.")
		return errors.Wrap(err, "game render")
	}

	if n := e.frontend.Resizes(); n != e.lastResizes {
		e.lastResizes = n
		w, h := e.framebufferSize()
		if g.FnOnResize != nil {
			if err := g.FnOnResize(w, h); err != nil {
				return errors.Wrap(err, "game resize")
			}
		}
	}
	return nil
}

// drainShaderChanges hands every pending shader change to the game with the
// device idle.
func (e *Engine) drainShaderChanges() error {
	if e.watcher == nil {
		return nil
	}
	for {
		select {
		case path, ok := <-e.watcher.Changes():
			if !ok {
				e.watcher = nil
				return nil
			}
			if err := e.shaderChanged(path); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (e *Engine) shaderChanged(path string) error {
	core.LogInfo("shader changed: %s", path)
	ctx := core.EventContext{}
	ctx.Data.C = path
	core.EventFire(core.EVENT_CODE_SHADER_CHANGED, e, ctx)

	if e.gameInstance.FnOnShaderChanged == nil {
		return nil
	}
	if e.renderer != nil && e.renderer.Device() != nil {
		if err := e.renderer.Device().WaitIdle(); err != nil {
			return err
		}
	}
	if err := e.gameInstance.FnOnShaderChanged(path); err != nil {
		// A broken shader keeps the old pipeline running.
		core.LogError("reloading %s failed: %v", path, err)
	}
	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown

	if e.renderer != nil && e.renderer.Device() != nil {
		if err := e.renderer.Device().WaitIdle(); err != nil {
			core.LogWarn("shutdown: %v", err)
		}
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown: %v", err)
		}
	}
	if e.watcher != nil {
		_ = e.watcher.Close()
		e.watcher = nil
	}
	if e.renderer != nil {
		e.renderer.Cleanup()
	}
	e.platform.Shutdown()
	return core.EventShutdown()
}

// framebufferSize is the size the swapchain was last built for.
func (e *Engine) framebufferSize() (uint32, uint32) {
	if e.renderer != nil {
		return e.renderer.FramebufferSize()
	}
	return e.width, e.height
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func reportPanic() {
	r := recover()
	if r == nil {
		return
	}
	if core.IsAssertionFailure(r) {
		core.LogError("contract violation, aborting: %v", r)
	} else {
		core.LogError("unexpected panic: %v", r)
	}
	panic(r)
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	keyCode := context.Data.U16[0]
	if code == core.EVENT_CODE_KEY_PRESSED {
		core.LogDebug("key %d pressed", keyCode)
	} else {
		core.LogDebug("key %d released", keyCode)
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	width := context.Data.U32[0]
	height := context.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.frontend != nil {
		e.frontend.RequestResize()
	}
	return true
}
