package testbed

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/framecore/engine"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
)

// demo is one scene the testbed can run. The engine's renderer and shader
// loader are set on the game before initialize is called.
type demo interface {
	initialize(g *engine.Game) error
	update(deltaTime float64)
	render(frontend *renderer.Frontend, deltaTime float64) error
	onResize(width, height uint32) error
	onShaderChanged(path string) error
	shutdown() error
}

type TestGame struct {
	*engine.Game
}

// NewTestGame builds the game for the demo named in config. A nil config
// uses the defaults.
func NewTestGame(config *engine.ApplicationConfig) (*TestGame, error) {
	if config == nil {
		config = engine.DefaultApplicationConfig()
	}

	var d demo
	switch config.Demo {
	case engine.DemoCube:
		d = newCubeDemo()
	case engine.DemoSpectrum:
		d = newSpectrumDemo()
	default:
		return nil, errors.Newf("unknown demo %q", config.Demo)
	}

	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             d,
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnOnShaderChanged = tg.OnShaderChanged
	tg.FnShutdown = tg.Shutdown
	return tg, nil
}

func (g *TestGame) scene() demo {
	return g.State.(demo)
}

func (g *TestGame) Initialize() error {
	core.LogInfo("starting the %s demo", g.ApplicationConfig.Demo)
	return g.scene().initialize(g.Game)
}

func (g *TestGame) Update(deltaTime float64) error {
	g.scene().update(deltaTime)
	return nil
}

func (g *TestGame) Render(frontend *renderer.Frontend, deltaTime float64) error {
	return g.scene().render(frontend, deltaTime)
}

func (g *TestGame) OnResize(width, height uint32) error {
	core.LogDebug("testbed resized to %dx%d", width, height)
	return g.scene().onResize(width, height)
}

func (g *TestGame) OnShaderChanged(path string) error {
	return g.scene().onShaderChanged(path)
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down the %s demo", g.ApplicationConfig.Demo)
	return g.scene().shutdown()
}
