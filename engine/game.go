package engine

import (
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/vulkan"
)

// Game is the set of callbacks a demo hands to the engine. Renderer and
// Shaders are filled in by the engine before FnInitialize runs.
type Game struct {
	ApplicationConfig *ApplicationConfig
	Renderer          *vulkan.Renderer
	Shaders           *vulkan.ShaderLoader
	State             interface{}

	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnOnShaderChanged OnShaderChanged
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type Render func(frontend *renderer.Frontend, deltaTime float64) error
type OnResize func(width uint32, height uint32) error

// OnShaderChanged is called with the path of a rewritten .spv file. The
// device is idle when it runs.
type OnShaderChanged func(path string) error
type Shutdown func() error
