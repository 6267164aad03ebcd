package renderer

import "github.com/spaghettifunk/framecore/engine/renderer/vulkan"

// Backend is the frame-execution side the frontend drives. vulkan.Renderer
// implements it.
type Backend interface {
	SubmitFrame() vulkan.Status
	SubmitCompute() vulkan.Status
	PresentFrame() vulkan.Status
	OnResize(width, height uint32) error
	Prepared() bool
}

// FramebufferSizer reports the current drawable size in pixels.
type FramebufferSizer interface {
	FramebufferSize() (uint32, uint32)
}

var _ Backend = (*vulkan.Renderer)(nil)
