package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/vulkan"
)

// RecordFunc records one frame's commands against the backend and reports
// how recording went.
type RecordFunc func() vulkan.Status

// Frontend owns the resize-recovery contract: on WINDOW_RESIZED it queries the
// framebuffer size, rebuilds the backend exactly once and abandons the frame.
type Frontend struct {
	backend Backend
	window  FramebufferSizer

	pendingResize bool
	frameNumber   uint64
	resizes       uint64
}

func NewFrontend(backend Backend, window FramebufferSizer) *Frontend {
	return &Frontend{backend: backend, window: window}
}

func (f *Frontend) Backend() Backend { return f.backend }

// FrameNumber counts frames that reached the screen.
func (f *Frontend) FrameNumber() uint64 { return f.frameNumber }

// Resizes counts swapchain rebuilds.
func (f *Frontend) Resizes() uint64 { return f.resizes }

// RequestResize rebuilds the backend before the next frame. The platform
// calls it when the window reports a new size.
func (f *Frontend) RequestResize() {
	f.pendingResize = true
}

// DrawFrame records a graphics frame and submits it.
func (f *Frontend) DrawFrame(record RecordFunc) error {
	if err := f.settle(); err != nil {
		return err
	}
	status := record()
	if status == vulkan.StatusOK {
		status = f.backend.SubmitFrame()
	}
	return f.finish(status)
}

// DispatchFrame records a compute frame, submits it to the compute queue and
// presents the result.
func (f *Frontend) DispatchFrame(record RecordFunc) error {
	if err := f.settle(); err != nil {
		return err
	}
	status := record()
	if status == vulkan.StatusOK {
		status = f.backend.SubmitCompute()
	}
	if status == vulkan.StatusOK {
		status = f.backend.PresentFrame()
	}
	return f.finish(status)
}

// settle performs a deferred resize. The frame is skipped until it succeeds.
func (f *Frontend) settle() error {
	if !f.pendingResize {
		return nil
	}
	if err := f.resize(); err != nil {
		return err
	}
	if f.pendingResize {
		return core.ErrSwapchainBooting
	}
	return nil
}

func (f *Frontend) finish(status vulkan.Status) error {
	switch status {
	case vulkan.StatusOK:
		f.frameNumber++
		return nil
	case vulkan.StatusWindowResized:
		core.LogWarn("swapchain out of date, recreating")
		f.pendingResize = true
		if err := f.resize(); err != nil {
			return err
		}
		return core.ErrSwapchainBooting
	case vulkan.StatusNotPrepared:
		return core.ErrNotPrepared
	}
	return errors.Newf("frame %d failed with status %s", f.frameNumber, status)
}

// resize rebuilds the backend for the current framebuffer size. A zero size
// (minimised window) leaves the resize pending.
func (f *Frontend) resize() error {
	width, height := f.window.FramebufferSize()
	if width == 0 || height == 0 {
		core.LogDebug("framebuffer is %dx%d, deferring resize", width, height)
		return nil
	}
	f.pendingResize = false
	if err := f.backend.OnResize(width, height); err != nil {
		return errors.Wrapf(err, "failed to resize to %dx%d", width, height)
	}
	f.resizes++
	return nil
}
