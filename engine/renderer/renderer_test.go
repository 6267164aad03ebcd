package renderer

import (
	"io"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeBackend struct {
	submit, compute, present []vulkan.Status
	resizes                  [][2]uint32
	resizeErr                error
	prepared                 bool
	calls                    []string
}

func next(q *[]vulkan.Status) vulkan.Status {
	if len(*q) == 0 {
		return vulkan.StatusOK
	}
	s := (*q)[0]
	*q = (*q)[1:]
	return s
}

func (b *fakeBackend) SubmitFrame() vulkan.Status {
	b.calls = append(b.calls, "submit")
	return next(&b.submit)
}

func (b *fakeBackend) SubmitCompute() vulkan.Status {
	b.calls = append(b.calls, "compute")
	return next(&b.compute)
}

func (b *fakeBackend) PresentFrame() vulkan.Status {
	b.calls = append(b.calls, "present")
	return next(&b.present)
}

func (b *fakeBackend) OnResize(w, h uint32) error {
	b.calls = append(b.calls, "resize")
	b.resizes = append(b.resizes, [2]uint32{w, h})
	if b.resizeErr != nil {
		return b.resizeErr
	}
	b.prepared = true
	return nil
}

func (b *fakeBackend) Prepared() bool { return b.prepared }

type fakeWindow struct{ w, h uint32 }

func (w *fakeWindow) FramebufferSize() (uint32, uint32) { return w.w, w.h }

func returning(s vulkan.Status) RecordFunc {
	return func() vulkan.Status { return s }
}

func TestDrawFrameSubmits(t *testing.T) {
	b := &fakeBackend{prepared: true}
	f := NewFrontend(b, &fakeWindow{640, 480})

	require.NoError(t, f.DrawFrame(returning(vulkan.StatusOK)))
	assert.Equal(t, []string{"submit"}, b.calls)
	assert.Equal(t, uint64(1), f.FrameNumber())
}

func TestResizedRecordTriggersOneResize(t *testing.T) {
	b := &fakeBackend{}
	win := &fakeWindow{800, 600}
	f := NewFrontend(b, win)

	err := f.DrawFrame(returning(vulkan.StatusWindowResized))
	assert.True(t, errors.Is(err, core.ErrSwapchainBooting))
	assert.Equal(t, [][2]uint32{{800, 600}}, b.resizes)
	assert.NotContains(t, b.calls, "submit")

	require.NoError(t, f.DrawFrame(returning(vulkan.StatusOK)))
	assert.Len(t, b.resizes, 1)
	assert.Equal(t, uint64(1), f.Resizes())
}

func TestResizedPresentTriggersOneResize(t *testing.T) {
	b := &fakeBackend{submit: []vulkan.Status{vulkan.StatusWindowResized}}
	f := NewFrontend(b, &fakeWindow{1024, 768})

	err := f.DrawFrame(returning(vulkan.StatusOK))
	assert.True(t, errors.Is(err, core.ErrSwapchainBooting))
	assert.Equal(t, []string{"submit", "resize"}, b.calls)
	assert.Zero(t, f.FrameNumber())
}

func TestFatalAndNotPrepared(t *testing.T) {
	b := &fakeBackend{}
	f := NewFrontend(b, &fakeWindow{640, 480})

	err := f.DrawFrame(returning(vulkan.StatusFatal))
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrSwapchainBooting))
	assert.Contains(t, err.Error(), "FATAL")

	err = f.DrawFrame(returning(vulkan.StatusNotPrepared))
	assert.True(t, errors.Is(err, core.ErrNotPrepared))
	assert.Empty(t, b.resizes)
}

func TestMinimisedWindowDefersResize(t *testing.T) {
	b := &fakeBackend{}
	win := &fakeWindow{0, 0}
	f := NewFrontend(b, win)

	err := f.DrawFrame(returning(vulkan.StatusWindowResized))
	assert.True(t, errors.Is(err, core.ErrSwapchainBooting))
	assert.Empty(t, b.resizes)

	recorded := false
	err = f.DrawFrame(func() vulkan.Status { recorded = true; return vulkan.StatusOK })
	assert.True(t, errors.Is(err, core.ErrSwapchainBooting))
	assert.False(t, recorded)

	win.w, win.h = 320, 200
	require.NoError(t, f.DrawFrame(returning(vulkan.StatusOK)))
	assert.Equal(t, [][2]uint32{{320, 200}}, b.resizes)
}

func TestRequestResize(t *testing.T) {
	b := &fakeBackend{prepared: true}
	f := NewFrontend(b, &fakeWindow{640, 480})

	f.RequestResize()
	require.NoError(t, f.DrawFrame(returning(vulkan.StatusOK)))
	assert.Equal(t, []string{"resize", "submit"}, b.calls)
}

func TestResizeFailureIsReturned(t *testing.T) {
	b := &fakeBackend{resizeErr: errors.New("out of device memory")}
	f := NewFrontend(b, &fakeWindow{640, 480})

	err := f.DrawFrame(returning(vulkan.StatusWindowResized))
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrSwapchainBooting))
	assert.Contains(t, err.Error(), "640x480")
}

func TestDispatchFrame(t *testing.T) {
	b := &fakeBackend{prepared: true}
	f := NewFrontend(b, &fakeWindow{640, 480})

	require.NoError(t, f.DispatchFrame(returning(vulkan.StatusOK)))
	assert.Equal(t, []string{"compute", "present"}, b.calls)

	b.calls = nil
	b.present = []vulkan.Status{vulkan.StatusWindowResized}
	err := f.DispatchFrame(returning(vulkan.StatusOK))
	assert.True(t, errors.Is(err, core.ErrSwapchainBooting))
	assert.Equal(t, []string{"compute", "present", "resize"}, b.calls)
}
