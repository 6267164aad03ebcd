package testbed

import (
	"encoding/binary"
	gomath "math"
	"path/filepath"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/math"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/vulkan"
)

const (
	spectrumShader = "spectrum.comp.spv"
	// local_size_x and local_size_y of the compute shader
	spectrumWorkgroup = 16
)

var (
	computeStage   = vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	colorAspect    = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	spectrumPushes = []vk.PushConstantRange{{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		Offset:     0,
		Size:       16,
	}}
)

// spectrumPushConstants packs the elapsed time and the image size.
func spectrumPushConstants(elapsed float64, width, height uint32) []byte {
	out := make([]byte, 0, 16)
	out = binary.LittleEndian.AppendUint32(out, gomath.Float32bits(float32(elapsed)))
	out = binary.LittleEndian.AppendUint32(out, width)
	out = binary.LittleEndian.AppendUint32(out, height)
	return binary.LittleEndian.AppendUint32(out, 0)
}

// imageLayouts tracks the layout each swapchain image was left in.
type imageLayouts []vk.ImageLayout

func newImageLayouts(count uint32) imageLayouts {
	l := make(imageLayouts, count)
	l.reset()
	return l
}

func (l imageLayouts) reset() {
	for i := range l {
		l[i] = vk.ImageLayoutUndefined
	}
}

// transition returns the layout image i is in and records it as next.
func (l imageLayouts) transition(i uint32, next vk.ImageLayout) vk.ImageLayout {
	prev := l[i]
	l[i] = next
	return prev
}

/**
 * @brief Fills the swapchain image with a moving colour spectrum from a
 * compute shader. The image is bound as a storage image, so no render pass
 * is involved.
 */
type spectrumDemo struct {
	renderer *vulkan.Renderer
	loader   *vulkan.ShaderLoader

	shaders  *vulkan.ShaderSet
	pipeline *vulkan.Pipeline
	layouts  imageLayouts

	elapsed float64
}

func newSpectrumDemo() *spectrumDemo {
	return &spectrumDemo{}
}

func (s *spectrumDemo) initialize(g *engine.Game) error {
	s.renderer = g.Renderer
	s.loader = g.Shaders
	s.layouts = newImageLayouts(s.renderer.Context().Swapchain.ImageCount())

	var err error
	s.shaders, s.pipeline, err = s.buildPipeline()
	return err
}

// descriptorSetCount is one set per swapchain image, capped by what the
// descriptor pool can replicate.
func descriptorSetCount(imageCount uint32) uint32 {
	return math.Clamp(imageCount, 1, vulkan.MaxFrameDescriptorSets)
}

func (s *spectrumDemo) buildPipeline() (*vulkan.ShaderSet, *vulkan.Pipeline, error) {
	stage, err := s.loader.Stage(spectrumShader, vk.ShaderStageComputeBit)
	if err != nil {
		return nil, nil, err
	}
	resources := vulkan.ResourceConfiguration{
		Types:    []vk.DescriptorType{vk.DescriptorTypeStorageImage},
		Bindings: []uint32{0},
		Counts:   []uint32{1},
		Stages:   []vk.ShaderStageFlags{vk.ShaderStageFlags(vk.ShaderStageComputeBit)},
	}
	cfg := vulkan.ShaderConfiguration{
		Stages:        []vulkan.ShaderStageConfig{stage},
		PushConstants: spectrumPushes,
	}

	device := s.renderer.Device()
	setCount := descriptorSetCount(s.renderer.Context().Swapchain.ImageCount())
	set, err := vulkan.NewShaderSet(device, cfg, resources, setCount)
	if err != nil {
		return nil, nil, err
	}
	pipeline, err := vulkan.NewComputePipeline(device, set)
	if err != nil {
		set.Destroy()
		return nil, nil, err
	}
	return set, pipeline, nil
}

func (s *spectrumDemo) update(deltaTime float64) {
	s.elapsed += deltaTime
}

func (s *spectrumDemo) render(frontend *renderer.Frontend, _ float64) error {
	return frontend.DispatchFrame(func() vulkan.Status {
		return s.renderer.RecordComputeCommands(s.record)
	})
}

func (s *spectrumDemo) record(cmd *vulkan.CommandBuffer, image vulkan.SwapchainImage, index uint32) error {
	if int(index) >= len(s.layouts) {
		return errors.Newf("swapchain image %d is not tracked (%d images)", index, len(s.layouts))
	}
	device := s.renderer.Device()
	resources := s.shaders.Resources
	setIndex := index % uint32(len(resources.Sets))

	// The compute queue is idle between frames, so the set can be rewritten.
	resources.Update(setIndex, []vulkan.DescriptorInfo{{
		Type: vk.DescriptorTypeStorageImage,
		Image: vk.DescriptorImageInfo{
			ImageView:   image.View.Handle,
			ImageLayout: vk.ImageLayoutGeneral,
		},
	}})

	prev := s.layouts.transition(index, vk.ImageLayoutGeneral)
	device.InsertImageMemoryBarrier(cmd, image.Image.Handle, prev, vk.ImageLayoutGeneral, colorAspect, vulkan.AllCommandsStage, computeStage)

	width, height := image.Image.Width, image.Image.Height
	s.pipeline.Bind(cmd)
	resources.Bind(cmd, setIndex)
	s.pipeline.PushConstants(cmd, vk.ShaderStageFlags(vk.ShaderStageComputeBit), 0, spectrumPushConstants(s.elapsed, width, height))
	cmd.Dispatch(math.DivCeil(width, spectrumWorkgroup), math.DivCeil(height, spectrumWorkgroup), 1)

	s.layouts.transition(index, vk.ImageLayoutPresentSrc)
	device.InsertImageMemoryBarrier(cmd, image.Image.Handle, vk.ImageLayoutGeneral, vk.ImageLayoutPresentSrc, colorAspect, computeStage, vulkan.AllCommandsStage)
	return nil
}

// Recreated swapchain images start out UNDEFINED.
func (s *spectrumDemo) onResize(uint32, uint32) error {
	count := s.renderer.Context().Swapchain.ImageCount()
	if uint32(len(s.layouts)) != count {
		s.layouts = newImageLayouts(count)
		return nil
	}
	s.layouts.reset()
	return nil
}

func (s *spectrumDemo) onShaderChanged(path string) error {
	if filepath.Base(path) != spectrumShader {
		return nil
	}
	set, pipeline, err := s.buildPipeline()
	if err != nil {
		return errors.Wrapf(err, "keeping the previous spectrum pipeline")
	}
	s.destroyPipeline()
	s.shaders, s.pipeline = set, pipeline
	core.LogInfo("spectrum pipeline rebuilt")
	return nil
}

func (s *spectrumDemo) destroyPipeline() {
	if s.pipeline != nil {
		s.pipeline.Destroy()
		s.pipeline = nil
	}
	if s.shaders != nil {
		s.shaders.Destroy()
		s.shaders = nil
	}
}

func (s *spectrumDemo) shutdown() error {
	s.destroyPipeline()
	return nil
}
