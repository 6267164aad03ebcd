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
	cubeVertexShader   = "cube.vert.spv"
	cubeFragmentShader = "cube.frag.spv"
	// radians per second around each axis
	cubeSpin = 0.8
)

// PosColorVertex is the vertex layout of the cube: a position followed by a
// packed colour.
type PosColorVertex struct {
	X, Y, Z float32
	ABGR    uint32
}

const posColorVertexSize = 16

var cubeVertices = []PosColorVertex{
	{-1, 1, 1, 0xff000000},
	{1, 1, 1, 0xff0000ff},
	{-1, -1, 1, 0xff00ff00},
	{1, -1, 1, 0xff00ffff},
	{-1, 1, -1, 0xffff0000},
	{1, 1, -1, 0xffff00ff},
	{-1, -1, -1, 0xffffff00},
	{1, -1, -1, 0xffffffff},
}

var cubeIndices = []uint16{
	0, 1, 2, // front
	1, 3, 2,
	4, 6, 5, // back
	5, 6, 7,
	0, 2, 4, // left
	4, 2, 6,
	1, 5, 3, // right
	5, 7, 3,
	0, 4, 1, // top
	4, 5, 1,
	2, 3, 6, // bottom
	6, 3, 7,
}

func encodeVertices(vertices []PosColorVertex) []byte {
	out := make([]byte, 0, len(vertices)*posColorVertexSize)
	for _, v := range vertices {
		out = binary.LittleEndian.AppendUint32(out, gomath.Float32bits(v.X))
		out = binary.LittleEndian.AppendUint32(out, gomath.Float32bits(v.Y))
		out = binary.LittleEndian.AppendUint32(out, gomath.Float32bits(v.Z))
		out = binary.LittleEndian.AppendUint32(out, v.ABGR)
	}
	return out
}

func encodeIndices(indices []uint16) []byte {
	out := make([]byte, 0, len(indices)*2)
	for _, i := range indices {
		out = binary.LittleEndian.AppendUint16(out, i)
	}
	return out
}

func cubeShaderConfiguration(loader *vulkan.ShaderLoader) (vulkan.ShaderConfiguration, error) {
	vert, err := loader.Stage(cubeVertexShader, vk.ShaderStageVertexBit)
	if err != nil {
		return vulkan.ShaderConfiguration{}, err
	}
	frag, err := loader.Stage(cubeFragmentShader, vk.ShaderStageFragmentBit)
	if err != nil {
		return vulkan.ShaderConfiguration{}, err
	}
	return vulkan.ShaderConfiguration{
		Stages: []vulkan.ShaderStageConfig{vert, frag},
		Bindings: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    posColorVertexSize,
			InputRate: vk.VertexInputRateVertex,
		}},
		Attributes: []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR8g8b8a8Unorm, Offset: 12},
		},
		PushConstants: []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
			Offset:     0,
			Size:       64,
		}},
	}, nil
}

// isCubeShader reports whether path is one of the cube's compiled stages.
func isCubeShader(path string) bool {
	name := filepath.Base(path)
	return name == cubeVertexShader || name == cubeFragmentShader
}

// cubeMVP spins the cube about the origin and views it from a fixed eye.
func cubeMVP(elapsed float64, width, height uint32) math.Mat4 {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	angle := float32(elapsed) * cubeSpin
	model := math.NewMat4EulerXYZ(angle, angle*0.7, 0)
	view := math.NewMat4LookAt(math.NewVec3(0, 0, 8), math.NewVec3(0, 0, 0), math.NewVec3(0, 1, 0))
	proj := math.NewMat4Perspective(math.DegToRad(60), aspect, 0.1, 100)
	return proj.Mul(view).Mul(model)
}

/**
 * @brief Draws a spinning, vertex-coloured cube through the graphics path.
 */
type cubeDemo struct {
	renderer *vulkan.Renderer
	loader   *vulkan.ShaderLoader

	shaders  *vulkan.ShaderSet
	pipeline *vulkan.Pipeline
	vertices *vulkan.Buffer
	indices  *vulkan.Buffer

	elapsed float64
}

func newCubeDemo() *cubeDemo {
	return &cubeDemo{}
}

func (c *cubeDemo) initialize(g *engine.Game) error {
	c.renderer = g.Renderer
	c.loader = g.Shaders
	device := c.renderer.Device()
	staging := stagingOption(c.renderer.MemoryOption())

	var err error
	if c.vertices, err = uploadDeviceLocal(device, staging, vulkan.BUFFER_TYPE_VERTEX, "cube vertices", encodeVertices(cubeVertices)); err != nil {
		return err
	}
	if c.indices, err = uploadDeviceLocal(device, staging, vulkan.BUFFER_TYPE_INDEX, "cube indices", encodeIndices(cubeIndices)); err != nil {
		return err
	}
	c.shaders, c.pipeline, err = c.buildPipeline()
	return err
}

// stagingOption keeps the configured memory class when it can be mapped and
// falls back to system memory otherwise.
func stagingOption(configured vulkan.BufferMemoryOption) vulkan.BufferMemoryOption {
	if configured.HostVisible() {
		return configured
	}
	return vulkan.BUFFER_MEMORY_SYSTEM_MEMORY
}

// uploadDeviceLocal copies data through a mapped staging buffer into a new
// device-local buffer.
func uploadDeviceLocal(device *vulkan.VulkanDevice, stagingMemory vulkan.BufferMemoryOption, typ vulkan.BufferType, label string, data []byte) (*vulkan.Buffer, error) {
	staging := vulkan.NewBuffer(vk.DeviceSize(len(data)), vulkan.BUFFER_TYPE_STAGING)
	staging.Label = label + " staging"
	if err := device.CreateBuffer(staging, stagingMemory); err != nil {
		return nil, err
	}
	defer device.DestroyBuffer(staging)
	device.Upload(staging, data)

	buf := vulkan.NewBuffer(vk.DeviceSize(len(data)), typ)
	buf.Label = label
	if err := device.CreateBuffer(buf, vulkan.BUFFER_MEMORY_GPU_ONLY); err != nil {
		return nil, err
	}
	if err := device.CopyBuffer(staging, buf); err != nil {
		device.DestroyBuffer(buf)
		return nil, errors.Wrapf(err, "failed to upload %s", label)
	}
	return buf, nil
}

func (c *cubeDemo) buildPipeline() (*vulkan.ShaderSet, *vulkan.Pipeline, error) {
	cfg, err := cubeShaderConfiguration(c.loader)
	if err != nil {
		return nil, nil, err
	}
	device := c.renderer.Device()
	set, err := vulkan.NewShaderSet(device, cfg, vulkan.ResourceConfiguration{}, 0)
	if err != nil {
		return nil, nil, err
	}
	ctx := c.renderer.Context()
	pipeline, err := vulkan.NewGraphicsPipeline(device, set, ctx.RenderPass, ctx.Swapchain.Extent)
	if err != nil {
		set.Destroy()
		return nil, nil, err
	}
	return set, pipeline, nil
}

func (c *cubeDemo) update(deltaTime float64) {
	c.elapsed += deltaTime
}

func (c *cubeDemo) render(frontend *renderer.Frontend, _ float64) error {
	return frontend.DrawFrame(func() vulkan.Status {
		return c.renderer.RecordGraphicsCommands(c.record)
	})
}

func (c *cubeDemo) record(cmd *vulkan.CommandBuffer) error {
	extent := c.renderer.Context().Swapchain.Extent
	mvp := cubeMVP(c.elapsed, extent.Width, extent.Height)

	c.pipeline.Bind(cmd)
	cmd.SetViewportAndScissor(extent)
	cmd.BindVertexBuffer(c.vertices)
	cmd.BindIndexBuffer(c.indices, vk.IndexTypeUint16)
	c.pipeline.PushConstants(cmd, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, mvp.Bytes())
	cmd.DrawIndexed(uint32(len(cubeIndices)))
	return nil
}

// Viewport and scissor are dynamic and the projection reads the live extent,
// so nothing is rebuilt on resize.
func (c *cubeDemo) onResize(uint32, uint32) error {
	return nil
}

func (c *cubeDemo) onShaderChanged(path string) error {
	if !isCubeShader(path) {
		return nil
	}
	set, pipeline, err := c.buildPipeline()
	if err != nil {
		return errors.Wrapf(err, "keeping the previous cube pipeline")
	}
	c.destroyPipeline()
	c.shaders, c.pipeline = set, pipeline
	core.LogInfo("cube pipeline rebuilt from %s", filepath.Base(path))
	return nil
}

func (c *cubeDemo) destroyPipeline() {
	if c.pipeline != nil {
		c.pipeline.Destroy()
		c.pipeline = nil
	}
	if c.shaders != nil {
		c.shaders.Destroy()
		c.shaders = nil
	}
}

func (c *cubeDemo) shutdown() error {
	c.destroyPipeline()
	if c.renderer == nil {
		return nil
	}
	device := c.renderer.Device()
	for _, buf := range []*vulkan.Buffer{c.indices, c.vertices} {
		if buf != nil && buf.Handle != nil {
			device.DestroyBuffer(buf)
		}
	}
	c.indices, c.vertices = nil, nil
	return nil
}
