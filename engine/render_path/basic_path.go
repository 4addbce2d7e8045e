package render_path

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/cull/kernels"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
)

// basicPath is the forward or deferred path: every fragment loops over every light.
type basicPath struct {
	pathBase

	lightBuf   renderer.BufferHandle
	capacity   uint64
	lightCount uint32
}

var _ Path = &basicPath{}

func (p *basicPath) Initialize(width, height uint32) error {
	p.resize(width, height)
	return p.upload(nil)
}

func (p *basicPath) Reset(width, height uint32) error {
	p.resize(width, height)
	return nil
}

func (p *basicPath) OnOptionsChanged(opts Options) error {
	p.opts = opts
	return nil
}

func (p *basicPath) Render(dt float32) (Frame, error) {
	frame := Frame{Views: make(map[string]ViewTiming, 1)}
	err := p.timeView(&frame, ViewShading, func() error {
		if err := p.upload(p.scene.ActiveLights()); err != nil {
			return err
		}
		return p.shading.Shade(ShadingInput{
			Kind:       p.kind,
			Device:     p.device,
			Camera:     p.scene.Camera(),
			Viewport:   [2]uint32{p.width, p.height},
			LightCount: p.lightCount,
		})
	})
	if err != nil {
		return p.frameError(frame, err)
	}
	p.degraded = false
	return frame, nil
}

// upload writes the lights to the light buffer, doubling it when they no longer fit,
// and binds it for shading.
func (p *basicPath) upload(lights []light.Light) error {
	data, count := light.MarshalLightBuffer(lights)
	need := max(uint64(count), 1)
	if !p.lightBuf.Valid() || need > p.capacity {
		capacity := max(p.capacity, 1)
		for capacity < need {
			capacity *= 2
		}
		h, err := p.device.CreateComputeBuffer(kernels.LightBufferElements(capacity), kernels.LightBufferLayout, renderer.AccessRead)
		if err != nil {
			return err
		}
		if p.lightBuf.Valid() {
			p.device.DestroyBuffer(p.lightBuf)
		}
		p.lightBuf = h
		p.capacity = capacity
	}
	if err := p.device.WriteBuffer(p.lightBuf, 0, data); err != nil {
		return fmt.Errorf("failed to upload lights: %w", err)
	}
	p.device.BindBuffer(kernels.SlotLights, p.lightBuf, renderer.AccessRead)
	p.lightCount = count
	return nil
}

func (p *basicPath) Shutdown() {
	if p.lightBuf.Valid() {
		p.device.DestroyBuffer(p.lightBuf)
	}
	p.lightBuf = renderer.BufferHandle{}
	p.capacity = 0
}
