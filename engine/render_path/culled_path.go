package render_path

import (
	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cull"
)

// culledPath is a tiled or clustered path. Each frame it rebuilds cell bounds when the
// projection changed, culls the active lights into the cells and shades with the light
// grid bound read-only.
type culledPath struct {
	pathBase

	partitioner cull.Partitioner
	culler      cull.Culler
}

var _ CulledPath = &culledPath{}

func (p *culledPath) Initialize(width, height uint32) error {
	cfg, _ := p.opts.GridConfig(p.kind)
	p.resize(width, height)
	if p.partitioner == nil {
		p.partitioner = cull.NewPartitioner(p.device)
		p.culler = cull.NewCuller(p.device, p.partitioner, cull.WithStrategy(p.kind.Strategy()))
	}
	if err := p.partitioner.Configure(width, height, cfg); err != nil {
		return err
	}
	common.Logger().Info("render path initialized",
		"path", p.kind,
		"cells", p.partitioner.Grid().Counts,
		"strategy", p.culler.Strategy(),
		"threads", p.partitioner.Threads(),
	)
	return nil
}

func (p *culledPath) Reset(width, height uint32) error {
	if p.partitioner == nil {
		return p.Initialize(width, height)
	}
	p.resize(width, height)
	cfg, _ := p.opts.GridConfig(p.kind)
	if err := p.partitioner.Configure(width, height, cfg); err != nil {
		return err
	}
	p.partitioner.Invalidate()
	return nil
}

func (p *culledPath) OnOptionsChanged(opts Options) error {
	cfg, _ := opts.GridConfig(p.kind)
	if _, err := cull.DeriveGrid(p.width, p.height, cfg); err != nil {
		return err
	}
	p.opts = opts
	if p.partitioner == nil {
		return nil
	}
	return p.partitioner.Configure(p.width, p.height, cfg)
}

func (p *culledPath) Render(dt float32) (Frame, error) {
	frame := Frame{Views: make(map[string]ViewTiming, 3)}
	if p.partitioner == nil {
		return p.frameError(frame, cull.ErrNotConfigured)
	}
	cam := p.scene.Camera()

	err := p.timeView(&frame, ViewBuilding, func() error {
		rebuilt, err := p.partitioner.RebuildIfNeeded(cam, p.width, p.height)
		frame.Rebuilt = rebuilt
		return err
	})
	if err != nil {
		return p.frameError(frame, err)
	}

	err = p.timeView(&frame, ViewCulling, func() error {
		return p.culler.Cull(p.scene.ActiveLights(), cam)
	})
	if err != nil {
		return p.frameError(frame, err)
	}

	err = p.timeView(&frame, ViewShading, func() error {
		p.culler.BindForShading()
		grid := p.partitioner.Grid()
		return p.shading.Shade(ShadingInput{
			Kind:       p.kind,
			Device:     p.device,
			Camera:     cam,
			Viewport:   [2]uint32{p.width, p.height},
			LightCount: p.culler.LightCount(),
			Grid:       &grid,
			Uniforms:   p.partitioner.Uniforms(cam),
		})
	})
	if err != nil {
		return p.frameError(frame, err)
	}
	p.degraded = false
	return frame, nil
}

func (p *culledPath) Partitioner() cull.Partitioner {
	return p.partitioner
}

func (p *culledPath) Culler() cull.Culler {
	return p.culler
}

func (p *culledPath) Shutdown() {
	if p.culler != nil {
		p.culler.Teardown()
	}
	if p.partitioner != nil {
		p.partitioner.Teardown()
	}
}
