package cull

import (
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
)

// kernelCache creates each kernel once per device and hands out the same program
// for every later request with the same name.
type kernelCache struct {
	device   renderer.Device
	programs map[string]renderer.KernelProgram
}

func newKernelCache(device renderer.Device) *kernelCache {
	return &kernelCache{device: device, programs: make(map[string]renderer.KernelProgram)}
}

func (c *kernelCache) get(src renderer.KernelSource) (renderer.KernelProgram, error) {
	if k, ok := c.programs[src.Name]; ok {
		return k, nil
	}
	k, err := c.device.CreateKernel(src)
	if err != nil {
		return nil, err
	}
	c.programs[src.Name] = k
	return k, nil
}
