package renderer

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-cluster/common"
)

// deviceConfig collects builder options before the backend is created.
type deviceConfig struct {
	workers              int
	forceFallbackAdapter bool
	validateKernels      bool
	capabilities         *Capabilities
	label                string
}

// DeviceBuilderOption is a functional option applied during NewDevice.
type DeviceBuilderOption func(*deviceConfig)

// WithWorkers sets the worker goroutines of the software device. Defaults to GOMAXPROCS.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the workers option
func WithWorkers(n int) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.workers = max(n, 1)
	}
}

// WithForceFallbackAdapter makes the wgpu device request a CPU fallback adapter
// (e.g. SwiftShader or lavapipe) instead of hardware.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the fallback option
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.forceFallbackAdapter = force
	}
}

// WithKernelValidation runs every kernel's WGSL through naga during CreateKernel.
//
// Parameters:
//   - enabled: true to validate
//
// Returns:
//   - DeviceBuilderOption: a function that applies the validation option
func WithKernelValidation(enabled bool) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.validateKernels = enabled
	}
}

// WithCapabilities overrides the capabilities the software device reports. It is used to
// exercise render-path fallback on hosts where every feature exists.
//
// Parameters:
//   - caps: the capabilities to report
//
// Returns:
//   - DeviceBuilderOption: a function that applies the capabilities option
func WithCapabilities(caps Capabilities) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.capabilities = &caps
	}
}

// WithLabel sets the label prefix of the device's GPU objects.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - DeviceBuilderOption: a function that applies the label option
func WithLabel(label string) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.label = label
	}
}

// NewDevice creates a Device of the given backend.
//
// Parameters:
//   - backend: the backend to create
//   - options: builder options
//
// Returns:
//   - Device: the device
//   - error: an error if the backend cannot be initialized
func NewDevice(backend BackendType, options ...DeviceBuilderOption) (Device, error) {
	cfg := &deviceConfig{
		workers: runtime.GOMAXPROCS(0),
		label:   "oxy-cluster",
	}
	for _, opt := range options {
		opt(cfg)
	}

	var (
		d   Device
		err error
	)
	switch backend {
	case BackendTypeSoftware:
		d = newSoftwareDevice(cfg)
	case BackendTypeWGPU:
		d, err = newWGPUDevice(cfg)
	default:
		return nil, fmt.Errorf("unknown device backend %v", backend)
	}
	if err != nil {
		return nil, err
	}
	common.Logger().Info("device created", "backend", backend.String(), "label", cfg.label)
	return d, nil
}
