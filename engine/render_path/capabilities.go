package render_path

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
)

// Capability names reported in ErrCapabilityUnsupported errors.
const (
	CapabilityCompute               = "compute"
	CapabilityIndex32               = "32-bit indices"
	CapabilityMultipleRenderTargets = "multiple render targets"
	CapabilityBlit                  = "blit"
)

// Requirements lists the device capabilities a path needs. Every path needs blit for
// the final resolve, deferred paths need multiple render targets, and culled paths need
// compute with 32-bit indices for the light grid.
//
// Parameters:
//   - k: the path
//
// Returns:
//   - []string: capability names
func Requirements(k Kind) []string {
	reqs := []string{CapabilityBlit}
	if k.Deferred() {
		reqs = append(reqs, CapabilityMultipleRenderTargets)
	}
	if _, ok := k.Culled(); ok {
		reqs = append(reqs, CapabilityCompute, CapabilityIndex32)
	}
	return reqs
}

func hasCapability(caps renderer.Capabilities, name string) bool {
	switch name {
	case CapabilityCompute:
		return caps.Compute
	case CapabilityIndex32:
		return caps.Index32
	case CapabilityMultipleRenderTargets:
		return caps.MultipleRenderTargets
	case CapabilityBlit:
		return caps.Blit
	}
	return false
}

// Supported checks a path against device capabilities.
//
// Parameters:
//   - k: the path
//   - caps: the device capabilities
//
// Returns:
//   - error: renderer.ErrCapabilityUnsupported wrapped with every missing capability, or nil
func Supported(k Kind, caps renderer.Capabilities) error {
	var errs []error
	for _, req := range Requirements(k) {
		if !hasCapability(caps, req) {
			errs = append(errs, renderer.MissingCapability(req))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("render path %s: %w", k, errors.Join(errs...))
}

// Fallback returns the next simpler path: clustered falls back to tiled, tiled to
// deferred and deferred to forward.
//
// Parameters:
//   - k: the path
//
// Returns:
//   - Kind: the fallback path
//   - bool: false for forward, which has no fallback
func Fallback(k Kind) (Kind, bool) {
	switch k {
	case ClusteredForward:
		return TiledSingleForward, true
	case ClusteredDeferred:
		return TiledSingleDeferred, true
	case TiledSingleForward, TiledSingleDeferred, TiledMultipleForward, TiledMultipleDeferred:
		return Deferred, true
	case Deferred:
		return Forward, true
	}
	return 0, false
}

// Select walks the fallback chain from the requested path to the first path the device
// supports.
//
// Parameters:
//   - requested: the preferred path
//   - caps: the device capabilities
//
// Returns:
//   - Kind: the selected path
//   - error: the last ErrCapabilityUnsupported if no path in the chain is supported
func Select(requested Kind, caps renderer.Capabilities) (Kind, error) {
	k := requested
	for {
		err := Supported(k, caps)
		if err == nil {
			if k != requested {
				common.Logger().Warn("render path unsupported, falling back", "requested", requested, "selected", k)
			}
			return k, nil
		}
		next, ok := Fallback(k)
		if !ok {
			return 0, err
		}
		common.Logger().Debug("render path unsupported", "path", k, "error", err)
		k = next
	}
}
