package render_path

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/cull"
)

// Kind selects a render path variant.
type Kind int

const (
	Forward Kind = iota
	Deferred
	TiledSingleForward
	TiledSingleDeferred
	TiledMultipleForward
	TiledMultipleDeferred
	ClusteredForward
	ClusteredDeferred
)

var kindNames = map[Kind]string{
	Forward:               "forward",
	Deferred:              "deferred",
	TiledSingleForward:    "tiled_forward_single",
	TiledSingleDeferred:   "tiled_deferred_single",
	TiledMultipleForward:  "tiled_forward_multiple",
	TiledMultipleDeferred: "tiled_deferred_multiple",
	ClusteredForward:      "clustered_forward",
	ClusteredDeferred:     "clustered_deferred",
}

// Kinds returns every render path in declaration order.
func Kinds() []Kind {
	return []Kind{
		Forward, Deferred,
		TiledSingleForward, TiledSingleDeferred, TiledMultipleForward, TiledMultipleDeferred,
		ClusteredForward, ClusteredDeferred,
	}
}

// String returns the benchmark name of the path.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a benchmark name onto a Kind.
//
// Parameters:
//   - name: the path name, e.g. "clustered_forward"
//
// Returns:
//   - Kind: the path
//   - error: an error for unknown names
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown render path %q", name)
}

// Deferred reports whether the path shades from a G-buffer.
func (k Kind) Deferred() bool {
	switch k {
	case Deferred, TiledSingleDeferred, TiledMultipleDeferred, ClusteredDeferred:
		return true
	}
	return false
}

// Culled reports whether the path runs light culling, and with which cells.
//
// Returns:
//   - cull.CellKind: tiles or clusters
//   - bool: false for the forward and deferred paths
func (k Kind) Culled() (cull.CellKind, bool) {
	switch k {
	case TiledSingleForward, TiledSingleDeferred, TiledMultipleForward, TiledMultipleDeferred:
		return cull.KindTile, true
	case ClusteredForward, ClusteredDeferred:
		return cull.KindCluster, true
	}
	return 0, false
}

// Strategy returns the culling strategy of a culled path. Clustered paths use one
// thread per cell.
func (k Kind) Strategy() cull.Strategy {
	switch k {
	case TiledMultipleForward, TiledMultipleDeferred:
		return cull.MultipleThreadPerCell
	}
	return cull.SingleThreadPerCell
}
