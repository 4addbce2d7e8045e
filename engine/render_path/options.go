package render_path

import "github.com/Carmen-Shannon/oxy-cluster/engine/cull"

// Options are the culling settings a path reads on Initialize and OnOptionsChanged.
type Options struct {
	// TilePixelSize is the tile size in pixels for tiled paths.
	TilePixelSize [2]uint32

	// ClusterDimensions are the cluster counts on x, y and z. With
	// TreatClusterXYAsPixelSize the x and y entries are pixel sizes instead.
	ClusterDimensions [3]uint32

	TreatClusterXYAsPixelSize bool

	MaxLightsPerCell uint32
}

// DefaultOptions returns 16x16 px tiles, 16x8x24 clusters and 4096 lights per cell.
func DefaultOptions() Options {
	return Options{
		TilePixelSize:     [2]uint32{16, 16},
		ClusterDimensions: [3]uint32{16, 8, 24},
		MaxLightsPerCell:  4096,
	}
}

// GridConfig returns the cell grid a path culls with.
//
// Parameters:
//   - k: the path
//
// Returns:
//   - cull.GridConfig: the grid description
//   - bool: false for paths without culling
func (o Options) GridConfig(k Kind) (cull.GridConfig, bool) {
	cellKind, ok := k.Culled()
	if !ok {
		return cull.GridConfig{}, false
	}
	if cellKind == cull.KindTile {
		return cull.GridConfig{
			Kind:             cull.KindTile,
			Policy:           cull.SizingFixedPixel,
			Dimensions:       [3]uint32{o.TilePixelSize[0], o.TilePixelSize[1], 1},
			MaxLightsPerCell: o.MaxLightsPerCell,
		}, true
	}
	policy := cull.SizingFixedCount
	if o.TreatClusterXYAsPixelSize {
		policy = cull.SizingFixedPixel
	}
	return cull.GridConfig{
		Kind:             cull.KindCluster,
		Policy:           policy,
		Dimensions:       o.ClusterDimensions,
		MaxLightsPerCell: o.MaxLightsPerCell,
	}, true
}
