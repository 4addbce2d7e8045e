package cull

// Heatmap holds the light count of every cell, indexed like the light grid.
type Heatmap struct {
	Counts [3]uint32
	Values []uint32
}

// At returns the light count of a cell, or 0 outside the grid.
func (h Heatmap) At(cell [3]uint32) uint32 {
	if cell[0] >= h.Counts[0] || cell[1] >= h.Counts[1] || cell[2] >= h.Counts[2] {
		return 0
	}
	i := cell[0] + cell[1]*h.Counts[0] + cell[2]*h.Counts[0]*h.Counts[1]
	if int(i) >= len(h.Values) {
		return 0
	}
	return h.Values[i]
}

// Max returns the largest per-cell count.
func (h Heatmap) Max() uint32 {
	var m uint32
	for _, v := range h.Values {
		m = max(m, v)
	}
	return m
}

// Total returns the sum of all counts.
func (h Heatmap) Total() uint64 {
	var t uint64
	for _, v := range h.Values {
		t += uint64(v)
	}
	return t
}

// MaxOverDepth collapses the depth axis, returning the busiest slice of every screen
// tile in row-major order. This is what an on-screen overlay shows.
func (h Heatmap) MaxOverDepth() []uint32 {
	out := make([]uint32, h.Counts[0]*h.Counts[1])
	for z := range h.Counts[2] {
		for y := range h.Counts[1] {
			for x := range h.Counts[0] {
				i := x + y*h.Counts[0]
				out[i] = max(out[i], h.At([3]uint32{x, y, z}))
			}
		}
	}
	return out
}
