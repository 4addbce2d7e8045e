package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns an inverted box that any Extend call will replace.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// Extend grows the box so that it contains p.
//
// Parameters:
//   - p: the point to include
//
// Returns:
//   - AABB: the grown box
func (b AABB) Extend(p mgl32.Vec3) AABB {
	for i := range 3 {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Contains reports whether p lies inside the box, boundaries included.
func (b AABB) Contains(p mgl32.Vec3) bool {
	for i := range 3 {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// SquaredDistanceToPoint returns the squared distance from p to the closest point of the box.
// Points inside the box report zero.
//
// Parameters:
//   - p: the query point
//
// Returns:
//   - float32: squared Euclidean distance
func (b AABB) SquaredDistanceToPoint(p mgl32.Vec3) float32 {
	var sq float32
	for i := range 3 {
		v := p[i]
		if v < b.Min[i] {
			d := b.Min[i] - v
			sq += d * d
		} else if v > b.Max[i] {
			d := v - b.Max[i]
			sq += d * d
		}
	}
	return sq
}

// SphereIntersectsAABB reports whether a sphere overlaps the box. Touching counts as overlap.
//
// Parameters:
//   - center: sphere center, in the same space as the box
//   - radius: sphere radius
//   - b: the box
//
// Returns:
//   - bool: true if the sphere and the box share at least one point
func SphereIntersectsAABB(center mgl32.Vec3, radius float32, b AABB) bool {
	return b.SquaredDistanceToPoint(center) <= radius*radius
}
