// Package vec provides the small 3D vector and yaw math shared by the
// simulation core and the physics world.
package vec

import "math"

// Vec3 is a three-component vector. Y is up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Zero is the additive identity.
var Zero = Vec3{}

// Up points along the world vertical axis.
var Up = Vec3{Y: 1}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Length returns the Euclidean norm of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// LengthSquared returns the squared Euclidean norm of v.
func (v Vec3) LengthSquared() float64 {
	return v.Dot(v)
}

// IsZero reports whether every component is exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Clamp limits each component of v to the [min, max] range component-wise.
func (v Vec3) Clamp(min, max Vec3) Vec3 {
	return Vec3{
		X: clamp(v.X, min.X, max.X),
		Y: clamp(v.Y, min.Y, max.Y),
		Z: clamp(v.Z, min.Z, max.Z),
	}
}

// ClampLength scales v down so its norm does not exceed max. Vectors already
// within the limit are returned unchanged.
func (v Vec3) ClampLength(max float64) Vec3 {
	length := v.Length()
	if length <= max || length == 0 {
		return v
	}
	return v.Scale(max / length)
}

// Normalize returns the unit vector pointing along v, or the zero vector when
// v has no length.
func (v Vec3) Normalize() Vec3 {
	length := v.Length()
	if length == 0 {
		return Zero
	}
	return v.Scale(1 / length)
}

// AngleBetween returns the unsigned angle in radians between v and o.
// Degenerate inputs yield zero.
func (v Vec3) AngleBetween(o Vec3) float64 {
	denom := v.Length() * o.Length()
	if denom == 0 {
		return 0
	}
	cos := clamp(v.Dot(o)/denom, -1, 1)
	return math.Acos(cos)
}

// RotateY rotates v around the vertical axis by yaw radians. Positive yaw
// turns counter-clockwise when viewed from above.
func (v Vec3) RotateY(yaw float64) Vec3 {
	sin, cos := math.Sincos(yaw)
	return Vec3{
		X: v.X*cos + v.Z*sin,
		Y: v.Y,
		Z: -v.X*sin + v.Z*cos,
	}
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
