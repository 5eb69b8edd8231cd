package sim

import "math"

// Tuning carries the movement constants shared by every character. Values
// are authoritative configuration, never client input.
type Tuning struct {
	// Acceleration converts the unit world direction and speed preset into
	// a commanded horizontal velocity.
	Acceleration float64
	// JumpImpulse is the vertical velocity applied on a grounded jump.
	JumpImpulse float64
	// MaxSlopeAngle is the steepest surface, in radians from world-up, that
	// still counts as ground. Zero or negative disables the slope limit.
	MaxSlopeAngle float64
	// YawGain converts the rotation intent in [-1, 1] into a yaw rate.
	YawGain float64
	// ProbeOriginToFoot is the distance from the body reference point down
	// to the ray origin used for grounded detection.
	ProbeOriginToFoot float64
	// ProbeDistance is how far below the origin the ground may be.
	ProbeDistance float64
	// VerticalDrag is the per-tick vertical velocity retention applied to
	// airborne bodies by the damping stage.
	VerticalDrag float64
}

// DefaultTuning mirrors the reference character: capsule foot at 1.5 units
// below the reference point, 30 degree slope limit.
func DefaultTuning() Tuning {
	return Tuning{
		Acceleration:      60,
		JumpImpulse:       8,
		MaxSlopeAngle:     30 * math.Pi / 180,
		YawGain:           4,
		ProbeOriginToFoot: 1.5,
		ProbeDistance:     0.5,
		VerticalDrag:      0.98,
	}
}
