package sim

import "merlo/server/internal/sim/vec"

// Named speed presets. Clients request presets rather than raw floats so a
// remote peer cannot drive an arbitrary speed through the wire protocol.
const (
	WalkSpeed = 0.05
	RunSpeed  = 0.15
)

var (
	minDirection = vec.Vec3{X: -1, Y: -1, Z: -1}
	maxDirection = vec.Vec3{X: 1, Y: 1, Z: 1}
)

// MovementState is the replicated per-character movement record. It is
// mutated only on the authoritative process during its fixed step; every
// other peer treats the replicated copy as read-only.
type MovementState struct {
	Speed         float64  `json:"speed"`
	Direction     vec.Vec3 `json:"direction"`
	Jumping       bool     `json:"jumping"`
	Rotating      float64  `json:"rotating"`
	RotatingRight bool     `json:"rotatingRight"`
	RotatingLeft  bool     `json:"rotatingLeft"`
	Grounded      bool     `json:"grounded"`
}

// DefaultMovementState returns the state a freshly spawned character starts
// with: standing on the ground at run speed with no pending intent.
func DefaultMovementState() MovementState {
	return MovementState{
		Speed:    RunSpeed,
		Grounded: true,
	}
}

// AddDirection accumulates a movement intent vector, clamping each axis to
// [-1, 1] so repeated press/release pairs stay reversible without drift.
func (s *MovementState) AddDirection(direction vec.Vec3) {
	if s == nil {
		return
	}
	s.Direction = s.Direction.Add(direction).Clamp(minDirection, maxDirection)
}

// SetDirection overwrites the accumulated intent with an absolute vector,
// clamped per axis. Level-based devices (gamepad sticks) use this path.
func (s *MovementState) SetDirection(direction vec.Vec3) {
	if s == nil {
		return
	}
	s.Direction = direction.Clamp(minDirection, maxDirection)
}

// SetSpeed snaps the requested value to the nearest named preset.
func (s *MovementState) SetSpeed(speed float64) {
	if s == nil {
		return
	}
	s.Speed = SnapSpeed(speed)
}

// ApplyRightLeftRotation recomputes the rotation intent from the latched
// rotation keys. Right-only turns clockwise (negative yaw rate), left-only
// counter-clockwise; both or neither cancel out.
func (s *MovementState) ApplyRightLeftRotation() {
	if s == nil {
		return
	}
	switch {
	case s.RotatingRight && !s.RotatingLeft:
		s.Rotating = -1
	case s.RotatingLeft && !s.RotatingRight:
		s.Rotating = 1
	default:
		s.Rotating = 0
	}
}

// IsMoving reports whether any movement intent is accumulated.
func (s MovementState) IsMoving() bool {
	return !s.Direction.IsZero()
}

// IsMovingBackwards reports whether the local-space intent points backwards.
func (s MovementState) IsMovingBackwards() bool {
	return s.Direction.Z < 0
}

// IsRunning reports whether the character moves at running speed.
func (s MovementState) IsRunning() bool {
	return s.Speed >= RunSpeed
}

// SnapSpeed maps an arbitrary requested speed onto the closest preset.
func SnapSpeed(speed float64) float64 {
	if speed < (WalkSpeed+RunSpeed)/2 {
		return WalkSpeed
	}
	return RunSpeed
}
