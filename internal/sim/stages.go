package sim

import (
	"merlo/server/internal/sim/vec"
)

// groundedStage refreshes every character's grounded flag by casting a short
// ray downward from just above the sole, excluding the caster's own body. A
// surface only counts as ground when its normal is within the slope limit.
// It runs before the movement stage so the integrator observes current-tick
// ground truth. A missing physics world skips the tick; it is retried on the
// next one.
func (c *Core) groundedStage(dt float64) {
	if c.world == nil {
		return
	}
	down := vec.Vec3{Y: -1}
	for _, id := range c.order {
		char := c.chars[id]
		body, ok := c.world.Body(char.Body)
		if !ok {
			continue
		}
		origin := body.Position.Sub(vec.Vec3{Y: c.tuning.ProbeOriginToFoot - 0.01})
		hit, found := c.world.CastRay(origin, down, c.tuning.ProbeDistance, char.Body)
		grounded := found
		if found && c.tuning.MaxSlopeAngle > 0 {
			grounded = hit.Normal.AngleBetween(vec.Up) <= c.tuning.MaxSlopeAngle
		}
		char.State.Grounded = grounded
	}
}

// movementStage folds the tick's staged actions into each character's
// movement state and derives the velocity command. Only authoritative
// processes integrate; clients forward actions and wait for replication.
func (c *Core) movementStage(dt float64) {
	if !c.role.Authoritative() || c.world == nil {
		return
	}
	for _, id := range c.order {
		char := c.chars[id]
		body, ok := c.world.Body(char.Body)
		if !ok {
			continue
		}

		// Horizontal and yaw velocity are recomputed from scratch every
		// tick; only the vertical component carries over.
		velocity := body.Velocity
		velocity.X = 0
		velocity.Z = 0
		angular := 0.0

		explicitRotate := false
		rotateValue := 0.0
		for _, cmd := range c.pending {
			if cmd.ActorID != id {
				continue
			}
			switch action := cmd.Action; action.Kind {
			case ActionAddMove:
				char.State.AddDirection(action.Move)
			case ActionSetMove:
				char.State.SetDirection(action.Move)
			case ActionSetSpeed:
				char.State.SetSpeed(action.Value)
			case ActionRotateRight:
				char.State.RotatingRight = action.On
			case ActionRotateLeft:
				char.State.RotatingLeft = action.On
			case ActionSetRotate:
				explicitRotate = true
				rotateValue = action.Value
			case ActionSetJump:
				char.State.Jumping = action.On
			}
		}

		// Any accumulated intent commands a full unit direction; the
		// per-axis clamp only bounds accumulation drift.
		direction := char.State.Direction.ClampLength(1)
		world := direction.RotateY(body.Yaw)
		world.Y = 0
		world = world.Normalize()

		// Backward motion is capped at the walk preset.
		speed := char.State.Speed
		if world.Z < 0 {
			speed = WalkSpeed
		}

		velocity.X = world.X * c.tuning.Acceleration * speed
		velocity.Z = world.Z * c.tuning.Acceleration * speed

		// An explicit rotate request overrides the key latches for this
		// tick only; otherwise the latches recompute the intent.
		if explicitRotate {
			char.State.Rotating = clampRotate(rotateValue)
		} else {
			char.State.ApplyRightLeftRotation()
		}
		angular = char.State.Rotating * c.tuning.YawGain

		// A jump request while airborne is dropped, never queued.
		if char.State.Grounded && char.State.Jumping {
			velocity.Y = c.tuning.JumpImpulse
		}

		c.world.SetVelocity(char.Body, velocity, angular)
	}
}

// dampingStage bleeds vertical velocity off airborne bodies so long falls
// terminate instead of accelerating without bound.
func (c *Core) dampingStage(dt float64) {
	if c.world == nil || c.tuning.VerticalDrag <= 0 || c.tuning.VerticalDrag >= 1 {
		return
	}
	for _, id := range c.order {
		char := c.chars[id]
		if char.State.Grounded {
			continue
		}
		c.world.ScaleVerticalVelocity(char.Body, c.tuning.VerticalDrag)
	}
}

func clampRotate(value float64) float64 {
	if value < -1 {
		return -1
	}
	if value > 1 {
		return 1
	}
	return value
}
