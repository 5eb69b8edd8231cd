// Package physics is the rigid-body collaborator for the movement core. It
// integrates velocity commands into positions and yaw, applies gravity, and
// answers downward ray queries used for grounded detection. Collision
// handling is deliberately minimal: bodies rest on axis-aligned static
// geometry and never push each other.
package physics

import (
	"math"
	"sync"

	"merlo/server/internal/sim/vec"
)

const (
	// DefaultGravity is the world vertical acceleration in units/s^2.
	DefaultGravity = -9.81
)

// BodyID identifies a body within a world. The zero value is never assigned.
type BodyID uint64

// Body is a dynamic rigid body. Position is the body reference point;
// FootOffset is the distance from that point down to the sole, which is
// where ground support is resolved.
type Body struct {
	ID           BodyID
	Position     vec.Vec3
	Yaw          float64
	Velocity     vec.Vec3
	AngularY     float64
	HalfExtents  vec.Vec3
	FootOffset   float64
	GravityScale float64
	Static       bool
}

// Box is an axis-aligned static collider.
type Box struct {
	Min vec.Vec3
	Max vec.Vec3
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p vec.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Ramp is a one-sided inclined static surface covering an XZ rectangle.
// Origin is any point on the surface and Normal its walkable-side normal;
// only the X and Z components of Min and Max bound the extent.
type Ramp struct {
	Origin vec.Vec3
	Normal vec.Vec3
	Min    vec.Vec3
	Max    vec.Vec3
}

// heightAt returns the surface height above (x, z), false outside the
// extent or for a vertical surface.
func (r Ramp) heightAt(x, z float64) (float64, bool) {
	if x < r.Min.X || x > r.Max.X || z < r.Min.Z || z > r.Max.Z || r.Normal.Y == 0 {
		return 0, false
	}
	y := r.Origin.Y - (r.Normal.X*(x-r.Origin.X)+r.Normal.Z*(z-r.Origin.Z))/r.Normal.Y
	return y, true
}

// Hit describes a ray intersection.
type Hit struct {
	Point    vec.Vec3
	Normal   vec.Vec3
	Distance float64
}

// World owns all bodies and static geometry. Methods are safe for concurrent
// use, though the simulation loop is expected to be the only mutator.
type World struct {
	mu      sync.Mutex
	gravity float64
	nextID  BodyID
	bodies  map[BodyID]*Body
	order   []BodyID
	boxes   []Box
	ramps   []Ramp
}

// NewWorld constructs an empty world with the given vertical gravity.
func NewWorld(gravity float64) *World {
	if gravity == 0 {
		gravity = DefaultGravity
	}
	return &World{
		gravity: gravity,
		bodies:  make(map[BodyID]*Body),
	}
}

// AddGround installs a large horizontal slab whose top surface sits at y.
func (w *World) AddGround(y float64) {
	const extent = 1 << 16
	w.AddBox(Box{
		Min: vec.Vec3{X: -extent, Y: y - 1, Z: -extent},
		Max: vec.Vec3{X: extent, Y: y, Z: extent},
	})
}

// AddBox installs a static collider.
func (w *World) AddBox(box Box) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.boxes = append(w.boxes, box)
}

// AddRamp installs a static inclined surface. The normal is normalized on
// insert; a zero normal falls back to world up.
func (w *World) AddRamp(ramp Ramp) {
	if w == nil {
		return
	}
	ramp.Normal = ramp.Normal.Normalize()
	if ramp.Normal.IsZero() {
		ramp.Normal = vec.Up
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ramps = append(w.ramps, ramp)
}

// AddBody registers a body and returns its assigned ID.
func (w *World) AddBody(body Body) BodyID {
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	body.ID = w.nextID
	if body.GravityScale == 0 && !body.Static {
		body.GravityScale = 1
	}
	w.bodies[body.ID] = &body
	w.order = append(w.order, body.ID)
	return body.ID
}

// RemoveBody deletes a body. Removing an unknown ID is a no-op.
func (w *World) RemoveBody(id BodyID) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.bodies[id]; !ok {
		return
	}
	delete(w.bodies, id)
	for i, existing := range w.order {
		if existing == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// Body returns a copy of the identified body.
func (w *World) Body(id BodyID) (Body, bool) {
	if w == nil {
		return Body{}, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	body, ok := w.bodies[id]
	if !ok {
		return Body{}, false
	}
	return *body, true
}

// Velocity returns the linear and yaw angular velocity of a body.
func (w *World) Velocity(id BodyID) (vec.Vec3, float64, bool) {
	body, ok := w.Body(id)
	if !ok {
		return vec.Zero, 0, false
	}
	return body.Velocity, body.AngularY, true
}

// SetVelocity overwrites the velocity command for a body.
func (w *World) SetVelocity(id BodyID, linear vec.Vec3, angularY float64) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	body, ok := w.bodies[id]
	if !ok || body.Static {
		return
	}
	body.Velocity = linear
	body.AngularY = angularY
}

// ScaleVerticalVelocity multiplies the vertical velocity of a body, used by
// the damping stage for airborne drag.
func (w *World) ScaleVerticalVelocity(id BodyID, factor float64) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	body, ok := w.bodies[id]
	if !ok || body.Static {
		return
	}
	body.Velocity.Y *= factor
}

// Step advances every dynamic body by dt seconds: gravity, integration, and
// ground support resolution, in that order.
func (w *World) Step(dt float64) {
	if w == nil || dt <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range w.order {
		body := w.bodies[id]
		if body == nil || body.Static {
			continue
		}
		body.Velocity.Y += w.gravity * body.GravityScale * dt
		body.Position = body.Position.Add(body.Velocity.Scale(dt))
		body.Yaw = wrapAngle(body.Yaw + body.AngularY*dt)
		w.resolveSupportLocked(body, dt)
	}
}

// resolveSupportLocked snaps a falling body onto the highest static surface
// its sole sank into during this step and zeroes its vertical velocity.
// Catch depth scales with the fall speed so fast bodies cannot tunnel, while
// bodies that start far beneath a surface are never teleported onto it.
func (w *World) resolveSupportLocked(body *Body, dt float64) {
	if body.Velocity.Y > 0 {
		return
	}
	catch := 1.0
	if sunk := -body.Velocity.Y * dt * 2; sunk > catch {
		catch = sunk
	}
	sole := body.Position.Y - body.FootOffset
	best := math.Inf(-1)
	found := false
	for _, box := range w.boxes {
		if body.Position.X < box.Min.X || body.Position.X > box.Max.X ||
			body.Position.Z < box.Min.Z || body.Position.Z > box.Max.Z {
			continue
		}
		if sole <= box.Max.Y+supportTolerance && sole >= box.Max.Y-catch && box.Max.Y > best {
			best = box.Max.Y
			found = true
		}
	}
	for _, ramp := range w.ramps {
		top, ok := ramp.heightAt(body.Position.X, body.Position.Z)
		if !ok {
			continue
		}
		if sole <= top+supportTolerance && sole >= top-catch && top > best {
			best = top
			found = true
		}
	}
	if !found {
		return
	}
	body.Position.Y = best + body.FootOffset
	body.Velocity.Y = 0
}

const supportTolerance = 1e-6

// CastRay traces a ray against static geometry and every body except the
// excluded one. It returns the nearest hit within maxDistance.
func (w *World) CastRay(origin, direction vec.Vec3, maxDistance float64, exclude BodyID) (Hit, bool) {
	if w == nil {
		return Hit{}, false
	}
	dir := direction.Normalize()
	if dir.IsZero() || maxDistance <= 0 {
		return Hit{}, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	nearest := Hit{Distance: math.Inf(1)}
	found := false
	record := func(hit Hit, ok bool) {
		if ok && hit.Distance < nearest.Distance {
			nearest = hit
			found = true
		}
	}

	for _, box := range w.boxes {
		record(rayBox(origin, dir, maxDistance, box))
	}
	for _, ramp := range w.ramps {
		record(rayRamp(origin, dir, maxDistance, ramp))
	}
	for _, id := range w.order {
		if id == exclude {
			continue
		}
		body := w.bodies[id]
		if body == nil || body.HalfExtents.IsZero() {
			continue
		}
		box := Box{
			Min: body.Position.Sub(body.HalfExtents),
			Max: body.Position.Add(body.HalfExtents),
		}
		record(rayBox(origin, dir, maxDistance, box))
	}

	if !found {
		return Hit{}, false
	}
	return nearest, true
}

// rayRamp intersects a ray with an inclined surface. Hits are one-sided:
// rays approaching from behind the normal pass through.
func rayRamp(origin, dir vec.Vec3, maxDistance float64, ramp Ramp) (Hit, bool) {
	denom := dir.Dot(ramp.Normal)
	if denom >= 0 {
		return Hit{}, false
	}
	t := ramp.Origin.Sub(origin).Dot(ramp.Normal) / denom
	if t <= 0 || t > maxDistance {
		return Hit{}, false
	}
	point := origin.Add(dir.Scale(t))
	if point.X < ramp.Min.X || point.X > ramp.Max.X ||
		point.Z < ramp.Min.Z || point.Z > ramp.Max.Z {
		return Hit{}, false
	}
	return Hit{Point: point, Normal: ramp.Normal, Distance: t}, true
}

// rayBox intersects a ray with an axis-aligned box using the slab method.
// The returned normal is the axis of the entry face.
func rayBox(origin, dir vec.Vec3, maxDistance float64, box Box) (Hit, bool) {
	tMin := 0.0
	tMax := maxDistance
	normal := vec.Zero

	axes := []struct {
		origin, dir, min, max float64
		axis                  vec.Vec3
	}{
		{origin.X, dir.X, box.Min.X, box.Max.X, vec.Vec3{X: 1}},
		{origin.Y, dir.Y, box.Min.Y, box.Max.Y, vec.Vec3{Y: 1}},
		{origin.Z, dir.Z, box.Min.Z, box.Max.Z, vec.Vec3{Z: 1}},
	}

	for _, a := range axes {
		if a.dir == 0 {
			if a.origin < a.min || a.origin > a.max {
				return Hit{}, false
			}
			continue
		}
		inv := 1 / a.dir
		near := (a.min - a.origin) * inv
		far := (a.max - a.origin) * inv
		if near > far {
			near, far = far, near
		}
		if near > tMin {
			tMin = near
			// The entry face always opposes the ray along its axis.
			normal = a.axis.Scale(-signOf(a.dir))
		}
		if far < tMax {
			tMax = far
		}
		if tMin > tMax {
			return Hit{}, false
		}
	}

	if tMin <= 0 || tMin > maxDistance {
		return Hit{}, false
	}
	return Hit{
		Point:    origin.Add(dir.Scale(tMin)),
		Normal:   normal,
		Distance: tMin,
	}, true
}

func signOf(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func wrapAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}
