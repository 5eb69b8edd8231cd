// Package anim selects the locomotion animation for a character from its
// replicated movement data. It is the only caller of the presentation
// backend in this server.
package anim

import (
	"time"

	"merlo/server/internal/sim"
	"merlo/server/internal/sim/vec"
)

// Category is a locomotion animation category.
type Category int

const (
	Idle Category = iota
	Walk
	Run
	Fall
)

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case Idle:
		return "idle"
	case Walk:
		return "walk"
	case Run:
		return "run"
	case Fall:
		return "fall"
	}
	return "unknown"
}

// BlendDuration is the cross-fade applied on every category change.
const BlendDuration = 250 * time.Millisecond

// Speed-squared thresholds for velocity-based classification, used by peers
// that only replicate velocity and not the semantic movement state.
const (
	walkThresholdSq = 2.0
	runThresholdSq  = 24.0
)

// Player is the presentation collaborator: playback of a looping animation
// with a cross-fade. Implementations are expected to loop until the next
// Play call.
type Player interface {
	Play(category Category, blend time.Duration)
}

// PlayerFunc adapts functions into the Player interface.
type PlayerFunc func(category Category, blend time.Duration)

// Play implements Player for PlayerFunc.
func (f PlayerFunc) Play(category Category, blend time.Duration) {
	if f == nil {
		return
	}
	f(category, blend)
}

// ClassifyState maps a replicated movement state onto a category. Falling
// overrides everything; otherwise the direction and speed preset decide.
func ClassifyState(state sim.MovementState) Category {
	switch {
	case !state.Grounded:
		return Fall
	case !state.IsMoving():
		return Idle
	case state.IsRunning():
		return Run
	default:
		return Walk
	}
}

// ClassifyVelocity maps raw velocity onto a category for peers that have no
// semantic movement state, comparing horizontal speed squared against fixed
// thresholds.
func ClassifyVelocity(velocity vec.Vec3, grounded bool) Category {
	if !grounded {
		return Fall
	}
	horizontal := velocity
	horizontal.Y = 0
	speedSq := horizontal.LengthSquared()
	switch {
	case speedSq <= walkThresholdSq:
		return Idle
	case speedSq < runThresholdSq:
		return Walk
	default:
		return Run
	}
}

// Classifier drives a Player, re-issuing playback only on category changes.
type Classifier struct {
	player  Player
	current Category
	started bool
}

// NewClassifier binds a classifier to its playback target. The first Update
// (or an explicit Start) plays Idle from time zero.
func NewClassifier(player Player) *Classifier {
	return &Classifier{player: player}
}

// Start plays the spawn animation immediately, without a blend.
func (c *Classifier) Start() {
	if c == nil || c.started {
		return
	}
	c.started = true
	c.current = Idle
	if c.player != nil {
		c.player.Play(Idle, 0)
	}
}

// Update applies a newly classified category, cross-fading only when it
// differs from the one already playing.
func (c *Classifier) Update(category Category) {
	if c == nil {
		return
	}
	if !c.started {
		c.Start()
	}
	if category == c.current {
		return
	}
	c.current = category
	if c.player != nil {
		c.player.Play(category, BlendDuration)
	}
}

// Current reports the category last handed to the player.
func (c *Classifier) Current() Category {
	if c == nil {
		return Idle
	}
	return c.current
}
