package sim

// Engine defines the minimal surface area exposed to non-simulation callers.
type Engine interface {
	Apply([]Command) error
	Step(dt float64)
	Snapshot() Snapshot
	DrainPatches() []Patch
}

// CommandQueue stages commands for the next tick. The Loop implements it on
// top of an Engine; producers should depend on this interface rather than
// the loop itself.
type CommandQueue interface {
	Enqueue(Command) (bool, string)
	Pending() int
}
