package sim

import "merlo/server/internal/telemetry"

// Deps carries shared infrastructure dependencies required by the simulation engine.
type Deps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   telemetry.Clock
}
