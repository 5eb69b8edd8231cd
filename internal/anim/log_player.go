package anim

import (
	"time"

	"merlo/server/internal/telemetry"
)

// LogPlayer is the headless playback backend. Servers have no renderer, so
// category changes are surfaced through the structured log instead.
type LogPlayer struct {
	Name   string
	Logger telemetry.Logger
}

// Play implements Player.
func (p *LogPlayer) Play(category Category, blend time.Duration) {
	if p == nil || p.Logger == nil {
		return
	}
	p.Logger.Printf("animation actor=%s category=%s blend=%s", p.Name, category, blend)
}
