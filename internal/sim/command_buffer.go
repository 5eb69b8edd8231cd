package sim

import (
	"sync"

	"merlo/server/internal/telemetry"
)

// Metric keys published by the staging queue.
const (
	metricQueueDepth   = "movement_queue_depth"
	metricQueueDropped = "movement_queue_dropped_total"
)

// CommandBuffer is the bounded staging area between websocket readers and
// the tick loop. Producers push concurrently; the loop drains once per tick.
// Commands past capacity are refused rather than queued, so a flooding
// client can at worst lose its own input.
type CommandBuffer struct {
	mu      sync.Mutex
	slots   []Command
	start   int
	size    int
	metrics telemetry.Metrics
}

// NewCommandBuffer allocates a buffer holding at most capacity commands.
func NewCommandBuffer(capacity int, metrics telemetry.Metrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{
		slots:   make([]Command, capacity),
		metrics: metrics,
	}
}

// Capacity reports the fixed slot count.
func (b *CommandBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	return len(b.slots)
}

// Push stages one command. A full buffer refuses the command and counts the
// drop.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == len(b.slots) {
		if b.metrics != nil {
			b.metrics.Add(metricQueueDropped, 1)
		}
		return false
	}
	b.slots[(b.start+b.size)%len(b.slots)] = cmd
	b.size++
	b.publishDepthLocked()
	return true
}

// Drain removes every staged command in arrival order. The returned slice is
// owned by the caller; an empty buffer drains to nil.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == 0 {
		return nil
	}
	out := make([]Command, b.size)
	n := copy(out, b.slots[b.start:min(b.start+b.size, len(b.slots))])
	copy(out[n:], b.slots[:b.size-n])
	b.start = 0
	b.size = 0
	b.publishDepthLocked()
	return out
}

// Len reports how many commands are currently staged.
func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *CommandBuffer) publishDepthLocked() {
	if b.metrics != nil {
		b.metrics.Store(metricQueueDepth, uint64(b.size))
	}
}
