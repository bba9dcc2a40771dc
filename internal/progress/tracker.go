package progress

import (
	"sync"
	"sync/atomic"
)

// Sink receives progress updates. Implementations must be safe for
// concurrent use and must not block.
type Sink interface {
	Send(Update)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Update)

func (f SinkFunc) Send(u Update) { f(u) }

type nopSink struct{}

func (nopSink) Send(Update) {}

// Tracker records the state and counters of one run.
type Tracker struct {
	tool string
	sink Sink

	mu         sync.Mutex
	state      State
	stage      string
	stageIndex int
	stageCount int

	checked atomic.Int64
	toCheck atomic.Int64
}

// NewTracker returns a tracker in the Idle state. A nil sink discards updates.
func NewTracker(tool string, stageCount int, sink Sink) *Tracker {
	if sink == nil {
		sink = nopSink{}
	}
	return &Tracker{tool: tool, sink: sink, stageCount: stageCount}
}

// Transition moves the run to state and reports whether the move was legal.
func (t *Tracker) Transition(state State) bool {
	t.mu.Lock()
	if !canTransition(t.state, state) {
		t.mu.Unlock()
		return false
	}
	t.state = state
	t.mu.Unlock()
	t.push()
	return true
}

// StartStage begins a counted stage. Checked restarts at zero, which keeps
// updates monotonic because the stage index only grows.
func (t *Tracker) StartStage(index int, name string, total int64) {
	t.mu.Lock()
	if index < t.stageIndex {
		index = t.stageIndex
	}
	t.stageIndex = index
	t.stage = name
	if index >= t.stageCount {
		t.stageCount = index + 1
	}
	t.checked.Store(0)
	t.toCheck.Store(total)
	t.mu.Unlock()
	t.push()
}

// Add records n more checked items in the current stage.
func (t *Tracker) Add(n int64) {
	t.checked.Add(n)
	t.push()
}

// State returns the current lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Snapshot returns the current update without publishing it.
func (t *Tracker) Snapshot() Update {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Update{
		Tool:       t.tool,
		State:      t.state,
		Stage:      t.stage,
		StageIndex: t.stageIndex,
		StageCount: t.stageCount,
		Checked:    t.checked.Load(),
		ToCheck:    t.toCheck.Load(),
	}
}

func (t *Tracker) push() {
	t.sink.Send(t.Snapshot())
}
