package review

import (
	"sync/atomic"
	"time"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

// State is an orchestration phase. Transitions are strictly forward;
// a review never revisits an earlier state.
type State string

const (
	StatePending        State = "pending"
	StateStaticAnalysis State = "static_analysis"
	StateRetrieval      State = "retrieval"
	StateAgentsRunning  State = "agents_running"
	StateConsolidating  State = "consolidating"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
	StateBudgetExceeded State = "budget_exceeded"
)

// Terminal reports whether the state ends the review.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateBudgetExceeded
}

// EventKind discriminates progress events.
type EventKind string

const (
	EventStateChanged EventKind = "state_changed"
	EventAgentResult  EventKind = "agent_result"
)

// Event is one progress notification. State is set for state changes;
// Result is set for completed agent invocations.
type Event struct {
	Kind      EventKind
	State     State
	Result    *domain.AgentResult
	Timestamp time.Time
}

// emitter delivers events without ever blocking the pipeline. Sends that
// find the buffer full are counted and dropped; the channel closes exactly
// once, at the terminal state.
type emitter struct {
	ch      chan Event
	dropped atomic.Uint64
}

func newEmitter(buffer int) *emitter {
	if buffer <= 0 {
		buffer = 64
	}
	return &emitter{ch: make(chan Event, buffer)}
}

func (e *emitter) state(s State) {
	e.emit(Event{Kind: EventStateChanged, State: s, Timestamp: time.Now()})
}

func (e *emitter) result(r domain.AgentResult) {
	e.emit(Event{Kind: EventAgentResult, Result: &r, Timestamp: time.Now()})
}

func (e *emitter) emit(ev Event) {
	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
	}
}

func (e *emitter) close() {
	close(e.ch)
}

// Dropped returns how many events were discarded because no consumer kept
// up with the buffer.
func (e *emitter) Dropped() uint64 {
	return e.dropped.Load()
}
