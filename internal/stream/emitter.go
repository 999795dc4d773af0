package stream

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Publisher pushes serialized events to a topic. Satisfied by the NATS bus
// client; nil publishers are allowed for local-only runs.
type Publisher interface {
	Publish(topic string, data []byte) error
}

// Emitter converts controller lifecycle transitions into an ordered,
// append-only event sequence for one run. Guarantees: stage events are
// suppressed after cancellation, error is emitted at most once, and done is
// always the last event, exactly once.
type Emitter struct {
	runID string
	topic string
	pub   Publisher
	ch    chan Event

	mu         sync.Mutex
	errored    bool
	suppressed bool
	closed     bool
}

const eventBuffer = 1024

// NewEmitter builds an emitter for one run. Events go to the local channel
// and, when pub is non-nil, to the given topic.
func NewEmitter(runID, topic string, pub Publisher) *Emitter {
	return &Emitter{
		runID: runID,
		topic: topic,
		pub:   pub,
		ch:    make(chan Event, eventBuffer),
	}
}

// Events returns the ordered event sequence. The channel closes after the
// done event.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

func (e *Emitter) emit(ev Event, isDone bool) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if e.suppressed && !isDone {
		e.mu.Unlock()
		return
	}
	if isDone {
		e.closed = true
	}
	e.mu.Unlock()

	if e.pub != nil {
		data, err := json.Marshal(ev)
		if err == nil {
			_ = e.pub.Publish(e.topic, data)
		}
	}

	select {
	case e.ch <- ev:
	default:
		slog.Warn("event buffer full, dropping event", "run", e.runID, "type", ev.Type)
	}

	if isDone {
		close(e.ch)
	}
}

func (e *Emitter) StageStart(stageID, label, modelID string) {
	e.emit(Event{Type: EventStageStart, StageID: stageID, Label: label, ModelID: modelID}, false)
}

func (e *Emitter) StageDelta(stageID, delta string) {
	e.emit(Event{Type: EventStageDelta, StageID: stageID, TextDelta: delta}, false)
}

func (e *Emitter) StageEnd(stageID, preview string, durationMs int64) {
	e.emit(Event{Type: EventStageEnd, StageID: stageID, Preview: preview, DurationMs: durationMs}, false)
}

func (e *Emitter) CouncilProgress(completed, total int, stances map[string]int) {
	// Copy: the caller keeps mutating its tally between emissions.
	counts := make(map[string]int, len(stances))
	for k, v := range stances {
		counts[k] = v
	}
	e.emit(Event{Type: EventCouncilProgress, Completed: completed, Total: total, StanceCounts: counts}, false)
}

func (e *Emitter) FinalAnswerStart() {
	e.emit(Event{Type: EventFinalAnswerStart}, false)
}

func (e *Emitter) FinalAnswerDelta(delta string) {
	e.emit(Event{Type: EventFinalAnswerDelta, Delta: delta}, false)
}

func (e *Emitter) FinalAnswerEnd(content string) {
	e.emit(Event{Type: EventFinalAnswerEnd, Content: content}, false)
}

// Error emits the run's error event. Subsequent Error calls are dropped so
// the sequence carries at most one.
func (e *Emitter) Error(stageID, modelID, errType, message string) {
	e.mu.Lock()
	if e.errored {
		e.mu.Unlock()
		return
	}
	e.errored = true
	e.mu.Unlock()

	e.emit(Event{Type: EventError, StageID: stageID, ModelID: modelID, ErrorType: errType, Message: message}, false)
}

// Suppress drops all further stage and answer events. The done event still
// goes through so clients can release resources deterministically. Used on
// cancellation.
func (e *Emitter) Suppress() {
	e.mu.Lock()
	e.suppressed = true
	e.mu.Unlock()
}

// Done terminates the sequence and closes the event channel. Safe to call
// once; later emits are no-ops.
func (e *Emitter) Done() {
	e.emit(Event{Type: EventDone}, true)
}
