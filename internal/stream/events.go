// Package stream defines the ordered push-protocol events describing
// pipeline progress, the emitter that produces them, and the client-side
// state machine that consumes them.
package stream

// EventType enumerates the closed set of stream event kinds.
type EventType string

const (
	EventStageStart       EventType = "stage_start"
	EventStageDelta       EventType = "stage_delta"
	EventStageEnd         EventType = "stage_end"
	EventCouncilProgress  EventType = "council_progress"
	EventFinalAnswerStart EventType = "final_answer_start"
	EventFinalAnswerDelta EventType = "final_answer_delta"
	EventFinalAnswerEnd   EventType = "final_answer_end"
	EventError            EventType = "error"
	EventDone             EventType = "done"
)

// Event is one unit of the push protocol. The wire shape is one JSON object
// per line; fields irrelevant to the event type are omitted.
type Event struct {
	Type EventType `json:"type"`

	StageID string `json:"stageId,omitempty"`
	Label   string `json:"label,omitempty"`
	ModelID string `json:"modelId,omitempty"`

	TextDelta  string `json:"textDelta,omitempty"`
	Preview    string `json:"preview,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`

	Completed    int            `json:"completed,omitempty"`
	Total        int            `json:"total,omitempty"`
	StanceCounts map[string]int `json:"stanceCounts,omitempty"`

	Delta   string `json:"delta,omitempty"`
	Content string `json:"content,omitempty"`

	Message   string `json:"message,omitempty"`
	ErrorType string `json:"errorType,omitempty"`
}
