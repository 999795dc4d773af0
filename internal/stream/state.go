package stream

import "strings"

// StageStatus is the client-side view of one stage's progress.
type StageStatus string

const (
	StagePending StageStatus = "pending"
	StageActive  StageStatus = "active"
	StageDone    StageStatus = "done"
	StageErrored StageStatus = "error"
)

// StageView is the view-model for one plan stage.
type StageView struct {
	ID         string      `json:"id"`
	Label      string      `json:"label"`
	Status     StageStatus `json:"status"`
	ModelID    string      `json:"modelId,omitempty"`
	Preview    string      `json:"preview,omitempty"`
	DurationMs int64       `json:"durationMs,omitempty"`
}

// State is a pure reducer over the stream event union: transitions are
// driven only by incoming events, never optimistically.
type State struct {
	Stages      []StageView
	FinalAnswer string
	Failed      bool
	Done        bool
	LastError   *Event

	finalBuf strings.Builder
	active   int // index of the active stage, -1 when none
}

// NewState builds the initial state from the plan's stage list.
func NewState(stages []StageView) *State {
	s := &State{Stages: make([]StageView, len(stages)), active: -1}
	copy(s.Stages, stages)
	for i := range s.Stages {
		if s.Stages[i].Status == "" {
			s.Stages[i].Status = StagePending
		}
	}
	return s
}

func (s *State) stageIndex(id string) int {
	for i := range s.Stages {
		if s.Stages[i].ID == id {
			return i
		}
	}
	return -1
}

// Apply folds one event into the state.
func (s *State) Apply(ev Event) {
	if s.Done {
		return
	}
	switch ev.Type {
	case EventStageStart:
		if i := s.stageIndex(ev.StageID); i >= 0 {
			s.Stages[i].Status = StageActive
			if ev.ModelID != "" {
				s.Stages[i].ModelID = ev.ModelID
			}
			if ev.Label != "" {
				s.Stages[i].Label = ev.Label
			}
			s.active = i
		}
	case EventStageDelta:
		if i := s.stageIndex(ev.StageID); i >= 0 {
			s.Stages[i].Preview += ev.TextDelta
		}
	case EventStageEnd:
		if i := s.stageIndex(ev.StageID); i >= 0 {
			s.Stages[i].Status = StageDone
			s.Stages[i].Preview = ev.Preview
			s.Stages[i].DurationMs = ev.DurationMs
			if s.active == i {
				s.active = -1
			}
		}
	case EventCouncilProgress:
		// Progress detail only; stage status is unchanged.
	case EventFinalAnswerStart:
		s.finalBuf.Reset()
	case EventFinalAnswerDelta:
		s.finalBuf.WriteString(ev.Delta)
		s.FinalAnswer = s.finalBuf.String()
	case EventFinalAnswerEnd:
		s.FinalAnswer = ev.Content
	case EventError:
		// The currently active stage and the pipeline are marked errored; no
		// further stage events are expected, only done.
		s.Failed = true
		cp := ev
		s.LastError = &cp
		if i := s.stageIndex(ev.StageID); i >= 0 {
			s.Stages[i].Status = StageErrored
		} else if s.active >= 0 {
			s.Stages[s.active].Status = StageErrored
		}
		s.active = -1
	case EventDone:
		s.Done = true
	}
}

// ResumeIndex returns the index of the first stage that has not completed,
// or -1 when every stage is done. Used to re-enter a paused pipeline.
func (s *State) ResumeIndex() int {
	for i := range s.Stages {
		if s.Stages[i].Status == StagePending || s.Stages[i].Status == StageActive {
			return i
		}
	}
	return -1
}
