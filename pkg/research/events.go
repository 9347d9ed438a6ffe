package research

import (
	"time"
)

type EventType string

const (
	EventSessionInit     EventType = "session_init"
	EventStepStart       EventType = "step_start"
	EventStepContent     EventType = "step_content"
	EventStepComplete    EventType = "step_complete"
	EventSource          EventType = "source"
	EventResponseStart   EventType = "response_start"
	EventResponseContent EventType = "response_content"
	EventError           EventType = "error"
	EventDone            EventType = "done"
)

type StepType string

const (
	StepUnderstanding StepType = "understanding"
	StepSearching     StepType = "searching"
	StepExploring     StepType = "exploring"
	StepSynthesizing  StepType = "synthesizing"
)

var stepTitles = map[StepType]string{
	StepUnderstanding: "Understanding your question",
	StepSearching:     "Searching trusted sources",
	StepExploring:     "Exploring sources",
	StepSynthesizing:  "Composing answer",
}

type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
	StatusError      StepStatus = "error"
)

// Source is a discovered page. IDs start at 1 and increase in discovery order.
type Source struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Domain  string `json:"domain"`
	Trusted bool   `json:"trusted"`
}

// Event is one message of a session's stream. Content fields are deltas.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	Step      StepType  `json:"step,omitempty"`
	StepTitle string    `json:"stepTitle,omitempty"`
	Content   string    `json:"content,omitempty"`
	Source    *Source   `json:"source,omitempty"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"timestamp"`
}
