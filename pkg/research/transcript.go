package research

import "time"

// Step is the reconstructed state of one pipeline stage.
type Step struct {
	ID        int        `json:"id"`
	Type      StepType   `json:"type"`
	Status    StepStatus `json:"status"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	StartTime time.Time  `json:"startTime"`
	EndTime   time.Time  `json:"endTime,omitzero"`
}

// Transcript is the state a client holds after consuming a session's events.
type Transcript struct {
	SessionID string   `json:"sessionId"`
	Steps     []Step   `json:"steps"`
	Sources   []Source `json:"sources"`
	Response  string   `json:"response"`
	Error     string   `json:"error,omitempty"`
	Done      bool     `json:"done"`
}

// Reduce replays events into a Transcript. Replaying the same events always
// yields the same Transcript.
func Reduce(events []Event) Transcript {
	var t Transcript
	for _, ev := range events {
		t.Apply(ev)
	}
	return t
}

// Apply folds one event into t. Steps never move back to an earlier status and
// content is only appended while a step is in progress.
func (t *Transcript) Apply(ev Event) {
	switch ev.Type {
	case EventSessionInit:
		t.SessionID = ev.SessionID
	case EventStepStart:
		t.Steps = append(t.Steps, Step{
			ID:        len(t.Steps) + 1,
			Type:      ev.Step,
			Status:    StatusInProgress,
			Title:     ev.StepTitle,
			StartTime: ev.Time,
		})
	case EventStepContent:
		if s := t.step(ev.Step); s != nil && s.Status == StatusInProgress {
			s.Content += ev.Content
		}
	case EventStepComplete:
		if s := t.step(ev.Step); s != nil && s.Status == StatusInProgress {
			s.Status = StatusCompleted
			s.EndTime = ev.Time
		}
	case EventSource:
		if ev.Source != nil {
			t.Sources = append(t.Sources, *ev.Source)
		}
	case EventResponseContent:
		t.Response += ev.Content
	case EventError:
		t.Error = ev.Error
		for i := range t.Steps {
			if t.Steps[i].Status == StatusInProgress {
				t.Steps[i].Status = StatusError
				t.Steps[i].EndTime = ev.Time
			}
		}
	case EventDone:
		t.Done = true
	}
}

// step returns the latest step of the given type.
func (t *Transcript) step(typ StepType) *Step {
	for i := len(t.Steps) - 1; i >= 0; i-- {
		if t.Steps[i].Type == typ {
			return &t.Steps[i]
		}
	}
	return nil
}
