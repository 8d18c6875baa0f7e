package events

import (
	"fmt"
	"strings"
	"time"
)

// Event represents a single occurrence in the evaluation or review lifecycle
type Event struct {
	// Time is when the event occurred (set by bus on emit)
	Time time.Time `json:"time"`

	// Type identifies what happened
	Type EventType `json:"type"`

	// Scenario is the scenario ID this event relates to (empty for suite events)
	Scenario string `json:"scenario,omitempty"`

	// MR is the merge request IID (nil if not MR-related)
	MR *int `json:"mr,omitempty"`

	// Payload contains event-specific data (type varies by event)
	Payload any `json:"payload,omitempty"`

	// Error contains error message if this is a failure event
	Error string `json:"error,omitempty"`
}

// EventType is a string constant identifying the event category
type EventType string

// Suite lifecycle events
const (
	SuiteStarted   EventType = "suite.started"
	SuiteCompleted EventType = "suite.completed"
	SuiteFailed    EventType = "suite.failed"
)

// Scenario lifecycle events
const (
	ScenarioStarted     EventType = "scenario.started"
	ScenarioProvisioned EventType = "scenario.provisioned"
	ScenarioTested      EventType = "scenario.tested"
	ScenarioPassed      EventType = "scenario.passed"
	ScenarioFailed      EventType = "scenario.failed"
	ScenarioErrored     EventType = "scenario.errored"
)

// Review state machine events
const (
	ReviewStarted         EventType = "review.started"
	ReviewLeadVerdict     EventType = "review.lead.verdict"
	ReviewLeadMalformed   EventType = "review.lead.malformed"
	ReviewShortCircuit    EventType = "review.short_circuit"
	ReviewSuggestions     EventType = "review.suggestions"
	ReviewPatchApplied    EventType = "review.patch.applied"
	ReviewPatchUnapplied  EventType = "review.patch.unapplied"
	ReviewLabelSet        EventType = "review.label.set"
	ReviewCommentPosted   EventType = "review.comment.posted"
	ReviewCompleted       EventType = "review.completed"
	ReviewFailed          EventType = "review.failed"
)

// Webhook server events
const (
	WebhookReceived   EventType = "webhook.received"
	WebhookDuplicate  EventType = "webhook.duplicate"
	WebhookProcessed  EventType = "webhook.processed"
	WebhookRejected   EventType = "webhook.rejected"
	WebhookFailed     EventType = "webhook.failed"
)

// NewEvent creates an event with the given type and scenario
func NewEvent(eventType EventType, scenario string) Event {
	return Event{
		Type:     eventType,
		Scenario: scenario,
	}
}

// WithMR returns a copy of the event with the MR number set
func (e Event) WithMR(mr int) Event {
	e.MR = &mr
	return e
}

// WithPayload returns a copy of the event with the payload set
func (e Event) WithPayload(payload any) Event {
	e.Payload = payload
	return e
}

// WithError returns a copy of the event with the error message set
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// IsFailure returns true if this is a failure event type
func (e Event) IsFailure() bool {
	return strings.HasSuffix(string(e.Type), ".failed")
}

// String returns a human-readable representation of the event
func (e Event) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Type))

	if e.Scenario != "" {
		parts = append(parts, e.Scenario)
	}

	if e.MR != nil {
		parts = append(parts, fmt.Sprintf("mr=!%d", *e.MR))
	}

	return strings.Join(parts, " ")
}
