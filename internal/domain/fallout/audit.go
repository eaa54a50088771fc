package fallout

import "time"

// EventType enumerates the transitions written to the fallout log.
type EventType string

const (
	EventSkippedNotFailed        EventType = "SkippedNotFailed"
	EventDispatched              EventType = "Dispatched"
	EventDispatchFailed          EventType = "DispatchFailed"
	EventValidationFailed        EventType = "ValidationFailed"
	EventResolved                EventType = "Resolved"
	EventEscalated               EventType = "Escalated"
	EventHumanInterventionNeeded EventType = "HumanInterventionNeeded"
	EventHumanResolved           EventType = "HumanResolved"
	EventWorkflowAborted         EventType = "WorkflowAborted"
)

// LogEntry is one immutable audit record. Seq is assigned by the store and
// only used as a relay cursor; ordering per order is by Timestamp.
type LogEntry struct {
	Seq         uint64
	LogID       string
	OrderID     string
	EventType   EventType
	Description string
	Timestamp   time.Time
}
