package messaging

import "strings"

// Default subjects and queue group for the event listener.
// Event subjects follow the pattern: events.{category}.{level}, e.g. events.log.INFO.
const (
	SubjectEventsPrefix = "events."
	SubjectAllEvents    = "events.>"
	QueueIndexers       = "eventlog-indexers"

	SubjectDeadLetter = "eventlog.dlq"
	StreamDeadLetter  = "EVENTLOG_DLQ"
)

// HeaderEventTopic carries an explicit topic that overrides the subject mapping.
const HeaderEventTopic = "Event-Topic"

// SubjectToTopic maps a bus subject to an event topic. The prefix is
// stripped and the remaining tokens are joined with "/" instead of ".",
// so events.log.INFO becomes log/INFO.
func SubjectToTopic(subject, prefix string) string {
	return strings.ReplaceAll(strings.TrimPrefix(subject, prefix), ".", "/")
}
