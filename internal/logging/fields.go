package logging

import "log/slog"

// Common field names for consistent logging.
const (
	FieldService   = "service"
	FieldRequestID = "request_id"
	FieldTopic     = "topic"
	FieldIndex     = "index"
	FieldDocType   = "doc_type"
	FieldStage     = "stage"
	FieldSubject   = "subject"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Topic returns a slog attribute for an event topic.
func Topic(topic string) slog.Attr {
	return slog.String(FieldTopic, topic)
}

// Index returns a slog attribute for a destination index.
func Index(index string) slog.Attr {
	return slog.String(FieldIndex, index)
}

// DocType returns a slog attribute for the document type label.
func DocType(docType string) slog.Attr {
	return slog.String(FieldDocType, docType)
}

// Stage returns a slog attribute for the pipeline stage that failed.
func Stage(stage string) slog.Attr {
	return slog.String(FieldStage, stage)
}

// Subject returns a slog attribute for a message bus subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
