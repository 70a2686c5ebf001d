package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestFieldHelpers(t *testing.T) {
	tests := []struct {
		name  string
		attr  slog.Attr
		key   string
		value string
	}{
		{"service", Service("eventlog"), FieldService, "eventlog"},
		{"topic", Topic("log/INFO"), FieldTopic, "log/INFO"},
		{"index", Index("logs-2024.01.15"), FieldIndex, "logs-2024.01.15"},
		{"doc type", DocType("event"), FieldDocType, "event"},
		{"stage", Stage("dispatch"), FieldStage, "dispatch"},
		{"subject", Subject("log.INFO"), FieldSubject, "log.INFO"},
		{"error", Error(errors.New("boom")), FieldError, "boom"},
		{"nil error", Error(nil), FieldError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("expected key %q, got %q", tt.key, tt.attr.Key)
			}
			if tt.attr.Value.String() != tt.value {
				t.Errorf("expected value %q, got %q", tt.value, tt.attr.Value.String())
			}
		})
	}
}

func TestDuration(t *testing.T) {
	attr := Duration(150)
	if attr.Key != FieldDuration {
		t.Errorf("expected key %q, got %q", FieldDuration, attr.Key)
	}
	if attr.Value.Int64() != 150 {
		t.Errorf("expected value 150, got %d", attr.Value.Int64())
	}
}
