package logger

import (
	"errors"
	"testing"

	"nhkeasy/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid config with info level",
			cfg:     &config.LoggingConfig{Level: "info"},
			wantErr: false,
		},
		{
			name:    "valid config with debug level",
			cfg:     &config.LoggingConfig{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "warning alias",
			cfg:     &config.LoggingConfig{Level: "warning"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			cfg:     &config.LoggingConfig{Level: "invalid"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && log == nil {
				t.Fatal("expected a logger instance")
			}
		})
	}
}

func TestTestLoggerCapture(t *testing.T) {
	log := NewTestLogger()

	log.Info("started")
	log.WithField("news_id", "k10001").Warn("image missing")
	log.WithError(errors.New("boom")).Error("extraction failed")

	messages := log.GetMessages()
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}

	if !log.HasMessage("started") {
		t.Error("expected 'started' to be captured")
	}

	warns := log.GetMessagesByLevel("WARN")
	if len(warns) != 1 {
		t.Fatalf("expected 1 warn message, got %d", len(warns))
	}
	if warns[0].Fields["news_id"] != "k10001" {
		t.Errorf("expected news_id field, got %v", warns[0].Fields)
	}

	if !log.HasError() {
		t.Error("expected an error-level message")
	}
	errs := log.GetMessagesByLevel("ERROR")
	if errs[0].Error == nil || errs[0].Error.Error() != "boom" {
		t.Errorf("expected captured error, got %v", errs[0].Error)
	}
}

func TestTestLoggerFieldMerging(t *testing.T) {
	log := NewTestLogger()

	log.WithField("stage", "discovery").WithField("attempt", 2).Info("fallback")

	messages := log.GetMessages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	fields := messages[0].Fields
	if fields["stage"] != "discovery" || fields["attempt"] != 2 {
		t.Errorf("expected merged fields, got %v", fields)
	}
}

func TestTestLoggerClear(t *testing.T) {
	log := NewTestLogger()
	log.Info("one")
	log.Clear()

	if len(log.GetMessages()) != 0 {
		t.Error("expected no messages after Clear")
	}
	if log.String() != "" {
		t.Error("expected empty buffer after Clear")
	}
}
