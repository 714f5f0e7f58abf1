package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func decodeLast(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var record map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &record); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	return record
}

func TestChildLoggersCarryAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Service: "reservations"})

	log.WithActor("cust-1", "customer").WithReservation("r1").Info("Reservation cancelled")

	record := decodeLast(t, &buf)
	want := map[string]string{
		SERVICE:          "reservations",
		ActorIDKey:       "cust-1",
		ActorRoleKey:     "customer",
		ReservationIDKey: "r1",
	}
	for key, value := range want {
		if record[key] != value {
			t.Errorf("%s = %v, want %s", key, record[key], value)
		}
	}
}

func TestForPrefersRequestLogger(t *testing.T) {
	var base, scoped bytes.Buffer
	log := New(Config{Output: &base})
	requestLog := New(Config{Output: &scoped}).With(RequestIDKey, "req-1")

	log.For(context.Background()).Info("no request")
	if base.Len() == 0 {
		t.Fatal("expected fallback to the base logger")
	}

	ctx := NewContext(context.Background(), requestLog)
	log.For(ctx).Info("in request")
	if got := decodeLast(t, &scoped)[RequestIDKey]; got != "req-1" {
		t.Errorf("request_id = %v, want req-1", got)
	}
}
