package healthcheck

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func TestReadiness(t *testing.T) {
	dbUp := true
	w := NewWorker(map[string]Probe{
		"db":      func(context.Context) error { return nil },
		"backend": func(context.Context) error { return nil },
	}, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.probes["db"] = func(context.Context) error {
		if dbUp {
			return nil
		}
		return errors.New("database is locked")
	}

	if w.Ready() {
		t.Error("worker should not be ready before the first round")
	}

	w.checkAll(context.Background())
	if !w.Ready() || len(w.Down()) != 0 {
		t.Errorf("all probes pass: ready=%v down=%v", w.Ready(), w.Down())
	}

	dbUp = false
	w.checkAll(context.Background())
	w.checkAll(context.Background())
	if w.Ready() || !reflect.DeepEqual(w.Down(), []string{"db"}) {
		t.Errorf("db failing: ready=%v down=%v", w.Ready(), w.Down())
	}
	if got := w.statuses["db"].failureCount; got != 2 {
		t.Errorf("failureCount = %d, want 2", got)
	}

	dbUp = true
	w.checkAll(context.Background())
	if !w.Ready() {
		t.Error("worker should recover")
	}
}

func TestStartStop(t *testing.T) {
	w := NewWorker(map[string]Probe{"ok": func(context.Context) error { return nil }}, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !w.Ready() {
		t.Error("Start should run the first round")
	}
	w.Stop()
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 42 * time.Second, want: "42 sec"},
		{d: 3*time.Minute + 5*time.Second, want: "3 min 5 sec"},
		{d: 2*time.Hour + 30*time.Minute, want: "2 h 30 min"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
