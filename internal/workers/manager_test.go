package workers

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
)

type fakeWorker struct {
	name     string
	startErr error
	events   *[]string
}

func (f *fakeWorker) Start() error {
	*f.events = append(*f.events, "start "+f.name)
	return f.startErr
}

func (f *fakeWorker) Stop() {
	*f.events = append(*f.events, "stop "+f.name)
}

func (f *fakeWorker) Name() string { return f.name }

func TestManagerStopsInReverse(t *testing.T) {
	var events []string
	m := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)),
		&fakeWorker{name: "a", events: &events},
		&fakeWorker{name: "b", events: &events},
	)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Stop()

	want := []string{"start a", "start b", "stop b", "stop a"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestManagerUnwindsOnStartFailure(t *testing.T) {
	var events []string
	m := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)),
		&fakeWorker{name: "a", events: &events},
		&fakeWorker{name: "b", events: &events, startErr: errors.New("bad schedule")},
		&fakeWorker{name: "c", events: &events},
	)

	if err := m.Start(); err == nil {
		t.Fatal("expected an error")
	}

	want := []string{"start a", "start b", "stop a"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}
