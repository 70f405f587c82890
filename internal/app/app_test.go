package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/arcade/internal/protocol"
)

func TestNewRejectsMissingSettings(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing.yaml"), log.New(io.Discard)); err == nil {
		t.Fatal("expected an error for a missing settings file")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("lobby:\n  scan_interval: 10ms\ngames:\n  pong:\n    max_score: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := New(path, log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestShutdownNotifiesConnections(t *testing.T) {
	a, err := New("", log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	alice, err := a.Hub.Connect("alice")
	if err != nil {
		t.Fatal(err)
	}
	defer alice.Close()

	a.Shutdown(time.Second)

	deadline := time.After(time.Second)
	for {
		select {
		case m := <-alice.Messages():
			if ev, ok := m.P.(protocol.Event); ok && ev.Type == protocol.EventServerShutdown {
				return
			}
		case <-deadline:
			t.Fatal("no shutdown event")
		}
	}
}
