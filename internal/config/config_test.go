package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("ARCADE_TEST_STR", "value")
	t.Setenv("ARCADE_TEST_INT", "42")
	t.Setenv("ARCADE_TEST_BAD_INT", "forty-two")
	t.Setenv("ARCADE_TEST_DUR", "250ms")

	if got := GetEnv("ARCADE_TEST_STR", "x"); got != "value" {
		t.Fatalf("GetEnv = %q, want %q", got, "value")
	}
	if got := GetEnv("ARCADE_TEST_MISSING", "x"); got != "x" {
		t.Fatalf("GetEnv missing = %q, want fallback", got)
	}
	if got := GetEnvInt("ARCADE_TEST_INT", 1); got != 42 {
		t.Fatalf("GetEnvInt = %d, want 42", got)
	}
	if got := GetEnvInt("ARCADE_TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("GetEnvInt bad = %d, want fallback 7", got)
	}
	if got := GetEnvDuration("ARCADE_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("GetEnvDuration = %v, want 250ms", got)
	}
}

func TestLoadDotenvMissingFileIgnored(t *testing.T) {
	if err := LoadDotenv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}
}

func TestLoadDotenvSetsVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ARCADE_DOTENV_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARCADE_DOTENV_KEY", "")
	os.Unsetenv("ARCADE_DOTENV_KEY")

	if err := LoadDotenv(path); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	if got := os.Getenv("ARCADE_DOTENV_KEY"); got != "from-file" {
		t.Fatalf("ARCADE_DOTENV_KEY = %q, want from-file", got)
	}
}

type partial struct {
	BallSpeed float64       `yaml:"ball_speed"`
	MaxScore  int           `yaml:"max_score"`
	Delay     time.Duration `yaml:"delay"`
}

func TestSettingsOverrideKeepsUnsetFields(t *testing.T) {
	s, err := ParseSettings([]byte(`
lobby:
  challenge_ttl: 45s
games:
  pong:
    ball_speed: 9
    delay: 2s
`))
	if err != nil {
		t.Fatalf("ParseSettings: %v", err)
	}
	if s.Lobby.ChallengeTTL != 45*time.Second {
		t.Fatalf("challenge_ttl = %v, want 45s", s.Lobby.ChallengeTTL)
	}

	p := partial{BallSpeed: 5, MaxScore: 5, Delay: time.Second}
	if err := s.Override("pong", &p); err != nil {
		t.Fatalf("Override: %v", err)
	}
	if p.BallSpeed != 9 || p.Delay != 2*time.Second {
		t.Fatalf("override not applied: %+v", p)
	}
	if p.MaxScore != 5 {
		t.Fatalf("max_score changed to %d, want untouched 5", p.MaxScore)
	}

	q := partial{BallSpeed: 3}
	if err := s.Override("volley", &q); err != nil {
		t.Fatalf("Override missing game: %v", err)
	}
	if q.BallSpeed != 3 {
		t.Fatalf("missing section should not change values")
	}
}

func TestParseSettingsRejectsScalarGame(t *testing.T) {
	if _, err := ParseSettings([]byte("games:\n  pong: fast\n")); err == nil {
		t.Fatal("expected error for scalar game section")
	}
}

func TestNilSettingsOverride(t *testing.T) {
	var s *Settings
	p := partial{BallSpeed: 1}
	if err := s.Override("pong", &p); err != nil {
		t.Fatalf("nil settings: %v", err)
	}
	st := NewSettingsStore(nil)
	if err := st.Override("pong", &p); err != nil {
		t.Fatalf("empty store: %v", err)
	}
	if p.BallSpeed != 1 {
		t.Fatalf("value changed without settings")
	}
}

func TestWatchReloadsAfterTruncatingSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("games:\n  pong:\n    max_score: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	st := NewSettingsStore(s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, st, log.New(io.Discard)) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	// Truncate first, then write, like `>` in a shell.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := f.WriteString("games:\n  pong:\n    max_score: 9\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	maxScore := func() int {
		var p partial
		if err := st.Override("pong", &p); err != nil {
			t.Fatal(err)
		}
		return p.MaxScore
	}
	deadline := time.Now().Add(2 * time.Second)
	for maxScore() != 9 {
		if time.Now().After(deadline) {
			t.Fatalf("pong max_score = %d after save, want 9", maxScore())
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(3 * reloadDebounce)
	if got := maxScore(); got != 9 {
		t.Fatalf("pong max_score = %d after settling, want 9", got)
	}
}

func TestWatchKeepsSettingsOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("games:\n  pong:\n    max_score: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	st := NewSettingsStore(s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, st, log.New(io.Discard)) }()
	defer func() {
		cancel()
		<-done
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("games:\n  pong: fast\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * reloadDebounce)
	if st.Load() != s {
		t.Fatal("invalid file replaced the current settings")
	}
}
