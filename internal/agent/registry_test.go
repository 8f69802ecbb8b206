package agent

import (
	"errors"
	"testing"
	"time"
)

func TestRegistry_OneSessionPerID(t *testing.T) {
	r := NewRegistry()
	a, err := r.Acquire("s1", func() *Session { return NewSession(newFakeTransport(), nil) })
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	created := false
	b, err := r.Acquire("s1", func() *Session { created = true; return nil })
	if !errors.Is(err, ErrSessionBusy) || b != a || created {
		t.Fatalf("second acquire: %v %v %v", b, err, created)
	}

	r.Release("s1", NewSession(newFakeTransport(), nil))
	if r.Len() != 1 {
		t.Fatal("release with a stale handle removed the live one")
	}
	r.Release("s1", a)
	if r.Len() != 0 {
		t.Fatal("handle still registered")
	}
}

func TestTimer_PauseResume(t *testing.T) {
	now := time.Unix(100, 0)
	tm := NewTimer(func() time.Time { return now })
	tm.Resume()
	now = now.Add(5 * time.Second)
	tm.Pause()
	now = now.Add(time.Hour)
	tm.Resume()
	tm.Resume()
	now = now.Add(2 * time.Second)
	if got := tm.Elapsed(); got != 7*time.Second {
		t.Fatalf("elapsed = %v", got)
	}
	tm.Reset()
	if tm.Elapsed() != 0 {
		t.Fatal("reset did not zero")
	}
}
