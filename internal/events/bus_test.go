package events

import (
	"errors"
	"testing"
	"time"
)

func TestEmit_RegistrationOrder(t *testing.T) {
	b := NewBus()

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		if err := b.Register(SessionStart, func(map[string]any) error {
			order = append(order, name)
			return nil
		}); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	b.Emit(SessionStart, nil)

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("ran %d listeners, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("listener %d = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestEmit_ListenerErrorDoesNotHaltOthers(t *testing.T) {
	b := NewBus()

	ran := false
	b.Register(PreHandoff, func(map[string]any) error {
		return errors.New("listener exploded")
	})
	b.Register(PreHandoff, func(map[string]any) error {
		ran = true
		return nil
	})

	b.Emit(PreHandoff, map[string]any{"from": "reviewer"})

	if !ran {
		t.Error("listener after the failing one did not run")
	}
}

func TestEmit_ListenerErrorForwardedAsErrorEvent(t *testing.T) {
	b := NewBus()

	var got map[string]any
	b.Register(Error, func(data map[string]any) error {
		got = data
		return nil
	})
	b.Register(PostSkillCall, func(map[string]any) error {
		return errors.New("skill listener failed")
	})

	b.Emit(PostSkillCall, nil)

	if got == nil {
		t.Fatal("error event was not emitted")
	}
	if got["source_event"] != PostSkillCall {
		t.Errorf("source_event = %v, want %s", got["source_event"], PostSkillCall)
	}
}

func TestEmit_ErrorListenerFailureDoesNotRecurse(t *testing.T) {
	b := NewBus()

	calls := 0
	b.Register(Error, func(map[string]any) error {
		calls++
		return errors.New("the error listener itself fails")
	})

	b.Emit(Error, map[string]any{"error": "original"})

	if calls != 1 {
		t.Errorf("error listener ran %d times, want 1 (no re-wrapping cycle)", calls)
	}
}

func TestEmit_StampsTimestamp(t *testing.T) {
	b := NewBus()

	var got map[string]any
	b.Register(SessionStart, func(data map[string]any) error {
		got = data
		return nil
	})

	b.Emit(SessionStart, nil)

	if got == nil {
		t.Fatal("listener did not run")
	}
	ts, _ := got["timestamp"].(string)
	if ts == "" {
		t.Fatalf("payload has no timestamp: %v", got)
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", ts, err)
	}

	// A caller-provided timestamp is left alone.
	b.Emit(SessionStart, map[string]any{"timestamp": "caller-set"})
	if got["timestamp"] != "caller-set" {
		t.Errorf("timestamp = %v, want caller-set value preserved", got["timestamp"])
	}
}

func TestRegister_RejectsUnknownEvent(t *testing.T) {
	b := NewBus()
	if err := b.Register("made_up_event", func(map[string]any) error { return nil }); err == nil {
		t.Error("expected error for unknown event name")
	}
}

func TestUnregister_RemovesListener(t *testing.T) {
	b := NewBus()

	calls := 0
	fn := func(map[string]any) error {
		calls++
		return nil
	}
	b.Register(SessionEnd, fn)
	b.Emit(SessionEnd, nil)
	b.Unregister(SessionEnd, fn)
	b.Emit(SessionEnd, nil)

	if calls != 1 {
		t.Errorf("listener ran %d times, want 1", calls)
	}
}
