package presets

import (
	"testing"

	"github.com/goliatone/go-presets/pkg/activity"
)

func TestStackEmitsActivityEvents(t *testing.T) {
	capture := activity.NewCaptureHook()
	stack, _, _ := newStackFixture(t, []Preset{pathXPreset("warm", 5)},
		WithActivity(capture),
	)

	mustCommit(t, stack, "warm")
	if _, err := stack.Remove(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := stack.Disable(); err != nil {
		t.Fatalf("disable: %v", err)
	}

	for _, verb := range []string{
		activity.VerbPresetApplied,
		activity.VerbPresetStaged,
		activity.VerbPresetCommitted,
		activity.VerbPresetUnapplied,
		activity.VerbPresetRemoved,
		activity.VerbStackDisabled,
	} {
		if len(capture.EventsByVerb(verb)) == 0 {
			t.Fatalf("expected %s event, got %d total events", verb, capture.Len())
		}
	}

	committed := capture.EventsByVerb(activity.VerbPresetCommitted)
	if committed[0].ObjectID != "warm" || committed[0].Metadata["stack_uid"] != 0 {
		t.Fatalf("unexpected committed event %+v", committed[0])
	}
	if committed[0].Channel != "presets" {
		t.Fatalf("expected default channel, got %q", committed[0].Channel)
	}
}

func TestStackActivityDisabledByDefault(t *testing.T) {
	capture := activity.NewCaptureHook()
	stack, _, _ := newStackFixture(t, []Preset{pathXPreset("warm", 5)},
		WithActivityHooks(capture),
	)

	mustCommit(t, stack, "warm")
	if capture.Len() != 0 {
		t.Fatalf("hooks without enabled config must stay silent, got %d events", capture.Len())
	}
}
