package activity

import (
	"fmt"
	"time"
)

// Verbs emitted by the preset stack.
const (
	VerbPresetStaged    = "preset.staged"
	VerbPresetCommitted = "preset.committed"
	VerbPresetApplied   = "preset.applied"
	VerbPresetUnapplied = "preset.unapplied"
	VerbPresetRemoved   = "preset.removed"
	VerbStackEnabled    = "stack.enabled"
	VerbStackDisabled   = "stack.disabled"
	VerbStackValidated  = "stack.validated"
)

// ObjectTypePreset is the object type attached to preset-level events.
const ObjectTypePreset = "preset"

// ObjectTypeStack is the object type attached to stack-level events.
const ObjectTypeStack = "stack"

// DefaultStackID names stack-level events for hosts running a single stack.
const DefaultStackID = "default"

// StackEventInput carries the fields the stack knows when emitting an event.
type StackEventInput struct {
	PresetID   string
	StackUID   int
	StackID    string
	ActorID    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// PresetStagedEvent describes a preset entering the staging slot.
func PresetStagedEvent(input StackEventInput) Event {
	return presetEvent(VerbPresetStaged, input)
}

// PresetCommittedEvent describes a staged preset promoted into the stack.
func PresetCommittedEvent(input StackEventInput) Event {
	return presetEvent(VerbPresetCommitted, input)
}

// PresetAppliedEvent describes a stack element writing its values.
func PresetAppliedEvent(input StackEventInput) Event {
	return presetEvent(VerbPresetApplied, input)
}

// PresetUnappliedEvent describes a stack element restoring saved values.
func PresetUnappliedEvent(input StackEventInput) Event {
	return presetEvent(VerbPresetUnapplied, input)
}

// PresetRemovedEvent describes an element leaving the stack.
func PresetRemovedEvent(input StackEventInput) Event {
	return presetEvent(VerbPresetRemoved, input)
}

// StackEnabledEvent describes the stack turning on.
func StackEnabledEvent(input StackEventInput) Event {
	return stackEvent(VerbStackEnabled, input)
}

// StackDisabledEvent describes the stack turning off.
func StackDisabledEvent(input StackEventInput) Event {
	return stackEvent(VerbStackDisabled, input)
}

// StackValidatedEvent describes a validation sweep over the stack.
func StackValidatedEvent(input StackEventInput) Event {
	return stackEvent(VerbStackValidated, input)
}

func presetEvent(verb string, input StackEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.StackUID >= 0 {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["stack_uid"] = input.StackUID
	}
	return Event{
		Verb:       verb,
		ActorID:    input.ActorID,
		ObjectType: ObjectTypePreset,
		ObjectID:   input.PresetID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func stackEvent(verb string, input StackEventInput) Event {
	objectID := input.StackID
	if objectID == "" {
		objectID = DefaultStackID
	}
	return Event{
		Verb:       verb,
		ActorID:    input.ActorID,
		ObjectType: ObjectTypeStack,
		ObjectID:   objectID,
		Metadata:   cloneMap(input.Metadata),
		OccurredAt: input.OccurredAt,
	}
}

// FormatEvent renders a short human-readable line, mostly for debug logs.
func FormatEvent(event Event) string {
	return fmt.Sprintf("%s %s/%s", event.Verb, event.ObjectType, event.ObjectID)
}
