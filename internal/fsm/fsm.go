// Package fsm defines the consultation lifecycle as a pure transition table.
package fsm

import "fmt"

type State string

type Event string

// Effect names the side effect the owner must perform after a transition.
type Effect string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
	StateReview     State = "review"
	StateError      State = "error"
)

const (
	EventStart     Event = "start"
	EventStop      Event = "stop"
	EventGenerated Event = "generated"
	EventFail      Event = "fail"
	EventReset     Event = "reset"
)

const (
	EffectNone         Effect = ""
	EffectBeginCapture Effect = "begin_capture"
	EffectGenerate     Effect = "generate"
	EffectStoreResult  Effect = "store_result"
	EffectReport       Effect = "report"
	EffectClear        Effect = "clear"
)

func Transition(current State, event Event) (State, Effect, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, EffectBeginCapture, nil
		case EventFail:
			// capture could not be opened
			return StateError, EffectReport, nil
		case EventReset:
			return StateIdle, EffectClear, nil
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateProcessing, EffectGenerate, nil
		case EventFail:
			return StateError, EffectReport, nil
		}
	case StateProcessing:
		switch event {
		case EventGenerated:
			return StateReview, EffectStoreResult, nil
		case EventFail:
			return StateError, EffectReport, nil
		}
	case StateReview, StateError:
		if event == EventReset {
			return StateIdle, EffectClear, nil
		}
	default:
		return current, EffectNone, fmt.Errorf("unknown state %q", current)
	}
	return current, EffectNone, invalidTransition(current, event)
}

// Accepts reports whether event is valid from current without applying it.
func Accepts(current State, event Event) bool {
	_, _, err := Transition(current, event)
	return err == nil
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
