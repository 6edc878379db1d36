package voicebus

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// Event is a decoded daemon signal. Exactly four variants exist; anything
// else on the wire is dropped by the decoder before it reaches a handler.
type Event interface {
	isEvent()
}

// Complete carries the final text for one transcription segment.
type Complete struct {
	Text    string
	Segment int32
}

// Delta carries an incremental streaming fragment of the utterance in
// progress. The daemon sends fragments, not full partial texts; consumers
// accumulate them.
type Delta struct {
	Text string
}

// ProcessingStarted announces that the daemon began transcribing a segment.
type ProcessingStarted struct {
	Segment int32
}

// DaemonError is an explicit fault reported by the daemon. All in-flight
// work on the daemon side may have been aborted when this arrives.
type DaemonError struct {
	Message string
}

func (Complete) isEvent()          {}
func (Delta) isEvent()             {}
func (ProcessingStarted) isEvent() {}
func (DaemonError) isEvent()       {}

// Signal members emitted by the daemon.
const (
	memberComplete          = "TranscriptionComplete"
	memberDelta             = "TranscriptionDelta"
	memberProcessingStarted = "ProcessingStarted"
	memberError             = "Error"

	// Emitted by the daemon but carrying no client-side state; recognized
	// so they are not reported as decode failures.
	memberRecordingStarted = "RecordingStarted"
	memberRecordingStopped = "RecordingStopped"
)

// DecodeSignal classifies a raw bus signal by (interface, path, member) and
// decodes its body into an Event. A nil Event with nil error means the
// signal is recognized but carries nothing for the session. Malformed or
// unknown signals return an error; callers log and drop them.
func DecodeSignal(sig *dbus.Signal, opts Options) (Event, error) {
	iface, member, ok := splitSignalName(sig.Name)
	if !ok || iface != opts.Interface {
		return nil, fmt.Errorf("signal %q: not a %s signal", sig.Name, opts.Interface)
	}
	if sig.Path != dbus.ObjectPath(opts.Path) {
		return nil, fmt.Errorf("signal %s: unexpected path %q", member, sig.Path)
	}

	switch member {
	case memberComplete:
		text, seg, err := stringInt32Body(sig.Body)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", member, err)
		}
		return Complete{Text: text, Segment: seg}, nil

	case memberDelta:
		text, err := stringBody(sig.Body)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", member, err)
		}
		return Delta{Text: text}, nil

	case memberProcessingStarted:
		seg, err := int32Body(sig.Body)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", member, err)
		}
		return ProcessingStarted{Segment: seg}, nil

	case memberError:
		msg, err := stringBody(sig.Body)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", member, err)
		}
		return DaemonError{Message: msg}, nil

	case memberRecordingStarted, memberRecordingStopped:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown signal %s.%s", iface, member)
	}
}

func splitSignalName(name string) (iface, member string, ok bool) {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

func stringBody(body []interface{}) (string, error) {
	if len(body) != 1 {
		return "", fmt.Errorf("want 1 argument, got %d", len(body))
	}
	s, ok := body[0].(string)
	if !ok {
		return "", fmt.Errorf("argument 0: want string, got %T", body[0])
	}
	return s, nil
}

func int32Body(body []interface{}) (int32, error) {
	if len(body) != 1 {
		return 0, fmt.Errorf("want 1 argument, got %d", len(body))
	}
	n, ok := body[0].(int32)
	if !ok {
		return 0, fmt.Errorf("argument 0: want int32, got %T", body[0])
	}
	return n, nil
}

func stringInt32Body(body []interface{}) (string, int32, error) {
	if len(body) != 2 {
		return "", 0, fmt.Errorf("want 2 arguments, got %d", len(body))
	}
	s, ok := body[0].(string)
	if !ok {
		return "", 0, fmt.Errorf("argument 0: want string, got %T", body[0])
	}
	n, ok := body[1].(int32)
	if !ok {
		return "", 0, fmt.Errorf("argument 1: want int32, got %T", body[1])
	}
	return s, n, nil
}
