package voicebus

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func daemonSignal(member string, body ...interface{}) *dbus.Signal {
	return &dbus.Signal{
		Sender: ":1.42",
		Path:   dbus.ObjectPath(DefaultPath),
		Name:   DefaultInterface + "." + member,
		Body:   body,
	}
}

func TestDecodeSignalVariants(t *testing.T) {
	opts := Options{}.withDefaults()

	tests := []struct {
		name string
		sig  *dbus.Signal
		want Event
	}{
		{
			name: "complete",
			sig:  daemonSignal("TranscriptionComplete", "hello world", int32(7)),
			want: Complete{Text: "hello world", Segment: 7},
		},
		{
			name: "delta",
			sig:  daemonSignal("TranscriptionDelta", "hel"),
			want: Delta{Text: "hel"},
		},
		{
			name: "processing started",
			sig:  daemonSignal("ProcessingStarted", int32(3)),
			want: ProcessingStarted{Segment: 3},
		},
		{
			name: "error",
			sig:  daemonSignal("Error", "model load failed"),
			want: DaemonError{Message: "model load failed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSignal(tt.sig, opts)
			if err != nil {
				t.Fatalf("DecodeSignal: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeSignalRecordingLifecycleIgnored(t *testing.T) {
	opts := Options{}.withDefaults()

	for _, member := range []string{"RecordingStarted", "RecordingStopped"} {
		ev, err := DecodeSignal(daemonSignal(member), opts)
		if err != nil {
			t.Errorf("%s: unexpected error %v", member, err)
		}
		if ev != nil {
			t.Errorf("%s: expected no event, got %#v", member, ev)
		}
	}
}

func TestDecodeSignalRejectsMalformed(t *testing.T) {
	opts := Options{}.withDefaults()

	tests := []struct {
		name string
		sig  *dbus.Signal
	}{
		{"unknown member", daemonSignal("TranscriptionPaused", "x")},
		{"wrong interface", &dbus.Signal{
			Path: dbus.ObjectPath(DefaultPath),
			Name: "org.example.Other.TranscriptionDelta",
			Body: []interface{}{"x"},
		}},
		{"wrong path", &dbus.Signal{
			Path: "/org/example/Other",
			Name: DefaultInterface + ".TranscriptionDelta",
			Body: []interface{}{"x"},
		}},
		{"complete missing segment", daemonSignal("TranscriptionComplete", "hello")},
		{"complete wrong segment type", daemonSignal("TranscriptionComplete", "hello", uint32(7))},
		{"delta wrong type", daemonSignal("TranscriptionDelta", int32(1))},
		{"delta extra args", daemonSignal("TranscriptionDelta", "x", "y")},
		{"processing wrong type", daemonSignal("ProcessingStarted", "3")},
		{"error empty body", daemonSignal("Error")},
		{"bare name", &dbus.Signal{
			Path: dbus.ObjectPath(DefaultPath),
			Name: "NoDot",
			Body: []interface{}{"x"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeSignal(tt.sig, opts)
			if err == nil {
				t.Errorf("expected decode error, got event %#v", ev)
			}
		})
	}
}
