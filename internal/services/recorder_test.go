package services

import (
	"testing"

	"posenet-live-go/internal/core/pose"
)

// Recorder ohne Datenbank: nur die Änderungserkennung wird geprüft
func TestRecorderTracksCountChanges(t *testing.T) {
	r := NewRecorder(nil, "test")

	one := []pose.Pose{{Score: 0.9}}
	two := []pose.Pose{{Score: 0.9}, {Score: 0.8}}

	r.Observe(one)
	if !r.haveCount || r.lastCount != 1 {
		t.Fatalf("first observation not recorded: have=%v last=%d", r.haveCount, r.lastCount)
	}

	r.Observe(one)
	if r.lastCount != 1 {
		t.Errorf("unchanged count must not reset state")
	}

	r.Observe(two)
	if r.lastCount != 2 {
		t.Errorf("count change not tracked, last=%d", r.lastCount)
	}

	r.Observe(nil)
	if r.lastCount != 0 {
		t.Errorf("empty frame must track count 0, last=%d", r.lastCount)
	}
}
