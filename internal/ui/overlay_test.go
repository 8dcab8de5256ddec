package ui

import (
	"fmt"
	"testing"
	"time"

	"posenet-live-go/config"
)

func newTestController(t *testing.T, refreshRate float64) (*Controller, *time.Time) {
	t.Helper()
	c := NewController(config.OverlayConfig{
		ShowPoseCount:  true,
		ShowFPS:        true,
		FPSRefreshRate: refreshRate,
		TextColor:      "#00FF00",
	})
	clock := time.Unix(1000, 0)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestPoseCountText(t *testing.T) {
	c, _ := newTestController(t, 0.1)

	for _, n := range []int{0, 1, 42} {
		c.SetPoseCount(n)
		text, visible := c.PoseCountText()
		if !visible {
			t.Fatalf("pose count must be visible when enabled")
		}
		want := fmt.Sprintf("Poses Detected: %d", n)
		if text != want {
			t.Errorf("pose count text %q, want %q", text, want)
		}
	}
}

func TestPoseCountHiddenWhenDisabled(t *testing.T) {
	c, _ := newTestController(t, 0.1)
	c.SetPoseCount(5)
	c.SetShowPoseCount(false)

	if _, visible := c.PoseCountText(); visible {
		t.Error("pose count must be hidden when the toggle is off")
	}
}

func TestFPSTextRateLimited(t *testing.T) {
	c, clock := newTestController(t, 0.1)

	// Erster Tick etabliert nur die Zeitbasis
	c.Tick()

	*clock = clock.Add(20 * time.Millisecond)
	c.Tick()
	first, visible := c.FPSText()
	if !visible {
		t.Fatal("FPS text should be visible after the second tick")
	}
	if first != "FPS: 50" {
		t.Errorf("FPS text %q, want %q", first, "FPS: 50")
	}

	// Zwei Aktualisierungen im Abstand von 0,05s bei 0,1s Intervall:
	// der angezeigte Wert darf sich nicht ändern
	*clock = clock.Add(50 * time.Millisecond)
	c.Tick()
	second, _ := c.FPSText()
	if second != first {
		t.Errorf("FPS text changed within refresh interval: %q -> %q", first, second)
	}

	// Nach Ablauf des Intervalls wird neu berechnet
	*clock = clock.Add(60 * time.Millisecond)
	c.Tick()
	third, _ := c.FPSText()
	if third != "FPS: 16" {
		t.Errorf("FPS text %q, want %q", third, "FPS: 16")
	}
}

func TestFPSHiddenWhenDisabled(t *testing.T) {
	c, clock := newTestController(t, 0.1)
	c.Tick()
	*clock = clock.Add(20 * time.Millisecond)
	c.Tick()

	c.SetShowFPS(false)
	if _, visible := c.FPSText(); visible {
		t.Error("FPS text must be hidden when the toggle is off")
	}
}
