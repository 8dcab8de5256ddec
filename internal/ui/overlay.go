package ui

import (
	"fmt"
	"image/color"
	"sync"
	"time"

	"posenet-live-go/config"
)

// Controller verwaltet die beiden Text-Overlays der Anzeige: den
// Posen-Zähler und die FPS-Anzeige. Beide haben unabhängige Schalter, die
// bei jedem Anzeige-Tick neu ausgewertet werden. Der Zustand wird bei
// jedem Prozessstart auf die konfigurierten Standardwerte zurückgesetzt;
// es gibt keine Persistenz.
type Controller struct {
	mu sync.Mutex

	showPoseCount bool
	showFPS       bool
	refresh       time.Duration
	textColor     color.RGBA

	// now liefert eine monotone Uhr; in Tests austauschbar
	now func() time.Time

	poseCountText string
	fpsText       string

	lastTick   time.Time
	haveTick   bool
	lastUpdate time.Time
	haveUpdate bool
}

// NewController erstellt einen Overlay-Controller mit den konfigurierten
// Standardwerten
func NewController(cfg config.OverlayConfig) *Controller {
	return &Controller{
		showPoseCount: cfg.ShowPoseCount,
		showFPS:       cfg.ShowFPS,
		refresh:       time.Duration(cfg.FPSRefreshRate * float64(time.Second)),
		textColor:     cfg.ParseTextColor(),
		now:           time.Now,
		poseCountText: "Poses Detected: 0",
	}
}

// SetPoseCount aktualisiert den Posen-Zähler. Der Text wird push-getrieben
// gesetzt, wenn der Orchestrator eine neue Zählung meldet, nicht pro Tick
// neu berechnet.
func (c *Controller) SetPoseCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.poseCountText = fmt.Sprintf("Poses Detected: %d", n)
}

// Tick wird einmal pro gerendertem Frame von der Host-Schleife aufgerufen.
// Die FPS-Anzeige wird aus dem Kehrwert der letzten Frame-Dauer berechnet,
// aber höchstens einmal pro Aktualisierungsintervall neu gesetzt, damit
// die Zahl lesbar bleibt.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.haveTick {
		c.lastTick = now
		c.haveTick = true
		return
	}

	delta := now.Sub(c.lastTick)
	c.lastTick = now
	if delta <= 0 {
		return
	}

	if c.haveUpdate && now.Sub(c.lastUpdate) < c.refresh {
		return
	}

	fps := int(float64(time.Second) / float64(delta))
	c.fpsText = fmt.Sprintf("FPS: %d", fps)
	c.lastUpdate = now
	c.haveUpdate = true
}

// PoseCountText gibt den Zählertext und dessen Sichtbarkeit zurück
func (c *Controller) PoseCountText() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.showPoseCount {
		return "", false
	}
	return c.poseCountText, true
}

// FPSText gibt den FPS-Text und dessen Sichtbarkeit zurück
func (c *Controller) FPSText() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.showFPS || c.fpsText == "" {
		return "", false
	}
	return c.fpsText, true
}

// SetShowPoseCount schaltet den Posen-Zähler ein oder aus
func (c *Controller) SetShowPoseCount(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showPoseCount = show
}

// SetShowFPS schaltet die FPS-Anzeige ein oder aus
func (c *Controller) SetShowFPS(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showFPS = show
}

// ShowPoseCount gibt den aktuellen Schalterzustand des Zählers zurück
func (c *Controller) ShowPoseCount() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showPoseCount
}

// ShowFPS gibt den aktuellen Schalterzustand der FPS-Anzeige zurück
func (c *Controller) ShowFPS() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showFPS
}

// TextColor gibt die konfigurierte Overlay-Textfarbe zurück
func (c *Controller) TextColor() color.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.textColor
}
