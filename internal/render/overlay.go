package render

import (
	"image"
	"image/color"
	"sync"

	"posenet-live-go/internal/core/pose"
	"posenet-live-go/internal/ui"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// limbColor ist die Linienfarbe der Skelett-Gliedmaßen
var limbColor = color.RGBA{R: 255, G: 128, A: 255}

// jointColor ist die Füllfarbe der Gelenkpunkte
var jointColor = color.RGBA{R: 51, G: 153, B: 255, A: 255}

// Overlay zeichnet Skelette und die Text-Overlays der UI auf das aktuelle
// Einzelbild und hält die annotierte Fassung als JPEG für den Live-Stream
// bereit
type Overlay struct {
	controller *ui.Controller

	mu         sync.RWMutex
	latestJPEG []byte
}

// NewOverlay erstellt einen Visualizer, der die Overlay-Texte vom
// UI-Controller bezieht
func NewOverlay(controller *ui.Controller) *Overlay {
	return &Overlay{controller: controller}
}

// Render zeichnet alle Posen, deren Score über dem Schwellenwert liegt.
// Keypoints unterhalb des Schwellenwerts werden einzeln ausgelassen,
// ebenso Gliedmaßen, deren Endpunkte nicht beide sichtbar sind.
func (o *Overlay) Render(frame *image.RGBA, poses []pose.Pose, confidenceThreshold float64) {
	mat, err := gocv.ImageToMatRGBA(frame)
	if err != nil {
		log.Errorf("Failed to convert frame for rendering: %v", err)
		return
	}
	defer mat.Close()

	for _, p := range poses {
		drawPose(&mat, p, confidenceThreshold)
	}
	o.drawTexts(&mat)

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)

	buf, err := gocv.IMEncode(".jpg", bgr)
	if err != nil {
		log.Errorf("Failed to encode annotated frame: %v", err)
		return
	}
	defer buf.Close()

	jpeg := make([]byte, len(buf.GetBytes()))
	copy(jpeg, buf.GetBytes())

	o.mu.Lock()
	o.latestJPEG = jpeg
	o.mu.Unlock()
}

// drawPose zeichnet ein einzelnes Skelett
func drawPose(mat *gocv.Mat, p pose.Pose, threshold float64) {
	visible := make(map[pose.PartID]image.Point, len(p.Keypoints))
	for _, kp := range p.Keypoints {
		if kp.Confidence < threshold {
			continue
		}
		visible[kp.Part] = image.Pt(int(kp.Position.X), int(kp.Position.Y))
	}

	for _, limb := range pose.Skeleton {
		a, okA := visible[limb[0]]
		b, okB := visible[limb[1]]
		if !okA || !okB {
			continue
		}
		gocv.Line(mat, a, b, limbColor, 2)
	}

	for _, pt := range visible {
		gocv.Circle(mat, pt, 4, jointColor, -1)
	}
}

// drawTexts zeichnet die sichtbaren Text-Overlays der UI
func (o *Overlay) drawTexts(mat *gocv.Mat) {
	if o.controller == nil {
		return
	}
	textColor := o.controller.TextColor()

	y := 30
	if text, visible := o.controller.PoseCountText(); visible {
		gocv.PutText(mat, text, image.Pt(10, y), gocv.FontHersheySimplex, 0.8, textColor, 2)
		y += 35
	}
	if text, visible := o.controller.FPSText(); visible {
		gocv.PutText(mat, text, image.Pt(10, y), gocv.FontHersheySimplex, 0.8, textColor, 2)
	}
}

// LatestJPEG gibt die zuletzt annotierte Fassung des Einzelbildes zurück,
// nil solange noch kein Frame gerendert wurde
func (o *Overlay) LatestJPEG() []byte {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.latestJPEG
}
