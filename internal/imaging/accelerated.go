package imaging

import (
	"fmt"
	"image"

	"posenet-live-go/internal/core/pose"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// acceleratedAvailable prüft, ob der OpenCV-Pfad zur Laufzeit nutzbar ist
func acceleratedAvailable() bool {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("OpenCV runtime probe failed: %v", r)
		}
	}()
	m := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC4)
	defer m.Close()
	return !m.Empty()
}

// cropNormalizeAccelerated ist der OpenCV-Pfad. Der Zuschnitt erfolgt als
// Mat-Region in Pixelkoordinaten, die Normalisierung als ConvertTo mit
// Skalierung. Das Ergebnis muss mit dem Fallback-Pfad bis auf
// Gleitkomma-Präzision übereinstimmen.
func (p *Processor) cropNormalizeAccelerated(src *Buffer, input pose.Dims, offset pose.Offset) (*Tensor, error) {
	srcMat, err := gocv.ImageToMatRGBA(src.Image())
	if err != nil {
		return nil, fmt.Errorf("failed to convert source image to Mat: %w", err)
	}
	defer srcMat.Close()

	rect := image.Rect(offset.X, offset.Y, offset.X+input.Width, offset.Y+input.Height)
	roi := srcMat.Region(rect)
	// Region liefert eine View; klonen, damit die Daten zusammenhängend sind
	cropped := roi.Clone()
	roi.Close()
	defer cropped.Close()

	f32 := gocv.NewMat()
	defer f32.Close()
	cropped.ConvertToWithParams(&f32, gocv.MatTypeCV32FC4, 1.0/127.5, -1.0)

	raw, err := f32.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read normalized Mat data: %w", err)
	}

	// Alphakanal verwerfen, RGB übernehmen
	data := make([]float32, input.Width*input.Height*3)
	for px := 0; px < input.Width*input.Height; px++ {
		data[px*3] = raw[px*4]
		data[px*3+1] = raw[px*4+1]
		data[px*3+2] = raw[px*4+2]
	}

	return &Tensor{Data: data, Dims: input}, nil
}
