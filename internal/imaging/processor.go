package imaging

import (
	"fmt"
	"image"
	"math"

	"posenet-live-go/internal/core/pose"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// Processor schneidet Quellbilder auf die Modelleingabegröße zu und
// normalisiert die Pixelwerte auf [-1, 1]. Es gibt zwei austauschbare
// Pfade: einen beschleunigten über OpenCV und einen reinen Go-Pfad, der
// den Zuschnitt über fraktionale Offsets und Größen ausdrückt. Beide
// liefern bis auf Gleitkomma-Präzision identische Ergebnisse.
type Processor struct {
	useAccelerated bool
}

// NewProcessor erstellt einen neuen Bildprozessor. Der beschleunigte Pfad
// wird nur gewählt, wenn er zur Laufzeit verfügbar ist UND per
// Konfiguration aktiviert wurde.
func NewProcessor(useAccelerated bool) *Processor {
	accel := useAccelerated && acceleratedAvailable()
	if useAccelerated && !accel {
		log.Warn("Accelerated crop path requested but not available, using fallback path")
	}
	log.Debugf("Image processor initialized (accelerated=%v)", accel)
	return &Processor{useAccelerated: accel}
}

// Accelerated meldet, ob der beschleunigte Pfad aktiv ist
func (p *Processor) Accelerated() bool {
	return p.useAccelerated
}

// InputDims berechnet die Eingabedimensionen für die angegebene Zielgröße.
// Die kürzere Bildkante wird auf targetSize skaliert, die andere
// proportional gerundet.
func (p *Processor) InputDims(src pose.Dims, targetSize int) pose.Dims {
	if src.Width <= 0 || src.Height <= 0 || targetSize <= 0 {
		return pose.Dims{}
	}
	if src.Width <= src.Height {
		scale := float64(targetSize) / float64(src.Width)
		return pose.Dims{
			Width:  targetSize,
			Height: int(math.Round(float64(src.Height) * scale)),
		}
	}
	scale := float64(targetSize) / float64(src.Height)
	return pose.Dims{
		Width:  int(math.Round(float64(src.Width) * scale)),
		Height: targetSize,
	}
}

// CropNormalize schneidet den Quellpuffer am Versatz auf die
// Eingabedimensionen zu und normalisiert in einen Tensor
func (p *Processor) CropNormalize(src *Buffer, input pose.Dims, offset pose.Offset) (*Tensor, error) {
	if src == nil || src.Released() {
		return nil, fmt.Errorf("source buffer is not available")
	}
	if input.Width <= 0 || input.Height <= 0 {
		return nil, fmt.Errorf("invalid input dimensions %dx%d", input.Width, input.Height)
	}
	srcDims := src.Dims()
	if offset.X < 0 || offset.Y < 0 ||
		offset.X+input.Width > srcDims.Width || offset.Y+input.Height > srcDims.Height {
		return nil, fmt.Errorf("crop %dx%d at (%d,%d) exceeds source %dx%d",
			input.Width, input.Height, offset.X, offset.Y, srcDims.Width, srcDims.Height)
	}

	if p.useAccelerated {
		return p.cropNormalizeAccelerated(src, input, offset)
	}
	return p.cropNormalizeFallback(src, input, offset)
}

// FractionalCrop drückt einen Pixelzuschnitt als fraktionalen Versatz und
// fraktionale Größe relativ zur Quelle aus, pro Achse. Das ist die
// Parametrisierung des Fallback-Pfads.
type FractionalCrop struct {
	OffsetX, OffsetY float64 // offset / source
	SizeX, SizeY     float64 // input / source
}

// Fraction berechnet die fraktionale Form eines Zuschnitts
func Fraction(source, input pose.Dims, offset pose.Offset) FractionalCrop {
	return FractionalCrop{
		OffsetX: float64(offset.X) / float64(source.Width),
		OffsetY: float64(offset.Y) / float64(source.Height),
		SizeX:   float64(input.Width) / float64(source.Width),
		SizeY:   float64(input.Height) / float64(source.Height),
	}
}

// PixelRect rechnet die fraktionale Form zurück in ein Pixelrechteck der
// Quelle
func (f FractionalCrop) PixelRect(source pose.Dims) image.Rectangle {
	x0 := int(math.Round(f.OffsetX * float64(source.Width)))
	y0 := int(math.Round(f.OffsetY * float64(source.Height)))
	w := int(math.Round(f.SizeX * float64(source.Width)))
	h := int(math.Round(f.SizeY * float64(source.Height)))
	return image.Rect(x0, y0, x0+w, y0+h)
}

// cropNormalizeFallback ist der reine Go-Pfad. Der Zuschnitt wird über die
// fraktionale Parametrisierung ausgedrückt und mit x/image kopiert.
func (p *Processor) cropNormalizeFallback(src *Buffer, input pose.Dims, offset pose.Offset) (*Tensor, error) {
	srcDims := src.Dims()
	frac := Fraction(srcDims, input, offset)
	rect := frac.PixelRect(srcDims)

	cropped := image.NewRGBA(image.Rect(0, 0, input.Width, input.Height))
	draw.BiLinear.Scale(cropped, cropped.Bounds(), src.Image(), rect, draw.Src, nil)

	return normalize(cropped, input), nil
}

// normalize wandelt ein RGBA-Bild in einen [-1,1]-RGB-Tensor um
func normalize(img *image.RGBA, dims pose.Dims) *Tensor {
	data := make([]float32, dims.Width*dims.Height*3)
	i := 0
	for y := 0; y < dims.Height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+dims.Width*4]
		for x := 0; x < dims.Width; x++ {
			data[i] = float32(row[x*4])/127.5 - 1.0
			data[i+1] = float32(row[x*4+1])/127.5 - 1.0
			data[i+2] = float32(row[x*4+2])/127.5 - 1.0
			i += 3
		}
	}
	return &Tensor{Data: data, Dims: dims}
}
