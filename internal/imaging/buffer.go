package imaging

import (
	"image"

	"posenet-live-go/internal/core/pose"
)

// Buffer ist ein frame-lokaler Arbeitspuffer. Puffer werden innerhalb eines
// Ticks angefordert, benutzt und wieder freigegeben; sie überleben keinen
// Frame-Wechsel.
type Buffer struct {
	img      *image.RGBA
	released bool
}

// NewBuffer legt einen Arbeitspuffer in der angegebenen Größe an
func NewBuffer(d pose.Dims) *Buffer {
	return &Buffer{
		img: image.NewRGBA(image.Rect(0, 0, d.Width, d.Height)),
	}
}

// BufferFromImage übernimmt ein vorhandenes Bild als Arbeitspuffer
func BufferFromImage(img *image.RGBA) *Buffer {
	return &Buffer{img: img}
}

// Image gibt das unterliegende Bild zurück, nil nach Release
func (b *Buffer) Image() *image.RGBA {
	if b.released {
		return nil
	}
	return b.img
}

// Dims gibt die Pixeldimensionen des Puffers zurück
func (b *Buffer) Dims() pose.Dims {
	if b.released || b.img == nil {
		return pose.Dims{}
	}
	bounds := b.img.Bounds()
	return pose.Dims{Width: bounds.Dx(), Height: bounds.Dy()}
}

// CopyFrom kopiert den Inhalt eines Quellbildes in den Puffer
func (b *Buffer) CopyFrom(src *image.RGBA) {
	if b.released || b.img == nil || src == nil {
		return
	}
	copy(b.img.Pix, src.Pix)
}

// Release gibt den Puffer frei. Der Aufruf markiert das Ende der Lebensdauer
// innerhalb des Ticks; weitere Zugriffe liefern nil.
func (b *Buffer) Release() {
	b.img = nil
	b.released = true
}

// Released meldet, ob der Puffer bereits freigegeben wurde
func (b *Buffer) Released() bool {
	return b.released
}

// Tensor ist das zugeschnittene, normalisierte RGB-Abbild der Modelleingabe.
// Werte liegen in [-1, 1], Kanalreihenfolge R, G, B, zeilenweise.
type Tensor struct {
	Data []float32
	Dims pose.Dims
}

// Release gibt die Tensordaten frei
func (t *Tensor) Release() {
	t.Data = nil
}
