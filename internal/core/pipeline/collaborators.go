package pipeline

import (
	"context"
	"image"

	"posenet-live-go/internal/core/pose"
	"posenet-live-go/internal/imaging"
)

// FrameSource liefert das aktuelle Kamerabild
type FrameSource interface {
	// Read gibt das aktuelle Einzelbild zurück. Das Bild gehört dem
	// Aufrufer für die Dauer des Ticks.
	Read(ctx context.Context) (*image.RGBA, error)
}

// ImageProcessor schneidet ein Quellbild zu und normalisiert es für die
// Modelleingabe
type ImageProcessor interface {
	// InputDims berechnet die Eingabedimensionen aus Quellgröße und
	// konfigurierter Zielgröße
	InputDims(src pose.Dims, targetSize int) pose.Dims
	// CropNormalize schneidet den Quellpuffer zu und normalisiert ihn
	CropNormalize(src *imaging.Buffer, input pose.Dims, offset pose.Offset) (*imaging.Tensor, error)
}

// DecodeParams sind die Nachverarbeitungsparameter der Posen-Dekodierung
type DecodeParams struct {
	// ScoreThreshold ist der Mindest-Score für dekodierte Posen
	ScoreThreshold float64
	// NMSRadius ist der Mindestabstand in Pixeln, unter dem sich
	// überlappende Erkennungen unterdrückt werden
	NMSRadius float64
	// MaxPoses begrenzt die Anzahl der zurückgegebenen Posen
	MaxPoses int
	// MultiPose wählt Multi-Pose- statt Single-Pose-Dekodierung
	MultiPose bool
}

// ModelRunner führt das Pose-Estimation-Modell aus. Modellausführung und
// Tensor-Dekodierung liegen vollständig beim Runner; die Pipeline ruft nur
// dessen Vertrag auf.
type ModelRunner interface {
	// ConstrainDims passt die gewünschten Eingabedimensionen an die vom
	// Modell unterstützte Zuschnittgröße an
	ConstrainDims(input pose.Dims) pose.Dims
	// Run führt das Modell auf dem vorbereiteten Tensor aus
	Run(ctx context.Context, t *imaging.Tensor) error
	// DecodePoses dekodiert die letzte Modellausgabe in eine Posenliste
	DecodePoses(ctx context.Context, params DecodeParams) ([]pose.Pose, error)
}

// Visualizer zeichnet Skelett-Overlays für die übergebenen Posen,
// gefiltert nach dem Konfidenz-Schwellenwert
type Visualizer interface {
	Render(frame *image.RGBA, poses []pose.Pose, confidenceThreshold float64)
}

// PoseSink erhält die Posen-Zählung jedes verarbeiteten Frames
type PoseSink interface {
	SetPoseCount(n int)
}
