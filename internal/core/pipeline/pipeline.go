package pipeline

import (
	"context"
	"fmt"
	"sync"

	"posenet-live-go/config"
	"posenet-live-go/internal/core/pose"
	"posenet-live-go/internal/imaging"

	log "github.com/sirupsen/logrus"
)

// Orchestrator führt pro Frame einen vollständigen Inferenz- und
// Anzeigezyklus aus: Bild lesen, zuschneiden und normalisieren, Modell
// ausführen, Posen dekodieren, Koordinaten auf den Bildschirm abbilden und
// Ergebnisse an Visualizer und UI weiterreichen.
//
// Ein Tick läuft vollständig durch oder wird komplett übersprungen; es gibt
// keine Teilaktualisierung. Arbeitspuffer werden innerhalb des Ticks
// angefordert und wieder freigegeben.
type Orchestrator struct {
	source     FrameSource
	processor  ImageProcessor
	runner     ModelRunner
	visualizer Visualizer
	sink       PoseSink

	targetSize int
	screen     pose.Dims
	mirrored   bool

	// Zuschneide-Versatz des laufenden Ticks, geschrieben vom
	// Orchestrator und im selben Tick vom Mapper-Schritt gelesen
	offset pose.Offset

	// Mutatoren können aus HTTP-Handlern aufgerufen werden, daher
	// mutex-geschützt; die Pipeline selbst läuft eingleisig
	mu                  sync.Mutex
	confidenceThreshold float64
	decode              DecodeParams
}

// New erstellt einen Orchestrator aus Konfiguration und Kollaborateuren.
// Kollaborateure dürfen nil sein; fehlende Referenzen führen pro Tick zu
// einem geloggten Fehler und zum Überspringen des Frames.
func New(cfg *config.Config, source FrameSource, processor ImageProcessor,
	runner ModelRunner, visualizer Visualizer, sink PoseSink) *Orchestrator {

	return &Orchestrator{
		source:     source,
		processor:  processor,
		runner:     runner,
		visualizer: visualizer,
		sink:       sink,
		targetSize: cfg.Pipeline.TargetSize,
		screen: pose.Dims{
			Width:  cfg.Display.Width,
			Height: cfg.Display.Height,
		},
		mirrored:            cfg.Display.Mirror,
		confidenceThreshold: cfg.Pipeline.ConfidenceThreshold,
		decode: DecodeParams{
			ScoreThreshold: cfg.Inference.ScoreThreshold,
			NMSRadius:      cfg.Inference.NMSRadius,
			MaxPoses:       cfg.Inference.MaxPoses,
			MultiPose:      cfg.Inference.MultiPose,
		},
	}
}

// SetConfidenceThreshold setzt den Anzeige-Schwellenwert für den
// Visualizer. Erwartet wird [0,1]; Werte außerhalb werden nicht validiert
// und verschieben lediglich die Filterung.
func (o *Orchestrator) SetConfidenceThreshold(threshold float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.confidenceThreshold = threshold
}

// ConfidenceThreshold gibt den aktuellen Anzeige-Schwellenwert zurück
func (o *Orchestrator) ConfidenceThreshold() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.confidenceThreshold
}

// SetMultiPose schaltet zwischen Single- und Multi-Pose-Dekodierung um.
// Die Änderung wirkt ab dem nächsten Tick.
func (o *Orchestrator) SetMultiPose(multi bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decode.MultiPose = multi
}

// MultiPose gibt den aktuellen Dekodiermodus zurück
func (o *Orchestrator) MultiPose() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.decode.MultiPose
}

// Tick führt einen einzelnen Inferenz- und Anzeigezyklus aus und gibt die
// auf Bildschirmkoordinaten umgerechneten Posen zurück. Bei fehlenden
// Kollaborateuren oder Fehlern wird der Tick übersprungen: kein
// Visualizer-Aufruf, keine UI-Aktualisierung, kein Teilzustand. Der
// nächste Tick prüft erneut.
func (o *Orchestrator) Tick(ctx context.Context) ([]pose.Pose, error) {
	if err := o.checkCollaborators(); err != nil {
		log.Errorf("Skipping frame: %v", err)
		return nil, err
	}

	// 1. Aktuelles Quellbild und dessen Dimensionen lesen
	frame, err := o.source.Read(ctx)
	if err != nil {
		log.Errorf("Skipping frame: failed to read source image: %v", err)
		return nil, fmt.Errorf("failed to read source image: %w", err)
	}
	bounds := frame.Bounds()
	sourceDims := pose.Dims{Width: bounds.Dx(), Height: bounds.Dy()}

	// 2. Eingabedimensionen bestimmen: erst der Prozessor, dann die
	// Zuschnittbeschränkung des Modells
	inputDims := o.processor.InputDims(sourceDims, o.targetSize)
	inputDims = o.runner.ConstrainDims(inputDims)
	if inputDims.Width <= 0 || inputDims.Height <= 0 {
		log.Errorf("Skipping frame: invalid input dimensions %dx%d", inputDims.Width, inputDims.Height)
		return nil, fmt.Errorf("invalid input dimensions %dx%d", inputDims.Width, inputDims.Height)
	}

	// 3./4. Zentrierten Zuschneide-Versatz berechnen, truncation Richtung Null
	o.offset = pose.CropOffset(sourceDims, inputDims)

	// 5. Quellbild in einen Arbeitspuffer in Quellauflösung kopieren und
	// in den Eingabepuffer zuschneiden und normalisieren
	sourceBuf := imaging.NewBuffer(sourceDims)
	sourceBuf.CopyFrom(frame)

	tensor, err := o.processor.CropNormalize(sourceBuf, inputDims, o.offset)

	// 6. Quellpuffer freigeben
	sourceBuf.Release()

	if err != nil {
		log.Errorf("Skipping frame: crop/normalize failed: %v", err)
		return nil, fmt.Errorf("crop/normalize failed: %w", err)
	}

	// 7. Modell ausführen, danach Eingabepuffer freigeben
	err = o.runner.Run(ctx, tensor)
	tensor.Release()
	if err != nil {
		log.Errorf("Skipping frame: model execution failed: %v", err)
		return nil, fmt.Errorf("model execution failed: %w", err)
	}

	// 8. Letzte Modellausgabe in Posen dekodieren
	o.mu.Lock()
	params := o.decode
	threshold := o.confidenceThreshold
	o.mu.Unlock()

	poses, err := o.runner.DecodePoses(ctx, params)
	if err != nil {
		log.Errorf("Skipping frame: pose decoding failed: %v", err)
		return nil, fmt.Errorf("pose decoding failed: %w", err)
	}

	// 9. Alle Keypoints genau einmal in Bildschirmkoordinaten umrechnen
	pose.RescaleInPlace(poses, inputDims, o.screen, o.offset, o.mirrored)

	// 10. Zählung an die UI, Posen an den Visualizer
	o.sink.SetPoseCount(len(poses))
	o.visualizer.Render(frame, poses, threshold)

	return poses, nil
}

// checkCollaborators prüft, ob alle erforderlichen Referenzen gesetzt sind
func (o *Orchestrator) checkCollaborators() error {
	switch {
	case o.source == nil:
		return fmt.Errorf("frame source is not set")
	case o.processor == nil:
		return fmt.Errorf("image processor is not set")
	case o.runner == nil:
		return fmt.Errorf("model runner is not set")
	case o.visualizer == nil:
		return fmt.Errorf("visualizer is not set")
	case o.sink == nil:
		return fmt.Errorf("pose sink is not set")
	}
	return nil
}
