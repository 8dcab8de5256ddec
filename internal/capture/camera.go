package capture

import (
	"context"
	"fmt"
	"image"
	"sync"

	"posenet-live-go/config"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// CameraSource liest Einzelbilder von einer lokalen Kamera oder
// Videodatei über OpenCV
type CameraSource struct {
	mu     sync.Mutex
	device int
	webcam *gocv.VideoCapture
	frame  gocv.Mat
	opened bool
}

// NewCameraSource öffnet das konfigurierte Kamera-Device
func NewCameraSource(cfg config.CaptureConfig) (*CameraSource, error) {
	webcam, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture device %d: %w", cfg.Device, err)
	}

	log.Infof("Camera source opened (device %d)", cfg.Device)
	return &CameraSource{
		device: cfg.Device,
		webcam: webcam,
		frame:  gocv.NewMat(),
		opened: true,
	}, nil
}

// Read liefert das aktuelle Kamerabild als RGBA
func (s *CameraSource) Read(ctx context.Context) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil, fmt.Errorf("capture device %d is closed", s.device)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if ok := s.webcam.Read(&s.frame); !ok {
		return nil, fmt.Errorf("failed to read frame from device %d", s.device)
	}
	if s.frame.Empty() {
		return nil, fmt.Errorf("empty frame from device %d", s.device)
	}

	// OpenCV liefert BGR; für die weitere Verarbeitung nach RGBA wandeln
	rgba := gocv.NewMat()
	defer rgba.Close()
	gocv.CvtColor(s.frame, &rgba, gocv.ColorBGRToRGBA)

	img, err := rgba.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame to image: %w", err)
	}

	out, ok := img.(*image.RGBA)
	if !ok {
		// ToImage liefert für RGBA-Mats *image.RGBA; alles andere umkopieren
		bounds := img.Bounds()
		out = image.NewRGBA(bounds)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				out.Set(x, y, img.At(x, y))
			}
		}
	}
	return out, nil
}

// Close gibt Kamera und Puffer frei
func (s *CameraSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil
	}
	s.opened = false
	s.frame.Close()
	if err := s.webcam.Close(); err != nil {
		return fmt.Errorf("failed to close capture device %d: %w", s.device, err)
	}
	log.Infof("Camera source closed (device %d)", s.device)
	return nil
}
