package capture

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // Decoder für JPEG-Schnappschüsse
	_ "image/png"  // Decoder für PNG-Schnappschüsse
	"io"
	"net/http"
	"time"

	"posenet-live-go/config"

	log "github.com/sirupsen/logrus"
)

// SnapshotSource holt Einzelbilder per HTTP von einer Kamera- oder
// NVR-Schnappschuss-URL
type SnapshotSource struct {
	url        string
	httpClient *http.Client
}

// NewSnapshotSource erstellt eine HTTP-Bildquelle
func NewSnapshotSource(cfg config.CaptureConfig) (*SnapshotSource, error) {
	if cfg.SnapshotURL == "" {
		return nil, fmt.Errorf("snapshot source requires capture.snapshot_url")
	}
	log.Infof("Snapshot source configured: %s", cfg.SnapshotURL)
	return &SnapshotSource{
		url: cfg.SnapshotURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Read holt den aktuellen Schnappschuss und dekodiert ihn nach RGBA
func (s *SnapshotSource) Read(ctx context.Context) (*image.RGBA, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Errorf("Snapshot request to %s returned status %d: %s", s.url, resp.StatusCode, string(bodyBytes))
		return nil, fmt.Errorf("snapshot request failed with status %s", resp.Status)
	}

	img, format, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	log.Debugf("Fetched %s snapshot (%dx%d)", format, img.Bounds().Dx(), img.Bounds().Dy())

	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}
