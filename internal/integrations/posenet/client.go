package posenet

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"posenet-live-go/config"
	"posenet-live-go/internal/core/pipeline"
	"posenet-live-go/internal/core/pose"
	"posenet-live-go/internal/imaging"

	log "github.com/sirupsen/logrus"
)

// defaultStride ist die Modell-Stride, falls der Dienst keine meldet.
// PoseNet-Eingaben müssen pro Achse ein Vielfaches der Stride plus 1 sein.
const defaultStride = 16

// Client spricht den externen Pose-Estimation-Dienst an. Modellausführung
// und Dekodierung der Ausgabetensoren finden vollständig im Dienst statt;
// der Client transportiert nur Eingabepuffer und Parameter.
type Client struct {
	config     config.InferenceConfig
	httpClient *http.Client

	mu     sync.Mutex
	stride int
	// lastOutputID referenziert die letzte Modellausgabe im Dienst
	lastOutputID string
}

// ModelInfo repräsentiert die Modellbeschreibung des Dienstes
type ModelInfo struct {
	Name   string `json:"name"`
	Stride int    `json:"stride"`
}

// inferResponse repräsentiert die Antwort auf eine Modellausführung
type inferResponse struct {
	OutputID string `json:"output_id"`
}

// wireKeypoint ist ein Keypoint im Antwortformat des Dienstes
type wireKeypoint struct {
	Part  int     `json:"part"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// wirePose ist eine Pose im Antwortformat des Dienstes
type wirePose struct {
	Score     float64        `json:"score"`
	Keypoints []wireKeypoint `json:"keypoints"`
}

// decodeResponse repräsentiert die Antwort der Posen-Dekodierung
type decodeResponse struct {
	Poses []wirePose `json:"poses"`
}

// NewClient erstellt einen neuen Client für den Pose-Dienst
func NewClient(cfg config.InferenceConfig) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		stride: defaultStride,
	}
}

// Ping prüft, ob der Pose-Dienst erreichbar ist, und übernimmt dessen
// gemeldete Modell-Stride
func (c *Client) Ping(ctx context.Context) (bool, error) {
	apiURL, err := url.JoinPath(c.config.URL, "/api/v1/model")
	if err != nil {
		return false, fmt.Errorf("failed to create API URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Warnf("Pose service connection test failed (status %d): %s", resp.StatusCode, string(bodyBytes))
		return false, nil
	}

	var info ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false, fmt.Errorf("failed to decode model info: %w", err)
	}
	if info.Stride > 0 {
		c.mu.Lock()
		c.stride = info.Stride
		c.mu.Unlock()
		log.Infof("Pose service reachable, model %q with stride %d", info.Name, info.Stride)
	}
	return true, nil
}

// ConstrainDims passt die gewünschten Eingabedimensionen an die vom Modell
// unterstützte Zuschnittgröße an: pro Achse das größte gültige Maß, das die
// Wunschgröße nicht überschreitet
func (c *Client) ConstrainDims(input pose.Dims) pose.Dims {
	c.mu.Lock()
	stride := c.stride
	c.mu.Unlock()

	return pose.Dims{
		Width:  constrainAxis(input.Width, stride),
		Height: constrainAxis(input.Height, stride),
	}
}

// constrainAxis rundet ein Achsenmaß auf die nächstkleinere gültige
// Modellgröße (Vielfaches der Stride plus 1) ab
func constrainAxis(dim, stride int) int {
	if dim <= stride {
		return stride + 1
	}
	return (dim-1)/stride*stride + 1
}

// Run führt das Modell auf dem vorbereiteten Tensor aus. Der Dienst
// behält die Rohausgabe und liefert eine Referenz für die anschließende
// Dekodierung.
func (c *Client) Run(ctx context.Context, t *imaging.Tensor) error {
	if t == nil || t.Data == nil {
		return fmt.Errorf("input tensor is not available")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("width", strconv.Itoa(t.Dims.Width)); err != nil {
		return fmt.Errorf("failed to add width field: %w", err)
	}
	if err := writer.WriteField("height", strconv.Itoa(t.Dims.Height)); err != nil {
		return fmt.Errorf("failed to add height field: %w", err)
	}

	part, err := writer.CreateFormFile("tensor", "input.f32")
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	// Tensor als rohe Float32-Werte, little endian, RGB zeilenweise
	raw := make([]byte, len(t.Data)*4)
	for i, v := range t.Data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	if _, err := part.Write(raw); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	apiURL, err := url.JoinPath(c.config.URL, "/api/v1/infer")
	if err != nil {
		return fmt.Errorf("failed to create API URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	log.Debugf("Pose service inference request took %s", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pose service returned error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var result inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode inference response: %w", err)
	}

	c.mu.Lock()
	c.lastOutputID = result.OutputID
	c.mu.Unlock()
	return nil
}

// DecodePoses dekodiert die letzte Modellausgabe mit den übergebenen
// Nachverarbeitungsparametern in eine Posenliste
func (c *Client) DecodePoses(ctx context.Context, params pipeline.DecodeParams) ([]pose.Pose, error) {
	c.mu.Lock()
	outputID := c.lastOutputID
	c.mu.Unlock()
	if outputID == "" {
		return nil, fmt.Errorf("no model output available to decode")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"output_id":       outputID,
		"score_threshold": params.ScoreThreshold,
		"nms_radius":      params.NMSRadius,
		"max_poses":       params.MaxPoses,
		"multi_pose":      params.MultiPose,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal decode request: %w", err)
	}

	apiURL, err := url.JoinPath(c.config.URL, "/api/v1/decode")
	if err != nil {
		return nil, fmt.Errorf("failed to create API URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pose service returned error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var result decodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode pose response: %w", err)
	}

	poses := make([]pose.Pose, 0, len(result.Poses))
	for _, wp := range result.Poses {
		p := pose.Pose{
			Score:     wp.Score,
			Keypoints: make([]pose.Keypoint, 0, len(wp.Keypoints)),
		}
		for _, wk := range wp.Keypoints {
			if wk.Part < 0 || wk.Part >= pose.NumParts {
				log.Warnf("Pose service returned unknown part id %d, skipping keypoint", wk.Part)
				continue
			}
			p.Keypoints = append(p.Keypoints, pose.Keypoint{
				Part:       pose.PartID(wk.Part),
				Position:   pose.Point{X: wk.X, Y: wk.Y},
				Confidence: wk.Score,
			})
		}
		poses = append(poses, p)
	}

	log.Debugf("Pose service decoded %d pose(s)", len(poses))
	return poses, nil
}
