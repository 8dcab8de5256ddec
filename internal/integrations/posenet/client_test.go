package posenet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"posenet-live-go/config"
	"posenet-live-go/internal/core/pipeline"
	"posenet-live-go/internal/core/pose"
	"posenet-live-go/internal/imaging"
)

func TestConstrainDims(t *testing.T) {
	c := NewClient(config.InferenceConfig{TimeoutSeconds: 1})

	tests := []struct {
		in   pose.Dims
		want pose.Dims
	}{
		// Gültige Maße sind Vielfache der Stride (16) plus 1
		{pose.Dims{Width: 360, Height: 640}, pose.Dims{Width: 353, Height: 625}},
		{pose.Dims{Width: 257, Height: 257}, pose.Dims{Width: 257, Height: 257}},
		{pose.Dims{Width: 10, Height: 10}, pose.Dims{Width: 17, Height: 17}},
	}

	for _, tc := range tests {
		got := c.ConstrainDims(tc.in)
		if got != tc.want {
			t.Errorf("ConstrainDims(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRunAndDecodePoses(t *testing.T) {
	var gotWidth, gotHeight string
	var gotDecode map[string]interface{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/infer", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("infer request is not multipart: %v", err)
		}
		gotWidth = r.FormValue("width")
		gotHeight = r.FormValue("height")
		json.NewEncoder(w).Encode(map[string]string{"output_id": "out-1"})
	})
	mux.HandleFunc("/api/v1/decode", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotDecode); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"poses": []map[string]interface{}{
				{
					"score": 0.9,
					"keypoints": []map[string]interface{}{
						{"part": 0, "x": 10.0, "y": 20.0, "score": 0.8},
						{"part": 99, "x": 0.0, "y": 0.0, "score": 0.1}, // unbekannt, wird verworfen
					},
				},
			},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(config.InferenceConfig{URL: srv.URL, TimeoutSeconds: 5})
	ctx := context.Background()

	dims := pose.Dims{Width: 17, Height: 17}
	tensor := &imaging.Tensor{Data: make([]float32, dims.Width*dims.Height*3), Dims: dims}
	if err := c.Run(ctx, tensor); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if gotWidth != "17" || gotHeight != "17" {
		t.Errorf("service received dims %sx%s, want 17x17", gotWidth, gotHeight)
	}

	poses, err := c.DecodePoses(ctx, pipeline.DecodeParams{
		ScoreThreshold: 0.25,
		NMSRadius:      100,
		MaxPoses:       20,
		MultiPose:      true,
	})
	if err != nil {
		t.Fatalf("DecodePoses failed: %v", err)
	}

	if gotDecode["output_id"] != "out-1" {
		t.Errorf("decode request referenced output %v, want out-1", gotDecode["output_id"])
	}
	if gotDecode["multi_pose"] != true {
		t.Errorf("decode request multi_pose %v, want true", gotDecode["multi_pose"])
	}

	if len(poses) != 1 {
		t.Fatalf("got %d poses, want 1", len(poses))
	}
	if len(poses[0].Keypoints) != 1 {
		t.Fatalf("got %d keypoints, want 1 (unknown part dropped)", len(poses[0].Keypoints))
	}
	kp := poses[0].Keypoints[0]
	if kp.Part != pose.Nose || kp.Position.X != 10 || kp.Position.Y != 20 {
		t.Errorf("unexpected keypoint %+v", kp)
	}
}

func TestDecodeWithoutRunFails(t *testing.T) {
	c := NewClient(config.InferenceConfig{URL: "http://localhost:1", TimeoutSeconds: 1})
	if _, err := c.DecodePoses(context.Background(), pipeline.DecodeParams{}); err == nil {
		t.Error("expected error when decoding without a prior model run")
	}
}
