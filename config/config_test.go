package config

import (
	"image/color"
	"testing"
)

func TestParseTextColor(t *testing.T) {
	green := color.RGBA{R: 0, G: 255, B: 0, A: 255}

	tests := []struct {
		name  string
		value string
		want  color.RGBA
	}{
		{"standard hex", "#FF8000", color.RGBA{R: 255, G: 128, B: 0, A: 255}},
		{"lowercase hex", "#33cc99", color.RGBA{R: 51, G: 204, B: 153, A: 255}},
		{"without hash", "0000FF", color.RGBA{R: 0, G: 0, B: 255, A: 255}},
		{"empty falls back to green", "", green},
		{"garbage falls back to green", "notacolor", green},
		{"short value falls back to green", "#FFF", green},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := OverlayConfig{TextColor: tt.value}
			if got := cfg.ParseTextColor(); got != tt.want {
				t.Errorf("ParseTextColor(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("POSENET_LIVE_SERVER_DATA_DIR", dir)
	t.Setenv("POSENET_LIVE_LOG_FILE", dir+"/posenet-live.log")
	t.Setenv("POSENET_LIVE_DB_FILE", dir+"/posenet-live.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if cfg.Pipeline.TargetSize != 360 {
		t.Errorf("default target_size = %d, want 360", cfg.Pipeline.TargetSize)
	}
	if cfg.Inference.MaxPoses != 20 {
		t.Errorf("default max_poses = %d, want 20", cfg.Inference.MaxPoses)
	}
	if !cfg.Inference.MultiPose {
		t.Error("default multi_pose should be true")
	}
	if cfg.Overlay.FPSRefreshRate != 0.1 {
		t.Errorf("default fps_refresh_rate = %v, want 0.1", cfg.Overlay.FPSRefreshRate)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT should be disabled by default")
	}
}
