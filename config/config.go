package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config repräsentiert die Hauptkonfiguration der Anwendung
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Capture   CaptureConfig   `mapstructure:"capture"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Inference InferenceConfig `mapstructure:"inference"`
	Overlay   OverlayConfig   `mapstructure:"overlay"`
	Display   DisplayConfig   `mapstructure:"display"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
}

// ServerConfig enthält Server-bezogene Einstellungen
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	DataDir     string `mapstructure:"data_dir"`
	TemplateDir string `mapstructure:"template_dir"`
	LocalesDir  string `mapstructure:"locales_dir"`
}

// LogConfig enthält Log-Einstellungen
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DBConfig enthält Datenbankeinstellungen
type DBConfig struct {
	File string `mapstructure:"file"` // für SQLite
}

// CaptureConfig legt fest, woher die Frames kommen
type CaptureConfig struct {
	Source      string `mapstructure:"source"` // "camera" oder "snapshot"
	Device      int    `mapstructure:"device"`
	SnapshotURL string `mapstructure:"snapshot_url"`
}

// PipelineConfig steuert die Frame-Verarbeitung
type PipelineConfig struct {
	TargetSize          int     `mapstructure:"target_size"`
	UseAccelerated      bool    `mapstructure:"use_accelerated"`
	TickRate            int     `mapstructure:"tick_rate"` // Frames pro Sekunde
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// InferenceConfig enthält die Einstellungen für den Inferenz-Dienst
type InferenceConfig struct {
	URL            string  `mapstructure:"url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	ScoreThreshold float64 `mapstructure:"score_threshold"`
	NMSRadius      float64 `mapstructure:"nms_radius"`
	MaxPoses       int     `mapstructure:"max_poses"`
	MultiPose      bool    `mapstructure:"multi_pose"`
}

// OverlayConfig steuert die eingeblendeten Texte
type OverlayConfig struct {
	ShowPoseCount  bool    `mapstructure:"show_pose_count"`
	ShowFPS        bool    `mapstructure:"show_fps"`
	FPSRefreshRate float64 `mapstructure:"fps_refresh_rate"` // Sekunden zwischen FPS-Updates
	TextColor      string  `mapstructure:"text_color"`       // Hex, z.B. "#00FF00"
}

// DisplayConfig beschreibt die Zielfläche, auf die Keypoints abgebildet werden
type DisplayConfig struct {
	Width  int  `mapstructure:"width"`
	Height int  `mapstructure:"height"`
	Mirror bool `mapstructure:"mirror"`
}

// MQTTConfig enthält die Konfiguration für den MQTT-Client
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

// CleanupConfig enthält die Einstellungen für die automatische Bereinigung
type CleanupConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// ParseTextColor wandelt den konfigurierten Hex-Wert in eine RGBA-Farbe um.
// Bei ungültigen Werten wird Grün als Fallback verwendet.
func (c OverlayConfig) ParseTextColor() color.RGBA {
	fallback := color.RGBA{R: 0, G: 255, B: 0, A: 255}

	s := strings.TrimPrefix(strings.TrimSpace(c.TextColor), "#")
	if len(s) != 6 {
		return fallback
	}

	r, errR := strconv.ParseUint(s[0:2], 16, 8)
	g, errG := strconv.ParseUint(s[2:4], 16, 8)
	b, errB := strconv.ParseUint(s[4:6], 16, 8)
	if errR != nil || errG != nil || errB != nil {
		return fallback
	}

	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
}

// Load lädt die Konfiguration aus Datei, Umgebungsvariablen und Standardwerten
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Standardwerte festlegen
	setDefaults(v)

	// Konfigurationsdatei laden, wenn vorhanden
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Umgebungsvariablen überlagern die Konfiguration
	v.AutomaticEnv()
	v.SetEnvPrefix("POSENET_LIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Konfiguration in Struct umwandeln
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Sicherstellen, dass erforderliche Verzeichnisse existieren
	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

// setDefaults legt Standardwerte für die Konfiguration fest
func setDefaults(v *viper.Viper) {
	// Server-Standardwerte
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.data_dir", "/data")
	v.SetDefault("server.template_dir", "./web/templates")
	v.SetDefault("server.locales_dir", "./web/locales")

	// Log-Standardwerte
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "/data/logs/posenet-live.log")

	// DB-Standardwerte
	v.SetDefault("db.file", "/data/posenet-live.db")

	// Capture-Standardwerte
	v.SetDefault("capture.source", "camera")
	v.SetDefault("capture.device", 0)
	v.SetDefault("capture.snapshot_url", "")

	// Pipeline-Standardwerte
	v.SetDefault("pipeline.target_size", 360)
	v.SetDefault("pipeline.use_accelerated", true)
	v.SetDefault("pipeline.tick_rate", 15)
	v.SetDefault("pipeline.confidence_threshold", 0.5)

	// Inferenz-Standardwerte
	v.SetDefault("inference.url", "http://localhost:8090")
	v.SetDefault("inference.timeout_seconds", 10)
	v.SetDefault("inference.score_threshold", 0.25)
	v.SetDefault("inference.nms_radius", 100)
	v.SetDefault("inference.max_poses", 20)
	v.SetDefault("inference.multi_pose", true)

	// Overlay-Standardwerte
	v.SetDefault("overlay.show_pose_count", true)
	v.SetDefault("overlay.show_fps", true)
	v.SetDefault("overlay.fps_refresh_rate", 0.1)
	v.SetDefault("overlay.text_color", "#00FF00")

	// Display-Standardwerte
	v.SetDefault("display.width", 1280)
	v.SetDefault("display.height", 720)
	v.SetDefault("display.mirror", false)

	// MQTT-Standardwerte
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "posenet-live-go")
	v.SetDefault("mqtt.topic", "posenet/poses")

	// Cleanup-Standardwerte
	v.SetDefault("cleanup.retention_days", 30)
}

// ensureDirectories stellt sicher, dass alle erforderlichen Verzeichnisse existieren
func ensureDirectories(cfg *Config) error {
	// Daten-Basisverzeichnis
	if cfg.Server.DataDir != "" {
		if err := os.MkdirAll(cfg.Server.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	// Log-Verzeichnis
	if cfg.Log.File != "" {
		logDir := filepath.Dir(cfg.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	// Datenbank-Verzeichnis (für SQLite)
	if cfg.DB.File != "" {
		dbDir := filepath.Dir(cfg.DB.File)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return nil
}
