package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"posenet-live-go/config"
	"posenet-live-go/internal/api/handlers"
	"posenet-live-go/internal/api/middleware"
	"posenet-live-go/internal/capture"
	"posenet-live-go/internal/cleanup"
	"posenet-live-go/internal/core/pipeline"
	"posenet-live-go/internal/db"
	"posenet-live-go/internal/imaging"
	"posenet-live-go/internal/integrations/posenet"
	"posenet-live-go/internal/logger"
	"posenet-live-go/internal/mqtt"
	"posenet-live-go/internal/render"
	"posenet-live-go/internal/services"
	"posenet-live-go/internal/sse"
	"posenet-live-go/internal/ui"
)

const configPath = "/config/config.yaml"

func main() {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log); err != nil {
		// Log the error but continue, the logger might have defaulted
		log.Errorf("Failed to initialize logger completely: %v", err)
	}

	// Initialize database connection
	log.Info("Initializing database...")
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Info("Database initialization complete.")

	gormDB, err := db.GetDB()
	if err != nil {
		log.Fatalf("Database handle unavailable: %v", err)
	}

	// Initialize Cleanup Service
	cleanupService := cleanup.NewService(gormDB, cfg.Cleanup.RetentionDays, 24*time.Hour)
	if cleanupService != nil {
		cleanupService.StartBackgroundCleanup()
		defer cleanupService.StopBackgroundCleanup()
	}

	// Frame-Quelle auswählen
	source, closeSource, err := newFrameSource(cfg)
	if err != nil {
		log.Fatalf("Failed to open frame source: %v", err)
	}
	defer closeSource()

	// Bildverarbeitung und Inferenz-Client
	processor := imaging.NewProcessor(cfg.Pipeline.UseAccelerated)
	runner := posenet.NewClient(cfg.Inference)

	// Modellinfo abrufen; bei Fehlschlag mit Standard-Stride weiterlaufen
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if ok, err := runner.Ping(pingCtx); err != nil || !ok {
		log.Warnf("Inference service not reachable at %s: %v. Continuing, frames will be skipped until it comes up.", cfg.Inference.URL, err)
	}
	cancelPing()

	// Overlay-Controller und Visualizer
	uiController := ui.NewController(cfg.Overlay)
	overlay := render.NewOverlay(uiController)

	// Pipeline zusammensetzen
	orchestrator := pipeline.New(cfg, source, processor, runner, overlay, uiController)

	// SSE-Hub für die Weboberfläche
	sseHub := sse.NewHub()
	go sseHub.Run()

	// Initialize MQTT Client if enabled
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.NewMQTTClient(cfg.MQTT)
		if err != nil {
			log.Warnf("Failed to initialize MQTT client: %v. Continuing without MQTT.", err)
			mqttClient = nil
		} else if mqttClient != nil {
			go func() {
				if err := mqttClient.Start(); err != nil {
					log.Errorf("MQTT client error: %v", err)
				}
			}()
			defer mqttClient.Stop()
		}
	} else {
		log.Info("MQTT is disabled in config.")
	}

	// Recorder für Pose-Ereignisse
	recorder := services.NewRecorder(gormDB, cfg.Capture.Source)

	// --- Setup Router ---
	router := setupRouter(cfg, gormDB, orchestrator, uiController, overlay, sseHub, mqttClient)

	// HTTP-Server im Hintergrund starten
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		log.Infof("Starting HTTP server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// --- Frame Loop ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runFrameLoop(ctx, cfg, orchestrator, uiController, recorder, sseHub, mqttClient)

	// Auf Beendigungssignal warten
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}
	log.Info("Shutdown complete.")
}

// newFrameSource erstellt die konfigurierte Frame-Quelle
func newFrameSource(cfg *config.Config) (pipeline.FrameSource, func(), error) {
	switch cfg.Capture.Source {
	case "snapshot":
		src, err := capture.NewSnapshotSource(cfg.Capture)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	case "camera", "":
		src, err := capture.NewCameraSource(cfg.Capture)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {
			if err := src.Close(); err != nil {
				log.Errorf("Failed to close camera: %v", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown capture source %q", cfg.Capture.Source)
	}
}

// runFrameLoop treibt die Pipeline mit der konfigurierten Tick-Rate an
func runFrameLoop(ctx context.Context, cfg *config.Config, orchestrator *pipeline.Orchestrator,
	uiController *ui.Controller, recorder *services.Recorder, sseHub *sse.Hub, mqttClient *mqtt.Client) {

	tickRate := cfg.Pipeline.TickRate
	if tickRate <= 0 {
		tickRate = 15
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	log.Infof("Frame loop started at %d ticks/s", tickRate)

	for {
		select {
		case <-ctx.Done():
			log.Info("Frame loop stopped.")
			return
		case <-ticker.C:
			poses, err := orchestrator.Tick(ctx)
			if err != nil {
				// Tick hat bereits geloggt; den nächsten Frame abwarten
				continue
			}

			uiController.Tick()
			recorder.Observe(poses)
			sseHub.BroadcastFrame(poses)
			if mqttClient != nil {
				mqttClient.PublishPoses(poses, cfg.Capture.Source)
			}
		}
	}
}

// setupRouter konfiguriert den Gin-Router mit allen Middlewares und Routen
func setupRouter(cfg *config.Config, gormDB *gorm.DB, orchestrator *pipeline.Orchestrator,
	uiController *ui.Controller, overlay *render.Overlay, sseHub *sse.Hub, mqttClient *mqtt.Client) *gin.Engine {

	router := gin.Default()

	// CORS für die lokale Entwicklung
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Sessions für die Sprachauswahl
	store := cookie.NewStore([]byte("posenet-live-session"))
	router.Use(sessions.Sessions("posenet_live", store))

	// Internationalisierung
	router.Use(middleware.I18n(middleware.I18nConfig{
		DefaultLanguage: "en",
		LocalesDir:      cfg.Server.LocalesDir,
	}))

	// Web-Routen
	webHandler, err := handlers.NewWebHandler(cfg, sseHub, overlay, uiController)
	if err != nil {
		log.Fatalf("Failed to initialize web handlers: %v", err)
	}
	webHandler.RegisterRoutes(router)

	// API-Routen
	apiHandler := handlers.NewAPIHandler(gormDB, cfg, orchestrator, uiController, mqttClient)
	apiHandler.RegisterRoutes(router.Group("/api"))

	return router
}
