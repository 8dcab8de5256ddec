package handlers

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"posenet-live-go/config"
	"posenet-live-go/internal/render"
	"posenet-live-go/internal/sse"
	"posenet-live-go/internal/ui"
)

// WebHandler behandelt Anfragen für die Weboberfläche
type WebHandler struct {
	cfg          *config.Config
	templates    *template.Template
	sseHub       *sse.Hub
	overlay      *render.Overlay
	uiController *ui.Controller
}

// NewWebHandler erstellt einen neuen Web-Handler und lädt die Templates
func NewWebHandler(cfg *config.Config, sseHub *sse.Hub, overlay *render.Overlay, uiController *ui.Controller) (*WebHandler, error) {
	pattern := filepath.Join(cfg.Server.TemplateDir, "*.html")
	templates, err := template.ParseGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates from %s: %w", pattern, err)
	}

	return &WebHandler{
		cfg:          cfg,
		templates:    templates,
		sseHub:       sseHub,
		overlay:      overlay,
		uiController: uiController,
	}, nil
}

// RegisterRoutes registriert alle Web-Routen
func (h *WebHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.handleIndex)
	router.GET("/sse", h.handleSSE)
	router.GET("/stream", h.handleStream)
	router.GET("/frame.jpg", h.handleFrame)
}

// handleIndex zeigt die Hauptseite mit Live-Ansicht und Einstellungen an
func (h *WebHandler) handleIndex(c *gin.Context) {
	lang, _ := c.Get("language")

	data := gin.H{
		"Language":      lang,
		"ShowPoseCount": h.uiController.ShowPoseCount(),
		"ShowFPS":       h.uiController.ShowFPS(),
		"Mirror":        h.cfg.Display.Mirror,
	}
	if t, exists := c.Get("t"); exists {
		data["T"] = t
	} else {
		// Ohne geladene Übersetzungen den Schlüssel selbst anzeigen
		data["T"] = func(key string, args ...interface{}) string { return key }
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(c.Writer, "index.html", data); err != nil {
		log.Errorf("Failed to render index template: %v", err)
	}
}

// handleSSE behandelt SSE-Verbindungen für Echtzeit-Updates
func (h *WebHandler) handleSSE(c *gin.Context) {
	// SSE-Header setzen
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	// Client-Kanal erstellen
	client := make(sse.Client, 10) // Puffer für 10 Nachrichten

	// Client beim Hub registrieren
	h.sseHub.Register(client)
	defer h.sseHub.Unregister(client)

	c.Stream(func(w io.Writer) bool {
		// Auf die nächste Nachricht warten
		msg, ok := <-client
		if !ok {
			return false // Kanal geschlossen, Stream beenden
		}

		c.SSEvent("message", string(msg))
		return true
	})
}

// handleStream liefert einen MJPEG-Stream der gerenderten Frames
func (h *WebHandler) handleStream(c *gin.Context) {
	const boundary = "frame"
	c.Writer.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	c.Writer.Header().Set("Cache-Control", "no-cache")

	ticker := time.NewTicker(time.Second / 25)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			frame := h.overlay.LatestJPEG()
			if frame == nil {
				continue
			}
			_, err := fmt.Fprintf(c.Writer, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(frame))
			if err == nil {
				_, err = c.Writer.Write(frame)
			}
			if err != nil {
				// Client hat die Verbindung beendet
				return
			}
			fmt.Fprint(c.Writer, "\r\n")
			c.Writer.Flush()
		}
	}
}

// handleFrame liefert den zuletzt gerenderten Frame als einzelnes JPEG
func (h *WebHandler) handleFrame(c *gin.Context) {
	frame := h.overlay.LatestJPEG()
	if frame == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No frame available yet"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", frame)
}
