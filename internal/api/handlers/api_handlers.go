package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"posenet-live-go/config"
	"posenet-live-go/internal/core/pipeline"
	"posenet-live-go/internal/models"
	"posenet-live-go/internal/mqtt"
	"posenet-live-go/internal/ui"
	"posenet-live-go/internal/utils"
)

// APIHandler behandelt API-Anfragen für das System
type APIHandler struct {
	db           *gorm.DB
	cfg          *config.Config
	orchestrator *pipeline.Orchestrator
	uiController *ui.Controller
	mqttClient   *mqtt.Client
}

// NewAPIHandler erstellt einen neuen API-Handler
func NewAPIHandler(db *gorm.DB, cfg *config.Config, orchestrator *pipeline.Orchestrator, uiController *ui.Controller, mqttClient *mqtt.Client) *APIHandler {
	return &APIHandler{
		db:           db,
		cfg:          cfg,
		orchestrator: orchestrator,
		uiController: uiController,
		mqttClient:   mqttClient,
	}
}

// RegisterRoutes registriert alle API-Routen
func (h *APIHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Einstellungs-Endpunkte
	router.GET("/settings", h.GetSettings)
	router.PUT("/settings", h.UpdateSettings)

	// Ereignis-Endpunkte
	router.GET("/events", h.ListEvents)
	router.GET("/events/:id", h.GetEvent)
	router.DELETE("/events/:id", h.DeleteEvent)
	router.DELETE("/events", h.ClearEvents)

	// System-Endpunkte
	router.GET("/status", h.GetStatus)
}

// settingsPayload bildet die zur Laufzeit veränderbaren Einstellungen ab.
// Alle Felder sind optional; nur gesetzte Felder werden übernommen.
type settingsPayload struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	MultiPose           *bool    `json:"multi_pose,omitempty"`
	ShowPoseCount       *bool    `json:"show_pose_count,omitempty"`
	ShowFPS             *bool    `json:"show_fps,omitempty"`
}

// GetSettings liefert die aktuellen Laufzeit-Einstellungen
func (h *APIHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"confidence_threshold": h.orchestrator.ConfidenceThreshold(),
		"multi_pose":           h.orchestrator.MultiPose(),
		"show_pose_count":      h.uiController.ShowPoseCount(),
		"show_fps":             h.uiController.ShowFPS(),
	})
}

// UpdateSettings übernimmt geänderte Einstellungen. Die Änderungen wirken
// ab dem nächsten verarbeiteten Frame.
func (h *APIHandler) UpdateSettings(c *gin.Context) {
	var payload settingsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settings payload"})
		return
	}

	if payload.ConfidenceThreshold != nil {
		h.orchestrator.SetConfidenceThreshold(*payload.ConfidenceThreshold)
		log.Infof("Settings: confidence threshold set to %.2f", *payload.ConfidenceThreshold)
	}
	if payload.MultiPose != nil {
		h.orchestrator.SetMultiPose(*payload.MultiPose)
		log.Infof("Settings: multi-pose set to %v", *payload.MultiPose)
	}
	if payload.ShowPoseCount != nil {
		h.uiController.SetShowPoseCount(*payload.ShowPoseCount)
	}
	if payload.ShowFPS != nil {
		h.uiController.SetShowFPS(*payload.ShowFPS)
	}

	h.GetSettings(c)
}

// ListEvents liefert die letzten Pose-Ereignisse, absteigend nach Zeitstempel
func (h *APIHandler) ListEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	var events []models.PoseEvent
	if err := h.db.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&events).Error; err != nil {
		log.Errorf("Failed to list pose events: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load events"})
		return
	}

	var total int64
	h.db.Model(&models.PoseEvent{}).Count(&total)

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetEvent liefert ein einzelnes Pose-Ereignis
func (h *APIHandler) GetEvent(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var event models.PoseEvent
	if err := h.db.First(&event, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event"})
		}
		return
	}

	c.JSON(http.StatusOK, event)
}

// DeleteEvent löscht ein einzelnes Pose-Ereignis
func (h *APIHandler) DeleteEvent(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	result := h.db.Unscoped().Delete(&models.PoseEvent{}, uint(id))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete event"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

// ClearEvents löscht alle gespeicherten Pose-Ereignisse
func (h *APIHandler) ClearEvents(c *gin.Context) {
	result := h.db.Unscoped().Where("1 = 1").Delete(&models.PoseEvent{})
	if result.Error != nil {
		log.Errorf("Failed to clear pose events: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear events"})
		return
	}

	log.Infof("Cleared %d pose event(s)", result.RowsAffected)
	c.JSON(http.StatusOK, gin.H{"message": "Events cleared", "deleted": result.RowsAffected})
}

// GetStatus liefert System- und Verbindungsstatus
func (h *APIHandler) GetStatus(c *gin.Context) {
	stats := utils.GetSystemStats()

	mqttConnected := false
	if h.mqttClient != nil {
		mqttConnected = h.mqttClient.IsActuallyConnected()
	}

	c.JSON(http.StatusOK, gin.H{
		"system": gin.H{
			"num_cpu":      stats.NumCPU,
			"go_routines":  stats.GoRoutines,
			"cpu_usage":    stats.CPUUsage,
			"memory_alloc": utils.FormatBytes(stats.MemoryAlloc),
			"memory_sys":   utils.FormatBytes(stats.MemorySys),
		},
		"mqtt_connected": mqttConnected,
		"capture_source": h.cfg.Capture.Source,
		"timestamp":      stats.Timestamp,
	})
}
