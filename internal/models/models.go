package models

import (
	"encoding/json"
	"time"

	"posenet-live-go/internal/core/pose"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PoseEvent hält eine Änderung der erkannten Posen-Zählung fest. Ein
// Eintrag entsteht nur, wenn sich die Zählung gegenüber dem vorherigen
// Frame ändert; die zugehörigen Posen werden als JSON abgelegt.
type PoseEvent struct {
	gorm.Model
	Timestamp time.Time      `gorm:"index" json:"timestamp"`
	Count     int            `gorm:"index" json:"count"`
	Poses     datatypes.JSON `gorm:"type:json" json:"poses"`
	Source    string         `gorm:"index" json:"source"` // Bildquelle, z.B. "camera" oder "snapshot"
}

// NewPoseEvent erstellt einen Ereigniseintrag aus den Posen eines Frames
func NewPoseEvent(poses []pose.Pose, source string) (*PoseEvent, error) {
	payload, err := json.Marshal(poses)
	if err != nil {
		return nil, err
	}
	return &PoseEvent{
		Timestamp: time.Now(),
		Count:     len(poses),
		Poses:     datatypes.JSON(payload),
		Source:    source,
	}, nil
}
