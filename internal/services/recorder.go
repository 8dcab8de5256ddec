package services

import (
	"posenet-live-go/internal/core/pose"
	"posenet-live-go/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Recorder schreibt Posen-Ereignisse in die Datenbank. Ein Ereignis wird
// nur angelegt, wenn sich die Zählung gegenüber dem vorherigen Frame
// geändert hat; unveränderte Frames erzeugen keine Einträge.
type Recorder struct {
	db        *gorm.DB
	source    string
	lastCount int
	haveCount bool
}

// NewRecorder erstellt einen Ereignis-Recorder für die angegebene
// Bildquelle
func NewRecorder(db *gorm.DB, source string) *Recorder {
	return &Recorder{db: db, source: source}
}

// Observe nimmt die Posen eines Frames entgegen und persistiert eine
// Zählungsänderung
func (r *Recorder) Observe(poses []pose.Pose) {
	count := len(poses)
	if r.haveCount && count == r.lastCount {
		return
	}
	r.lastCount = count
	r.haveCount = true

	if r.db == nil {
		return
	}

	event, err := models.NewPoseEvent(poses, r.source)
	if err != nil {
		log.Errorf("Failed to build pose event: %v", err)
		return
	}
	if err := r.db.Create(event).Error; err != nil {
		log.Errorf("Failed to store pose event: %v", err)
		return
	}
	log.Debugf("Stored pose event ID %d (count %d)", event.ID, count)
}
