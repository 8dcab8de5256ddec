package cleanup

import (
	"time"

	"posenet-live-go/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service handles the automatic cleanup of old pose events.
type Service struct {
	db            *gorm.DB
	retentionDays int
	checkInterval time.Duration
	stopChan      chan struct{}
}

// NewService creates a new cleanup service. Returns nil when cleanup is
// disabled (retention_days <= 0) or no database is available.
func NewService(db *gorm.DB, retentionDays int, checkInterval time.Duration) *Service {
	if retentionDays <= 0 {
		log.Info("Automatic cleanup disabled (retention_days <= 0).")
		return nil
	}
	if db == nil {
		log.Error("Cannot initialize cleanup service: database connection is nil")
		return nil
	}
	log.Infof("Initializing cleanup service: RetentionDays=%d, CheckInterval=%s", retentionDays, checkInterval)
	return &Service{
		db:            db,
		retentionDays: retentionDays,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
	}
}

// StartBackgroundCleanup starts a goroutine that periodically runs the cleanup cycle.
func (s *Service) StartBackgroundCleanup() {
	if s == nil {
		return
	}
	log.Info("Starting background cleanup routine...")

	// Run cleanup once immediately on start
	go func() {
		s.RunCleanupCycle()
	}()

	ticker := time.NewTicker(s.checkInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunCleanupCycle()
			case <-s.stopChan:
				log.Info("Stopping background cleanup routine.")
				return
			}
		}
	}()
}

// StopBackgroundCleanup signals the background cleanup routine to stop.
func (s *Service) StopBackgroundCleanup() {
	if s == nil || s.stopChan == nil {
		return
	}
	select {
	case <-s.stopChan:
		// Already closed
	default:
		close(s.stopChan)
	}
}

// RunCleanupCycle deletes pose events older than the retention period.
func (s *Service) RunCleanupCycle() {
	if s == nil || s.retentionDays <= 0 {
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -s.retentionDays)
	log.Infof("Cleanup: Deleting pose events older than %s", cutoffTime.Format(time.RFC3339))

	result := s.db.Unscoped().Where("timestamp < ?", cutoffTime).Delete(&models.PoseEvent{})
	if result.Error != nil {
		log.Errorf("Cleanup: Failed to delete old pose events: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Infof("Cleanup: Deleted %d pose event(s)", result.RowsAffected)
	}
}
