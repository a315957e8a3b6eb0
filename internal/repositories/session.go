package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/interview-panel/internal/models"
)

var ErrSessionNotFound = errors.New("interview session not found")

type SessionRepository interface {
	Create(session *models.InterviewSession) error
	SaveSnapshot(session *models.InterviewSession) error
	MarkEnded(id uuid.UUID) error
	FindByID(id uuid.UUID) (*models.InterviewSession, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session *models.InterviewSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// SaveSnapshot writes the session counters and upserts every turn in one
// transaction.
func (r *sessionRepository) SaveSnapshot(session *models.InterviewSession) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InterviewSession{}).
			Where("id = ?", session.ID).
			Updates(map[string]interface{}{
				"phase":          session.Phase,
				"in_phase_count": session.InPhaseCount,
				"total_count":    session.TotalCount,
				"completed":      session.Completed,
				"updated_at":     time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update session: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrSessionNotFound
		}

		if len(session.Turns) == 0 {
			return nil
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "position"}},
			DoUpdates: clause.AssignmentColumns([]string{"answer", "score", "analysis", "degraded"}),
		}).Create(&session.Turns).Error
		if err != nil {
			return fmt.Errorf("failed to save turns: %w", err)
		}

		return nil
	})
}

func (r *sessionRepository) MarkEnded(id uuid.UUID) error {
	now := time.Now()
	result := r.db.Model(&models.InterviewSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ended_at":   now,
			"updated_at": now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to end session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepository) FindByID(id uuid.UUID) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.Preload("Turns", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &session, nil
}
