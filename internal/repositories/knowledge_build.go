package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/interview-panel/internal/models"
)

var ErrBuildNotFound = errors.New("knowledge build not found")

type KnowledgeBuildRepository interface {
	Create(build *models.KnowledgeBuild) error
	FindByID(id uuid.UUID) (*models.KnowledgeBuild, error)
	ClaimQueued(id uuid.UUID) (bool, error)
	MarkCompleted(id uuid.UUID, collection string, documents, chunks int) error
	MarkFailed(id uuid.UUID, errorMsg string) error
	FindPendingJobs(limit int) ([]models.KnowledgeBuild, error)
}

type knowledgeBuildRepository struct {
	db *gorm.DB
}

func NewKnowledgeBuildRepository(db *gorm.DB) KnowledgeBuildRepository {
	return &knowledgeBuildRepository{db: db}
}

func (r *knowledgeBuildRepository) Create(build *models.KnowledgeBuild) error {
	if err := r.db.Create(build).Error; err != nil {
		return fmt.Errorf("failed to create knowledge build: %w", err)
	}
	return nil
}

func (r *knowledgeBuildRepository) FindByID(id uuid.UUID) (*models.KnowledgeBuild, error) {
	var build models.KnowledgeBuild
	if err := r.db.Where("id = ?", id).First(&build).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBuildNotFound
		}
		return nil, fmt.Errorf("failed to find knowledge build: %w", err)
	}
	return &build, nil
}

// ClaimQueued moves a queued build to processing. It reports false when
// another worker got there first.
func (r *knowledgeBuildRepository) ClaimQueued(id uuid.UUID) (bool, error) {
	result := r.db.Model(&models.KnowledgeBuild{}).
		Where("id = ? AND status = ?", id, models.StatusQueued).
		Updates(map[string]interface{}{
			"status":     models.StatusProcessing,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to claim build: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *knowledgeBuildRepository) MarkCompleted(id uuid.UUID, collection string, documents, chunks int) error {
	now := time.Now()
	result := r.db.Model(&models.KnowledgeBuild{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         models.StatusCompleted,
			"collection":     collection,
			"document_count": documents,
			"chunk_count":    chunks,
			"completed_at":   now,
			"updated_at":     now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update result: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrBuildNotFound
	}

	return nil
}

func (r *knowledgeBuildRepository) MarkFailed(id uuid.UUID, errorMsg string) error {
	result := r.db.Model(&models.KnowledgeBuild{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": errorMsg,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update error: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrBuildNotFound
	}

	return nil
}

func (r *knowledgeBuildRepository) FindPendingJobs(limit int) ([]models.KnowledgeBuild, error) {
	var builds []models.KnowledgeBuild
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&builds).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}

	return builds, nil
}
