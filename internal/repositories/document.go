package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/interview-panel/internal/models"
)

var ErrDocumentNotFound = errors.New("document not found")

type DocumentRepository interface {
	Create(document *models.Document) error
	FindByID(id uuid.UUID) (*models.Document, error)
	FindByType(fileType string) ([]models.Document, error)
}

type documentRepository struct {
	db *gorm.DB
}

// Create implements DocumentRepository.
func (d *documentRepository) Create(document *models.Document) error {
	if err := d.db.Create(document).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// FindByID implements DocumentRepository.
func (d *documentRepository) FindByID(id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := d.db.Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}

		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	return &doc, nil
}

// FindByType implements DocumentRepository.
func (d *documentRepository) FindByType(fileType string) ([]models.Document, error) {
	var docs []models.Document
	if err := d.db.Where("file_type = ?", fileType).Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}

	return docs, nil
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}
