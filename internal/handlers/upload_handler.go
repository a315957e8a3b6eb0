package handlers

import (
	"fmt"
	"log"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/interview-panel/internal/models"
	"alfredoptarigan/interview-panel/internal/repositories"
	"alfredoptarigan/interview-panel/internal/services"
)

const uploadField = "files"

type UploadHandler struct {
	docRepo        repositories.DocumentRepository
	storageService services.StorageService
	maxFileSize    int64
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	storageService services.StorageService,
	maxFileSize int64,
) *UploadHandler {
	return &UploadHandler{
		docRepo:        docRepo,
		storageService: storageService,
		maxFileSize:    maxFileSize,
	}
}

// HandleUpload handles POST /knowledge/upload. Every file under the
// "files" field is stored as a question bank; the index picks them up on
// the next rebuild.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	files := form.File[uploadField]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("No files uploaded. Attach question-bank PDFs under '%s'.", uploadField),
		})
	}

	for _, file := range files {
		if file.Size > h.maxFileSize {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("%s is too large. Max size: %d bytes", file.Filename, h.maxFileSize),
			})
		}
	}

	responses := make([]models.UploadResponse, 0, len(files))
	for _, file := range files {
		doc, err := h.store(file)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":     err.Error(),
				"documents": responses,
			})
		}

		responses = append(responses, models.UploadResponse{
			ID:           doc.ID.String(),
			Filename:     doc.Filename,
			OriginalName: doc.OriginalFileName,
			FileType:     doc.FileType,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Files uploaded successfully",
		"documents": responses,
	})
}

// HandleGetDocument handles GET /knowledge/documents/:id
func (h *UploadHandler) HandleGetDocument(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID format",
		})
	}

	doc, err := h.docRepo.FindByID(id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(models.UploadResponse{
		ID:           doc.ID.String(),
		Filename:     doc.Filename,
		OriginalName: doc.OriginalFileName,
		FileType:     doc.FileType,
	})
}

func (h *UploadHandler) store(file *multipart.FileHeader) (*models.Document, error) {
	filename, filePath, err := h.storageService.SaveFile(file, models.DocumentTypeQuestionBank)
	if err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", file.Filename, err)
	}

	doc := &models.Document{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		FileType:         models.DocumentTypeQuestionBank,
		FilePath:         filePath,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := h.docRepo.Create(doc); err != nil {
		// Cleanup uploaded file if database insert fails
		if derr := h.storageService.DeleteFile(filename); derr != nil {
			log.Printf("⚠️  Orphaned upload %s: %v", filename, derr)
		}
		return nil, fmt.Errorf("failed to save document record for %s: %w", file.Filename, err)
	}

	return doc, nil
}
