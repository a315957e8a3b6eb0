package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"alfredoptarigan/interview-panel/internal/models"
	"alfredoptarigan/interview-panel/internal/repositories"
)

// KnowledgeService records rebuild requests and runs them for the worker.
type KnowledgeService interface {
	BuildProcessor
	RequestRebuild() (*models.KnowledgeBuild, error)
	GetBuild(id uuid.UUID) (*models.KnowledgeBuild, error)
}

type knowledgeService struct {
	buildRepo repositories.KnowledgeBuildRepository
	docRepo   repositories.DocumentRepository
	indexer   KnowledgeIndexer
}

func NewKnowledgeService(
	buildRepo repositories.KnowledgeBuildRepository,
	docRepo repositories.DocumentRepository,
	indexer KnowledgeIndexer,
) KnowledgeService {
	return &knowledgeService{
		buildRepo: buildRepo,
		docRepo:   docRepo,
		indexer:   indexer,
	}
}

func (s *knowledgeService) RequestRebuild() (*models.KnowledgeBuild, error) {
	build := &models.KnowledgeBuild{
		ID:     uuid.New(),
		Status: models.StatusQueued,
	}
	if err := s.buildRepo.Create(build); err != nil {
		return nil, err
	}
	return build, nil
}

func (s *knowledgeService) GetBuild(id uuid.UUID) (*models.KnowledgeBuild, error) {
	return s.buildRepo.FindByID(id)
}

// RunBuild implements BuildProcessor.
func (s *knowledgeService) RunBuild(ctx context.Context, buildID uuid.UUID) error {
	claimed, err := s.buildRepo.ClaimQueued(buildID)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("⚠️  Build %s is not queued, skipping", buildID)
		return nil
	}

	docs, err := s.docRepo.FindByType(models.DocumentTypeQuestionBank)
	if err != nil {
		return s.fail(buildID, err)
	}

	sources := make([]IndexSource, 0, len(docs))
	for _, doc := range docs {
		sources = append(sources, IndexSource{
			ID:   doc.ID.String(),
			Name: doc.OriginalFileName,
			Path: doc.FilePath,
		})
	}

	report, err := s.indexer.Rebuild(ctx, sources)
	if err != nil {
		return s.fail(buildID, err)
	}

	return s.buildRepo.MarkCompleted(buildID, report.Collection, report.Documents, report.Chunks)
}

func (s *knowledgeService) fail(buildID uuid.UUID, cause error) error {
	if err := s.buildRepo.MarkFailed(buildID, cause.Error()); err != nil {
		log.Printf("❌ Failed to record failure of build %s: %v", buildID, err)
	}
	return fmt.Errorf("knowledge build %s: %w", buildID, cause)
}
