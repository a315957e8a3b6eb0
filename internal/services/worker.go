package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/interview-panel/internal/repositories"
)

// BuildProcessor runs one queued knowledge build.
type BuildProcessor interface {
	RunBuild(ctx context.Context, buildID uuid.UUID) error
}

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(buildID uuid.UUID)
}

type worker struct {
	buildRepo    repositories.KnowledgeBuildRepository
	processor    BuildProcessor
	jobQueue     chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

func NewWorker(
	buildRepo repositories.KnowledgeBuildRepository,
	processor BuildProcessor,
	concurrency int,
	pollInterval time.Duration,
) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &worker{
		buildRepo:    buildRepo,
		processor:    processor,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	log.Printf("🚀 Starting knowledge worker with %d concurrent workers\n", w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingJobs()

	log.Println("✅ Worker started successfully")
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		log.Println("🛑 Stopping worker...")
		close(w.stopChan)
		w.wg.Wait()
		log.Println("✅ Worker stopped")
	})
}

// EnqueueJob implements Worker. A build that is already queued or running
// may be enqueued again; the processor claims each build once.
func (w *worker) EnqueueJob(buildID uuid.UUID) {
	select {
	case w.jobQueue <- buildID:
		log.Printf("📥 Build %s enqueued\n", buildID)
	case <-w.stopChan:
		log.Printf("⚠️  Worker stopped, cannot enqueue build %s\n", buildID)
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			log.Printf("👷 Worker #%d stopped\n", workerID)
			return
		case buildID := <-w.jobQueue:
			log.Printf("👷 Worker #%d processing build %s\n", workerID, buildID)
			if err := w.processor.RunBuild(ctx, buildID); err != nil {
				log.Printf("❌ Worker #%d failed build %s: %v\n", workerID, buildID, err)
			} else {
				log.Printf("✅ Worker #%d finished build %s\n", workerID, buildID)
			}
		}
	}
}

func (w *worker) pollPendingJobs() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			log.Println("🔄 Pending builds poller stopped")
			return
		case <-ticker.C:
			pending, err := w.buildRepo.FindPendingJobs(10)
			if err != nil {
				log.Printf("⚠️  Failed to fetch pending builds: %v\n", err)
				continue
			}

			for _, build := range pending {
				w.EnqueueJob(build.ID)
			}
		}
	}
}
