package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"alfredoptarigan/interview-panel/internal/config"
	"alfredoptarigan/interview-panel/internal/services"
)

// Rebuilds the knowledge index from every PDF in a local directory
// (./reference_docs unless a directory is passed as the first argument).
func main() {
	log.Println("🚀 Starting question bank ingestion...")

	cfg := config.Load()

	dir := "./reference_docs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		log.Fatalf("❌ Failed to list %s: %v", dir, err)
	}
	if len(paths) == 0 {
		log.Fatalf("❌ No PDF files found in %s", dir)
	}

	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey, cfg.Gemini.EmbeddingModel)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}

	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Alias,
		cfg.Qdrant.VectorSize,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}

	indexer := services.NewKnowledgeIndexer(
		services.NewPDFParserService(),
		services.NewTextChunker(),
		geminiService,
		qdrantService,
		cfg.Worker.EmbedConcurrency,
	)

	sources := make([]services.IndexSource, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		sources = append(sources, services.IndexSource{
			ID:   strings.TrimSuffix(name, filepath.Ext(name)),
			Name: name,
			Path: path,
		})
		log.Printf("📄 Queued %s", name)
	}

	report, err := indexer.Rebuild(context.Background(), sources)
	if err != nil {
		log.Fatalf("❌ Ingestion failed, live index unchanged: %v", err)
	}

	log.Println(strings.Repeat("=", 60))
	log.Printf("📊 Ingestion Summary:")
	log.Printf("   ✅ Indexed: %d documents, %d chunks", report.Documents, report.Chunks)
	log.Printf("   📦 Snapshot: %s (alias %s)", report.Collection, cfg.Qdrant.Alias)
	if len(report.Skipped) > 0 {
		log.Printf("   ⚠️  Skipped: %s", strings.Join(report.Skipped, ", "))
	}
	log.Println(strings.Repeat("=", 60))

	if len(report.Skipped) > 0 {
		os.Exit(1)
	}

	log.Println("✅ All documents ingested successfully!")
}
