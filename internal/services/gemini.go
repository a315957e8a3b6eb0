package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"unicode/utf8"

	"google.golang.org/genai"

	"alfredoptarigan/interview-panel/internal/interview"
)

const maxEmbeddingInput = 40000

// GeminiService is the generation gateway used by the interviewer personas
// plus the embedder used by the knowledge index.
type GeminiService interface {
	interview.GenerationGateway
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type geminiService struct {
	client          *genai.Client
	embedModel      string
	maxOutputTokens int32
}

func NewGeminiService(apiKey, embedModel string) (GeminiService, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is not configured")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{
		client:          client,
		embedModel:      embedModel,
		maxOutputTokens: 4096,
	}, nil
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	// Truncate text if too long (max ~10000 tokens for embedding)
	text = truncateUTF8(text, maxEmbeddingInput)

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// Complete implements interview.GenerationGateway.
func (g *geminiService) Complete(ctx context.Context, req interview.GenerationRequest) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, toContents(req.Conversation), g.buildConfig(req))
	if err != nil {
		log.Printf("❌ Gemini API error (%s): %v", req.Model, err)
		return "", &interview.GenerationError{Op: "complete", Model: req.Model, Err: err}
	}

	if resp == nil {
		return "", &interview.GenerationError{Op: "complete", Model: req.Model, Err: errors.New("nil response")}
	}

	text := resp.Text()
	if text == "" {
		return "", &interview.GenerationError{Op: "complete", Model: req.Model, Err: errors.New("no text content in response")}
	}

	return text, nil
}

// Stream implements interview.GenerationGateway.
func (g *geminiService) Stream(ctx context.Context, req interview.GenerationRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := g.client.Models.GenerateContentStream(ctx, req.Model, toContents(req.Conversation), g.buildConfig(req))
		for resp, err := range stream {
			if err != nil {
				log.Printf("❌ Gemini stream error (%s): %v", req.Model, err)
				yield("", &interview.GenerationError{Op: "stream", Model: req.Model, Err: err})
				return
			}
			if resp == nil {
				continue
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}

func (g *geminiService) buildConfig(req interview.GenerationRequest) *genai.GenerateContentConfig {
	temperature := req.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: g.maxOutputTokens,
	}

	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}

	return config
}

// toContents maps the conversation onto Gemini's two-role chat format.
// Interviewer turns are the model's own, everything else is user input.
// Adjacent messages with the same role are merged into one content.
func toContents(conversation []interview.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(conversation))

	for _, msg := range conversation {
		if msg.Text == "" {
			continue
		}

		role := genai.Role(genai.RoleUser)
		if msg.Speaker == interview.SpeakerInterviewer {
			role = genai.RoleModel
		}

		if n := len(contents); n > 0 && contents[n-1].Role == string(role) {
			contents[n-1].Parts = append(contents[n-1].Parts, genai.NewPartFromText(msg.Text))
			continue
		}
		contents = append(contents, genai.NewContentFromText(msg.Text, role))
	}

	return contents
}

// truncateUTF8 cuts text to at most limit bytes without splitting a rune.
func truncateUTF8(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
