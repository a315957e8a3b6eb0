package interview

import (
	"context"
	"fmt"
	"iter"
	"strings"
)

type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
	// SpeakerDirector carries task instructions from the orchestrator.
	SpeakerDirector Speaker = "director"
)

type Message struct {
	Speaker Speaker
	Text    string
}

type GenerationRequest struct {
	Model             string
	SystemInstruction string
	Conversation      []Message
	Temperature       float32
	// JSONOutput asks the service for a JSON document instead of prose.
	JSONOutput bool
}

// GenerationGateway is the language-generation service. Transport failures
// must come back as *GenerationError, never as content.
type GenerationGateway interface {
	Complete(ctx context.Context, req GenerationRequest) (string, error)
	// Stream yields text fragments in order; the sequence ends after the
	// last fragment or after the first error.
	Stream(ctx context.Context, req GenerationRequest) iter.Seq2[string, error]
}

// KnowledgeRetriever looks up stored knowledge similar to a query. An
// uninitialized index yields an empty slice, not an error.
type KnowledgeRetriever interface {
	TopK(ctx context.Context, query string, k int) ([]RetrievedItem, error)
}

// FragmentFunc receives streamed text. Returning an error aborts the stream.
type FragmentFunc func(fragment string) error

// FormatRetrievedItems renders retrieval results as prompt context.
func FormatRetrievedItems(items []RetrievedItem) string {
	if len(items) == 0 {
		return "No relevant context found."
	}

	var parts []string
	for i, item := range items {
		parts = append(parts, fmt.Sprintf("--- Reference %d (Score: %.2f) ---\n%s",
			i+1, item.Score, strings.TrimSpace(item.Payload)))
	}

	return strings.Join(parts, "\n\n")
}

// collectStream drains a stream, forwarding each fragment to onFragment.
func collectStream(stream iter.Seq2[string, error], onFragment FragmentFunc) (string, error) {
	var sb strings.Builder
	for fragment, err := range stream {
		if err != nil {
			return "", err
		}
		if fragment == "" {
			continue
		}
		sb.WriteString(fragment)
		if err := onFragment(fragment); err != nil {
			return "", fmt.Errorf("fragment consumer: %w", err)
		}
	}
	return sb.String(), nil
}
