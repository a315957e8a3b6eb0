package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
)

const comparisonInstruction = `You are an expert in analysing interview answers. Compare the candidate's answer with the reference answer point by point.

Return your response in the following JSON format:
{
  "overall_match": <0-1 decimal>,
  "comparisons": [
    {
      "aspect": "<aspect being compared>",
      "best_answer_point": "<excerpt or point from the reference answer>",
      "user_answer_point": "<corresponding content from the candidate answer>",
      "match_status": "matched|partial|missing",
      "suggestion": "<how the candidate could improve>"
    }
  ],
  "missing_points": ["<key point the candidate left out>"],
  "extra_points": ["<valuable point the candidate added>"]
}`

// ComparisonEngine diffs a candidate answer against a reference answer.
type ComparisonEngine struct {
	gateway GenerationGateway
	model   string
}

func NewComparisonEngine(gateway GenerationGateway, model string) (*ComparisonEngine, error) {
	if gateway == nil {
		return nil, errors.New("comparison engine needs a generation gateway")
	}
	if model == "" {
		return nil, errors.New("no model configured for comparison engine")
	}

	return &ComparisonEngine{gateway: gateway, model: model}, nil
}

// Compare returns a *ParseError when the service output does not match the
// comparison shape; callers may retry.
func (e *ComparisonEngine) Compare(ctx context.Context, question, candidateAnswer, referenceAnswer string) (*ComparisonResult, error) {
	prompt := fmt.Sprintf(`QUESTION:
%s

CANDIDATE ANSWER:
%s

REFERENCE ANSWER:
%s

Compare the answers and return the JSON result only.`, question, candidateAnswer, referenceAnswer)

	raw, err := e.gateway.Complete(ctx, GenerationRequest{
		Model:             e.model,
		SystemInstruction: comparisonInstruction,
		Conversation:      []Message{{Speaker: SpeakerDirector, Text: prompt}},
		Temperature:       analysisTemperature,
		JSONOutput:        true,
	})
	if err != nil {
		return nil, err
	}

	result, err := ParseComparison(raw)
	if err != nil {
		log.Printf("❌ Comparison output rejected: %v", err)
		return nil, err
	}

	return result, nil
}
