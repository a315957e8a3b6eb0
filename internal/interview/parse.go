package interview

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const analysisSchemaJSON = `{
  "type": "object",
  "required": ["score", "strengths", "improvements", "summary"],
  "properties": {
    "score": {"type": "number", "minimum": 0, "maximum": 10},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "improvements": {"type": "array", "items": {"type": "string"}},
    "summary": {"type": "string"}
  }
}`

const comparisonSchemaJSON = `{
  "type": "object",
  "required": ["overall_match", "comparisons", "missing_points", "extra_points"],
  "properties": {
    "overall_match": {"type": "number", "minimum": 0, "maximum": 1},
    "comparisons": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["aspect", "best_answer_point", "user_answer_point", "match_status", "suggestion"],
        "properties": {
          "aspect": {"type": "string"},
          "best_answer_point": {"type": "string"},
          "user_answer_point": {"type": "string"},
          "match_status": {"enum": ["matched", "partial", "missing"]},
          "suggestion": {"type": "string"}
        }
      }
    },
    "missing_points": {"type": "array", "items": {"type": "string"}},
    "extra_points": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	analysisSchema   = mustSchema(analysisSchemaJSON)
	comparisonSchema = mustSchema(comparisonSchemaJSON)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid built-in schema: %v", err))
	}
	return schema
}

// ParseAnalysis decodes a generated answer analysis.
func ParseAnalysis(raw string) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := decodeStructured(raw, analysisSchema, &result); err != nil {
		return nil, &ParseError{Target: "analysis", Raw: raw, Err: err}
	}

	if result.Strengths == nil {
		result.Strengths = []string{}
	}
	if result.Improvements == nil {
		result.Improvements = []string{}
	}
	result.Degraded = false

	return &result, nil
}

// DegradedAnalysis is the neutral result used when the analysis output
// cannot be parsed. The raw text is kept as the summary.
func DegradedAnalysis(raw string) *AnalysisResult {
	return &AnalysisResult{
		Score:        5.0,
		Strengths:    []string{},
		Improvements: []string{},
		Summary:      raw,
		Degraded:     true,
	}
}

// ParseComparison decodes a generated comparison. There is no fallback.
func ParseComparison(raw string) (*ComparisonResult, error) {
	var result ComparisonResult
	if err := decodeStructured(raw, comparisonSchema, &result); err != nil {
		return nil, &ParseError{Target: "comparison", Raw: raw, Err: err}
	}

	if result.Comparisons == nil {
		result.Comparisons = []PointComparison{}
	}
	if result.MissingPoints == nil {
		result.MissingPoints = []string{}
	}
	if result.ExtraPoints == nil {
		result.ExtraPoints = []string{}
	}

	return &result, nil
}

func decodeStructured(raw string, schema *gojsonschema.Schema, target interface{}) error {
	jsonStr := extractJSON(raw)
	if strings.TrimSpace(jsonStr) == "" {
		return errors.New("empty response")
	}

	validation, err := schema.Validate(gojsonschema.NewStringLoader(jsonStr))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if !validation.Valid() {
		var msgs []string
		for _, e := range validation.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return fmt.Errorf("schema mismatch: %s", strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal([]byte(jsonStr), target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}

// extractJSON strips markdown fences and surrounding prose from model output.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}

	return strings.TrimSpace(text)
}
