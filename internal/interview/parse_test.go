package interview

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysis_RoundTrip(t *testing.T) {
	original := AnalysisResult{
		Score:        7.35,
		Strengths:    []string{"Explains trade-offs", "Cites production incidents"},
		Improvements: []string{"Quantify impact"},
		Summary:      "Strong grasp of consistency models.",
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	parsed, err := ParseAnalysis(string(data))
	require.NoError(t, err)

	assert.InDelta(t, original.Score, parsed.Score, 1e-6)
	assert.Equal(t, original.Strengths, parsed.Strengths)
	assert.Equal(t, original.Improvements, parsed.Improvements)
	assert.Equal(t, original.Summary, parsed.Summary)
	assert.False(t, parsed.Degraded)
}

func TestParseAnalysis_WrappedOutput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		score float64
	}{
		{
			name:  "markdown code block",
			input: "```json\n{\"score\": 8, \"strengths\": [], \"improvements\": [], \"summary\": \"good\"}\n```",
			score: 8,
		},
		{
			name:  "preamble and trailing text",
			input: "Here is my assessment:\n{\"score\": 4.5, \"strengths\": [\"honest\"], \"improvements\": [\"structure\"], \"summary\": \"thin\"}\nThanks!",
			score: 4.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseAnalysis(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.score, parsed.Score, 1e-6)
			assert.NotNil(t, parsed.Strengths)
			assert.NotNil(t, parsed.Improvements)
		})
	}
}

func TestParseAnalysis_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "plain prose", input: "The candidate did well overall."},
		{name: "empty", input: ""},
		{name: "missing summary", input: `{"score": 7, "strengths": [], "improvements": []}`},
		{name: "non-numeric score", input: `{"score": "high", "strengths": [], "improvements": [], "summary": "x"}`},
		{name: "score out of range", input: `{"score": 85, "strengths": [], "improvements": [], "summary": "x"}`},
		{name: "truncated JSON", input: `{"score": 7, "strengths": ["a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnalysis(tt.input)
			require.Error(t, err)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, "analysis", parseErr.Target)
			assert.Equal(t, tt.input, parseErr.Raw)
		})
	}
}

func TestDegradedAnalysis(t *testing.T) {
	result := DegradedAnalysis("free text verdict")

	assert.Equal(t, 5.0, result.Score)
	assert.Empty(t, result.Strengths)
	assert.Empty(t, result.Improvements)
	assert.Equal(t, "free text verdict", result.Summary)
	assert.True(t, result.Degraded)
}

func TestParseComparison(t *testing.T) {
	raw := `{
  "overall_match": 0.75,
  "comparisons": [
    {"aspect": "Accuracy", "best_answer_point": "Uses MVCC", "user_answer_point": "Mentions locking", "match_status": "partial", "suggestion": "Explain snapshots"}
  ],
  "missing_points": ["Write skew"],
  "extra_points": []
}`

	result, err := ParseComparison(raw)
	require.NoError(t, err)

	assert.InDelta(t, 0.75, result.OverallMatch, 1e-9)
	require.Len(t, result.Comparisons, 1)
	assert.Equal(t, MatchPartial, result.Comparisons[0].Status)
	assert.Equal(t, "Uses MVCC", result.Comparisons[0].ReferencePoint)
	assert.Equal(t, "Mentions locking", result.Comparisons[0].CandidatePoint)
	assert.Equal(t, []string{"Write skew"}, result.MissingPoints)
	assert.NotNil(t, result.ExtraPoints)
}

func TestParseComparison_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not JSON", input: "They match reasonably well."},
		{name: "match above one", input: `{"overall_match": 1.5, "comparisons": [], "missing_points": [], "extra_points": []}`},
		{name: "unknown status", input: `{"overall_match": 0.5, "comparisons": [{"aspect": "a", "best_answer_point": "b", "user_answer_point": "c", "match_status": "close", "suggestion": "d"}], "missing_points": [], "extra_points": []}`},
		{name: "missing lists", input: `{"overall_match": 0.5, "comparisons": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseComparison(tt.input)
			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, "comparison", parseErr.Target)
		})
	}
}
