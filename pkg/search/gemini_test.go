package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestResultFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking out loud", Thought: true},
				{Text: "Scholars differ on music [1]."},
				{Text: "\n\nSources:\n[1] IslamQA - https://islamqa.info/en/answers/5000"},
			}},
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{URI: "https://islamqa.info/en/answers/5000", Title: "islamqa.info"}},
					{Web: &genai.GroundingChunkWeb{URI: "https://islamqa.info/en/answers/5000", Title: "duplicate"}},
					{Web: nil},
					{Web: &genai.GroundingChunkWeb{URI: "https://sunnah.com/bukhari:5590", Title: "sunnah.com"}},
				},
			},
		}},
	}

	res, err := resultFromResponse(resp)
	require.NoError(t, err)

	assert.Equal(t, "Scholars differ on music [1].\n\nSources:\n[1] IslamQA - https://islamqa.info/en/answers/5000", res.Text)
	assert.Equal(t, []Source{
		{Title: "islamqa.info", URL: "https://islamqa.info/en/answers/5000"},
		{Title: "sunnah.com", URL: "https://sunnah.com/bukhari:5590"},
	}, res.Sources)
}

func TestResultFromResponseWithoutAnswer(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil response", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"only thoughts", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "hmm", Thought: true}}},
		}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resultFromResponse(tt.resp)
			assert.ErrorIs(t, err, ErrNoResult)
		})
	}
}
