package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const systemPrompt = `You are a careful research assistant answering questions about Islamic rulings and evidence.
Search the web and answer from what you find, preferring primary sources: sunnah.com, quran.com, islamqa.info, islamweb.net, seekersguidance.org, dorar.net.
Cite every claim with a bracketed number like [1] and end with a "Sources:" list where each line is "[n] Title - URL".
Quote Quran verses as "Surah Name C:V" and hadith as "Collection Number" (for example "Sahih al-Bukhari 1").
Present differences of opinion fairly and do not issue personal rulings.`

// GeminiSearcher answers with Gemini using the Google Search tool and reports the
// grounding pages as sources.
type GeminiSearcher struct {
	Client *genai.Client
	Model  string
	Logger *slog.Logger
}

func NewGeminiSearcher(client *genai.Client, model string) *GeminiSearcher {
	return &GeminiSearcher{Client: client, Model: model, Logger: slog.Default()}
}

func (s *GeminiSearcher) Search(ctx context.Context, req Request) (*Result, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" || m.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	prompt := req.Query
	if req.Understanding != "" {
		prompt = fmt.Sprintf("Question: %s\n\nWhat the question is asking:\n%s", req.Query, req.Understanding)
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	resp, err := s.Client.Models.GenerateContent(ctx, s.Model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	res, err := resultFromResponse(resp)
	if err != nil {
		return nil, err
	}
	s.logger().Info("Search complete", "model", s.Model, "sources", len(res.Sources), "length", len(res.Text))
	return res, nil
}

// resultFromResponse collects the answer text and the grounding web pages, deduplicated by URL.
func resultFromResponse(resp *genai.GenerateContentResponse) (*Result, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, ErrNoResult
	}
	cand := resp.Candidates[0]

	var b strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, ErrNoResult
	}

	res := &Result{Text: text}
	if cand.GroundingMetadata != nil {
		seen := make(map[string]bool)
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
				continue
			}
			seen[chunk.Web.URI] = true
			res.Sources = append(res.Sources, Source{Title: chunk.Web.Title, URL: chunk.Web.URI})
		}
	}
	return res, nil
}

func (s *GeminiSearcher) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
