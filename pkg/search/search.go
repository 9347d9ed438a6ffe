// Package search defines the web-search capability used by the research pipeline
// and a Gemini implementation grounded on Google Search.
package search

import (
	"context"
	"errors"
)

// ErrNoResult is returned when the search service produced no usable answer.
var ErrNoResult = errors.New("search returned no result")

// Message is one prior conversation turn. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Query string
	// Understanding is the model's restatement of the question, used to focus the search.
	Understanding string
	History       []Message
}

type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Result is the search service's prose answer and the pages it was grounded on.
type Result struct {
	Text    string
	Sources []Source
}

type Searcher interface {
	Search(ctx context.Context, req Request) (*Result, error)
}

// Func adapts a function to Searcher.
type Func func(ctx context.Context, req Request) (*Result, error)

func (f Func) Search(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}
