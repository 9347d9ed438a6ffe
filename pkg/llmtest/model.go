// Package llmtest provides a scripted llms.Model for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Model answers every request with Respond. When the caller sets a streaming
// function, the reply is delivered to it word by word before being returned.
type Model struct {
	Respond func(ctx context.Context, prompt string, opts llms.CallOptions) (string, error)

	mu      sync.Mutex
	prompts []string
}

var _ llms.Model = (*Model)(nil)

// Reply returns a Model that always answers with s.
func Reply(s string) *Model {
	return &Model{Respond: func(context.Context, string, llms.CallOptions) (string, error) {
		return s, nil
	}}
}

func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}

	prompt := Text(messages)
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	reply, err := m.Respond(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	if opts.StreamingFunc != nil {
		for _, chunk := range strings.SplitAfter(reply, " ") {
			if chunk == "" {
				continue
			}
			if err := opts.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Prompts returns the rendered prompts received so far.
func (m *Model) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Text joins the text parts of messages.
func Text(messages []llms.MessageContent) string {
	var b strings.Builder
	for _, mc := range messages {
		for _, part := range mc.Parts {
			if tp, ok := part.(llms.TextContent); ok {
				b.WriteString(tp.Text)
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}
