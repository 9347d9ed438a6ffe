// Package splitter cuts extracted page text into prompt-sized chunks.
package splitter

import (
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

// Separators are tried in order: paragraphs, lines, then sentence ends in
// Latin and Arabic script, then words.
var Separators = []string{"\n\n", "\n", ". ", "。", "۔ ", "؟ ", "? ", "! ", " ", ""}

// TextSplitter wraps the langchaingo text splitter
type TextSplitter struct {
	splitter textsplitter.TextSplitter
}

// NewRecursiveCharacterTextSplitter creates a recursive character splitter whose
// chunk size and overlap are measured in runes.
func NewRecursiveCharacterTextSplitter(chunkSize, chunkOverlap int) *TextSplitter {
	ts := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(Separators),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)

	return &TextSplitter{splitter: ts}
}

// SplitText splits text into chunks
func (ts *TextSplitter) SplitText(text string) ([]string, error) {
	return ts.splitter.SplitText(text)
}

// Head returns at most n leading chunks of text. If splitting fails the whole
// text is returned as a single chunk along with the error.
func (ts *TextSplitter) Head(text string, n int) ([]string, error) {
	chunks, err := ts.SplitText(text)
	if err != nil || len(chunks) == 0 {
		return []string{text}, err
	}
	if n > 0 && len(chunks) > n {
		chunks = chunks[:n]
	}
	return chunks, nil
}
