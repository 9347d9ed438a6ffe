package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/evidence-helper/pkg/extract"
	"github.com/mikeboe/evidence-helper/pkg/references"
	"github.com/mikeboe/evidence-helper/pkg/splitter"
)

// MinPageText is the shortest page text worth sending to the model.
const MinPageText = 200

// Extractor asks the completion service to structure a page's evidence.
// Failures are soft: the page simply contributes nothing.
type Extractor struct {
	LLM       llms.Model
	Splitter  *splitter.TextSplitter
	MaxChunks int
	Logger    *slog.Logger
}

func NewExtractor(llm llms.Model, chunkSize, chunkOverlap, maxChunks int) *Extractor {
	if maxChunks <= 0 {
		maxChunks = 1
	}
	return &Extractor{
		LLM:       llm,
		Splitter:  splitter.NewRecursiveCharacterTextSplitter(chunkSize, chunkOverlap),
		MaxChunks: maxChunks,
		Logger:    slog.Default(),
	}
}

// ExtractPage extracts evidence from an extracted page, giving the model its title,
// inferred evidence type and scraped metadata as context.
func (x *Extractor) ExtractPage(ctx context.Context, page extract.Content, query string, onProgress func(string)) Fragments {
	if len([]rune(page.Content)) < MinPageText {
		return Fragments{}
	}
	var b strings.Builder
	if page.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", page.Title)
	}
	if page.EvidenceType != "" {
		fmt.Fprintf(&b, "Page type: %s\n", page.EvidenceType)
	}
	keys := make([]string, 0, len(page.Metadata))
	for k := range page.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, page.Metadata[k])
	}
	b.WriteString("\n")
	b.WriteString(page.Content)
	return x.Extract(ctx, page.URL, b.String(), query, onProgress)
}

// Extract returns the fragments found in pageText for query. It never returns an
// error; an unusable reply is logged and yields empty Fragments.
func (x *Extractor) Extract(ctx context.Context, pageURL, pageText, query string, onProgress func(string)) Fragments {
	logger := x.logger().With("url", pageURL)
	if len([]rune(strings.TrimSpace(pageText))) < MinPageText {
		logger.Debug("Skipping short page")
		return Fragments{}
	}

	chunks, err := x.Splitter.Head(pageText, x.MaxChunks)
	if err != nil {
		logger.Warn("Failed to split page text", "error", err)
	}

	if onProgress != nil {
		onProgress(fmt.Sprintf("Reading %s for evidence\n", pageURL))
	}

	input := fmt.Sprintf("Question: %s\n\nPage URL: %s\n\nPage text:\n%s", query, pageURL, strings.Join(chunks, "\n\n---\n\n"))
	resp, err := x.LLM.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, evidenceSystemPrompt+"\n\n# Response Format:\n"+evidenceSchema),
		llms.TextParts(llms.ChatMessageTypeHuman, input),
	}, llms.WithJSONMode())
	if err != nil {
		logger.Warn("Evidence extraction failed", "error", err)
		return Fragments{}
	}
	if len(resp.Choices) == 0 {
		logger.Warn("Evidence extraction returned no choices")
		return Fragments{}
	}

	f, err := ParseFragments(resp.Choices[0].Content)
	if err != nil {
		logger.Warn("Discarding malformed evidence reply", "error", err)
		return Fragments{}
	}
	f = Sanitize(f, pageURL)
	logger.Info("Extracted evidence", "hadith", len(f.Hadith), "verses", len(f.QuranVerses),
		"opinions", len(f.ScholarlyOpinions), "fatwas", len(f.Fatwas))
	return f
}

func (x *Extractor) logger() *slog.Logger {
	if x.Logger != nil {
		return x.Logger
	}
	return slog.Default()
}

const evidenceSystemPrompt = `You extract Islamic evidence from a web page to help answer a question.
Only report evidence that literally appears in the page text. Do not invent references.
- hadith: collection name, hadith number, grade, Arabic text, English text, narrator
- quranVerses: surah number, first and last ayah, surah name, Arabic text, translation
- scholarlyOpinions: the scholar, a short direct quote, and the book or site it comes from
- fatwas: the question title, the ruling in one sentence, a brief explanation, the issuing source
Leave a list empty when the page has nothing of that kind.`

const evidenceSchema = `Return the JSON object directly without any formatting or additional text:{
  "type": "object",
  "properties": {
    "hadith": {"type": "array", "items": {"type": "object", "properties": {
      "collection": {"type": "string"}, "number": {"type": "string"}, "grade": {"type": "string"},
      "arabicText": {"type": "string"}, "text": {"type": "string"}, "narrator": {"type": "string"}, "url": {"type": "string"}}}},
    "quranVerses": {"type": "array", "items": {"type": "object", "properties": {
      "surah": {"type": "integer"}, "ayahStart": {"type": "integer"}, "ayahEnd": {"type": "integer"},
      "surahName": {"type": "string"}, "arabicText": {"type": "string"}, "translation": {"type": "string"}, "url": {"type": "string"}}}},
    "scholarlyOpinions": {"type": "array", "items": {"type": "object", "properties": {
      "scholar": {"type": "string"}, "quote": {"type": "string"}, "source": {"type": "string"}, "url": {"type": "string"}}}},
    "fatwas": {"type": "array", "items": {"type": "object", "properties": {
      "title": {"type": "string"}, "ruling": {"type": "string"}, "explanation": {"type": "string"}, "source": {"type": "string"}, "url": {"type": "string"}}}}
  },
  "required": ["hadith", "quranVerses", "scholarlyOpinions", "fatwas"]
}`

// looseString accepts a JSON string or number.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	if string(b) == "null" {
		return nil
	}
	*s = looseString(strings.TrimSpace(string(b)))
	return nil
}

// looseInt accepts a JSON number or a numeric string.
type looseInt int

func (n *looseInt) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	*n = looseInt(f)
	return nil
}

type wireFragments struct {
	Hadith []struct {
		Collection string      `json:"collection"`
		Number     looseString `json:"number"`
		Grade      string      `json:"grade"`
		ArabicText string      `json:"arabicText"`
		Text       string      `json:"text"`
		Narrator   string      `json:"narrator"`
		URL        string      `json:"url"`
	} `json:"hadith"`
	QuranVerses []struct {
		Surah       looseInt `json:"surah"`
		AyahStart   looseInt `json:"ayahStart"`
		AyahEnd     looseInt `json:"ayahEnd"`
		SurahName   string   `json:"surahName"`
		ArabicText  string   `json:"arabicText"`
		Translation string   `json:"translation"`
		URL         string   `json:"url"`
	} `json:"quranVerses"`
	ScholarlyOpinions []ScholarlyOpinion `json:"scholarlyOpinions"`
	Fatwas            []Fatwa            `json:"fatwas"`
}

// ParseFragments parses a model reply, tolerating code fences and surrounding prose.
func ParseFragments(reply string) (Fragments, error) {
	body := strings.TrimSpace(reply)
	start, end := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}')
	if start < 0 || end <= start {
		return Fragments{}, fmt.Errorf("no JSON object in reply")
	}

	var w wireFragments
	dec := json.NewDecoder(strings.NewReader(body[start : end+1]))
	if err := dec.Decode(&w); err != nil {
		return Fragments{}, fmt.Errorf("json parse error: %w", err)
	}

	var f Fragments
	for _, h := range w.Hadith {
		f.Hadith = append(f.Hadith, Hadith{
			Collection: h.Collection,
			Number:     string(h.Number),
			Grade:      h.Grade,
			ArabicText: h.ArabicText,
			Text:       h.Text,
			Narrator:   h.Narrator,
			URL:        h.URL,
		})
	}
	for _, v := range w.QuranVerses {
		f.QuranVerses = append(f.QuranVerses, QuranVerse{
			Surah:       int(v.Surah),
			AyahStart:   int(v.AyahStart),
			AyahEnd:     int(v.AyahEnd),
			SurahName:   v.SurahName,
			ArabicText:  v.ArabicText,
			Translation: v.Translation,
			URL:         v.URL,
		})
	}
	f.ScholarlyOpinions = w.ScholarlyOpinions
	f.Fatwas = w.Fatwas
	return f, nil
}

// Sanitize trims every field, drops fragments missing their identifying fields and
// attributes the rest to sourceURL. Verses get their canonical quran.com link.
func Sanitize(f Fragments, sourceURL string) Fragments {
	var out Fragments
	for _, h := range f.Hadith {
		h = Hadith{
			Collection: strings.TrimSpace(h.Collection),
			Number:     strings.TrimSpace(h.Number),
			Grade:      strings.TrimSpace(h.Grade),
			ArabicText: strings.TrimSpace(h.ArabicText),
			Text:       strings.TrimSpace(h.Text),
			Narrator:   strings.TrimSpace(h.Narrator),
			URL:        cleanURL(h.URL),
			SourceURL:  sourceURL,
		}
		if h.Collection == "" && h.Text == "" {
			continue
		}
		if h.URL == "" && h.Number != "" {
			if slug, ok := references.CanonicalCollection(h.Collection); ok {
				h.URL = references.HadithURL(slug, h.Number)
			}
		}
		out.Hadith = append(out.Hadith, h)
	}
	for _, v := range f.QuranVerses {
		if v.AyahEnd <= v.AyahStart {
			v.AyahEnd = 0
		}
		if !references.ValidVerse(v.Surah, v.AyahStart, v.AyahEnd) {
			continue
		}
		v.SurahName = strings.TrimSpace(v.SurahName)
		if v.SurahName == "" {
			if s, ok := references.SurahByNumber(v.Surah); ok {
				v.SurahName = s.Name
			}
		}
		v.ArabicText = strings.TrimSpace(v.ArabicText)
		v.Translation = strings.TrimSpace(v.Translation)
		v.URL = references.QuranURL(v.Surah, v.AyahStart, v.AyahEnd)
		v.SourceURL = sourceURL
		out.QuranVerses = append(out.QuranVerses, v)
	}
	for _, o := range f.ScholarlyOpinions {
		o = ScholarlyOpinion{
			Scholar:   strings.TrimSpace(o.Scholar),
			Quote:     strings.TrimSpace(o.Quote),
			Source:    strings.TrimSpace(o.Source),
			URL:       cleanURL(o.URL),
			SourceURL: sourceURL,
		}
		if o.Quote == "" {
			continue
		}
		out.ScholarlyOpinions = append(out.ScholarlyOpinions, o)
	}
	for _, w := range f.Fatwas {
		w = Fatwa{
			Title:       strings.TrimSpace(w.Title),
			Ruling:      strings.TrimSpace(w.Ruling),
			Explanation: strings.TrimSpace(w.Explanation),
			Source:      strings.TrimSpace(w.Source),
			URL:         cleanURL(w.URL),
			SourceURL:   sourceURL,
		}
		if w.Title == "" && w.Ruling == "" {
			continue
		}
		out.Fatwas = append(out.Fatwas, w)
	}
	return out
}

// cleanURL keeps only absolute http(s) URLs.
func cleanURL(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return ""
}
