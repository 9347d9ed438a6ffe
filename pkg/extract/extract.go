// Package extract turns raw page markup into a normalized record using the
// per-domain selectors from package sites, falling back to generic selectors.
package extract

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/mikeboe/evidence-helper/pkg/sites"
)

const (
	// MinTitleLength and MinContentLength are the shortest texts a selector may
	// yield before the next selector in the priority list is tried.
	MinTitleLength   = 3
	MinContentLength = 100

	// MaxFallbackChars caps full-body text used when no content container matched.
	MaxFallbackChars = 10000

	MaxRelatedLinks = 50
)

// Content is the normalized record produced once per fetched page.
type Content struct {
	URL           string             `json:"url"`
	Domain        string             `json:"domain"`
	IsContentPage bool               `json:"isContentPage"`
	Title         string             `json:"title"`
	Content       string             `json:"content"`
	Metadata      map[string]any     `json:"metadata,omitempty"`
	RelatedLinks  []string           `json:"relatedLinks,omitempty"`
	EvidenceType  sites.EvidenceType `json:"evidenceType,omitempty"`
}

// Engine resolves the site record for each page before extracting it.
type Engine struct {
	Sites *sites.Store
}

func NewEngine(store *sites.Store) *Engine {
	return &Engine{Sites: store}
}

// Extract extracts pageURL using its domain's record, or the generic rules.
func (e *Engine) Extract(rawHTML, pageURL string) Content {
	return Extract(rawHTML, pageURL, e.resolve(pageURL))
}

// SearchResults parses a site search page for pageURL's domain.
func (e *Engine) SearchResults(rawHTML, pageURL string) []string {
	return SearchResults(rawHTML, pageURL, e.resolve(pageURL))
}

func (e *Engine) resolve(pageURL string) *sites.Config {
	if e.Sites == nil {
		return sites.Generic()
	}
	cfg, _ := e.Sites.Resolve(pageURL)
	return cfg
}

// Extract never fails: unparseable markup or a nil cfg degrade to generic extraction.
func Extract(rawHTML, pageURL string, cfg *sites.Config) Content {
	out := Content{
		URL:           pageURL,
		Domain:        sites.DomainOf(pageURL),
		IsContentPage: cfg.IsContentPage(pageURL),
		EvidenceType:  inferEvidenceType(pageURL, cfg),
	}

	doc, err := parse(rawHTML)
	if err != nil {
		return out
	}
	generic := sites.Generic()

	out.Title = firstText(doc, titleSelectors(cfg), MinTitleLength, false)
	if out.Title == "" {
		out.Title = firstText(doc, generic.Extraction.Title, MinTitleLength, false)
	}

	out.Content = firstText(doc, contentSelectors(cfg), MinContentLength, true)
	if out.Content == "" {
		out.Content = firstText(doc, generic.Extraction.MainContent, MinContentLength, true)
	}
	if out.Content == "" {
		out.Content = bodyText(doc)
	}

	out.Metadata = extractMetadata(doc, cfg)
	if cfg != nil {
		out.RelatedLinks = relatedLinks(doc, pageURL, cfg)
	}
	return out
}

// SearchResults returns absolute result links from a site search page.
func SearchResults(rawHTML, pageURL string, cfg *sites.Config) []string {
	if cfg == nil || cfg.Search.ResultLinkSelector == "" && cfg.Search.ResultSelector == "" {
		return nil
	}
	doc, err := parse(rawHTML)
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	linkSel := cfg.Search.ResultLinkSelector
	if linkSel == "" {
		linkSel = "a[href]"
	}
	var scope *goquery.Selection
	if cfg.Search.ResultSelector != "" {
		scope = doc.Find(cfg.Search.ResultSelector)
	} else {
		scope = doc.Selection
	}

	seen := make(map[string]bool)
	var links []string
	scope.Find(linkSel).Each(func(_ int, s *goquery.Selection) {
		if len(links) >= MaxRelatedLinks {
			return
		}
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		abs, ok := absolute(base, href)
		if !ok || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})
	return links
}

func parse(rawHTML string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)
	doc.Find("script, style, noscript, template, iframe, svg").Remove()
	return doc, nil
}

func titleSelectors(cfg *sites.Config) []string {
	if cfg == nil {
		return nil
	}
	return cfg.Extraction.Title
}

func contentSelectors(cfg *sites.Config) []string {
	if cfg == nil {
		return nil
	}
	return cfg.Extraction.MainContent
}

// firstText returns the text of the first selector whose match is longer than minLen.
// With all set, every matched element contributes; otherwise only the first one.
func firstText(doc *goquery.Document, selectors []string, minLen int, all bool) string {
	for _, selector := range selectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		var text string
		if all {
			parts := make([]string, 0, sel.Length())
			sel.Each(func(_ int, s *goquery.Selection) {
				if t := selectionText(s); t != "" {
					parts = append(parts, t)
				}
			})
			text = strings.Join(parts, "\n\n")
		} else {
			text = selectionText(sel.First())
		}
		if len([]rune(text)) >= minLen {
			return text
		}
	}
	return ""
}

// selectionText reads meta tags through their content attribute, everything else through its text.
func selectionText(s *goquery.Selection) string {
	if goquery.NodeName(s) == "meta" {
		v, _ := s.Attr("content")
		return strings.TrimSpace(v)
	}
	var b strings.Builder
	for _, n := range s.Nodes {
		writeText(&b, n)
	}
	return normalizeText(b.String())
}

func bodyText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	body = body.Clone()
	body.Find("nav, footer, header, aside, form").Remove()
	text := selectionText(body)
	runes := []rune(text)
	if len(runes) > MaxFallbackChars {
		text = strings.TrimSpace(string(runes[:MaxFallbackChars]))
	}
	return text
}

func extractMetadata(doc *goquery.Document, cfg *sites.Config) map[string]any {
	meta := make(map[string]any)
	if cfg != nil {
		for field, m := range cfg.Extraction.Metadata {
			if v, ok := metadataValue(doc, m); ok {
				meta[field] = v
			}
		}
	}
	for field, m := range sites.Generic().Extraction.Metadata {
		if _, set := meta[field]; set {
			continue
		}
		if v, ok := metadataValue(doc, m); ok {
			meta[field] = v
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func metadataValue(doc *goquery.Document, m sites.MetadataField) (any, bool) {
	sel := doc.Find(m.Selector)
	if sel.Length() == 0 {
		return nil, false
	}
	switch {
	case m.Type == "list":
		var items []string
		sel.Each(func(_ int, s *goquery.Selection) {
			if t := selectionText(s); t != "" {
				items = append(items, t)
			}
		})
		return items, len(items) > 0
	case m.Type == "number":
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, selectionText(sel.First()))
		n, err := strconv.Atoi(digits)
		if err != nil {
			return nil, false
		}
		return n, true
	case strings.HasPrefix(m.Type, "attr:"):
		v, ok := sel.First().Attr(strings.TrimPrefix(m.Type, "attr:"))
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	default:
		t := selectionText(sel.First())
		return t, t != ""
	}
}

// inferEvidenceType prefers a single declared type, then URL keywords, then the
// first declared type.
func inferEvidenceType(pageURL string, cfg *sites.Config) sites.EvidenceType {
	if cfg != nil && len(cfg.EvidenceTypes) == 1 {
		return cfg.EvidenceTypes[0]
	}
	lower := strings.ToLower(pageURL)
	switch {
	case strings.Contains(lower, "hadith"):
		return sites.EvidenceHadith
	case strings.Contains(lower, "tafsir"):
		return sites.EvidenceTafsir
	case strings.Contains(lower, "quran"), strings.Contains(lower, "surah"):
		return sites.EvidenceQuran
	case strings.Contains(lower, "fatwa"), strings.Contains(lower, "answers"):
		return sites.EvidenceFatwa
	case strings.Contains(lower, "fiqh"), strings.Contains(lower, "ruling"):
		return sites.EvidenceFiqh
	}
	return cfg.PrimaryEvidenceType()
}
