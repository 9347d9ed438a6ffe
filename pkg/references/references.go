// Package references rewrites textual citations in model prose into markdown links:
// numbered citations against a trailing sources list, Quran and hadith mentions
// against their canonical sites, and bare URLs.
package references

import (
	"regexp"
	"sort"
	"strings"
)

// RefType classifies a resolved reference.
type RefType string

const (
	RefQuran  RefType = "quran"
	RefHadith RefType = "hadith"
	RefURL    RefType = "url"
)

// ParsedReference is one citation found while rewriting.
type ParsedReference struct {
	Type    RefType           `json:"type"`
	Text    string            `json:"text"`
	URL     string            `json:"url"`
	Details map[string]string `json:"details,omitempty"`
}

// Result is the rewritten text and the references that were linked, in pass order.
type Result struct {
	Text       string            `json:"processedText"`
	References []ParsedReference `json:"references"`
}

var (
	// markdownLinkRe detects prose that already carries inline citations.
	markdownLinkRe = regexp.MustCompile(`\[[^\]]+\]\(https?://`)

	// linkSpanRe matches a whole markdown link, allowing one level of brackets in
	// the label so rewritten citations like [[1]](url) are covered.
	linkSpanRe = regexp.MustCompile(`\[(?:[^\[\]]|\[[^\[\]]*\])*\]\([^)\s]*\)`)
	autoLinkRe = regexp.MustCompile(`<https?://[^>\s]+>`)
	bareURLRe  = regexp.MustCompile("https?://[^\\s<>()\\[\\]\"'`]+")
)

// HasMarkdownLinks reports whether text already contains [label](http...) links.
// ExtractReferences leaves such text untouched.
func HasMarkdownLinks(text string) bool {
	return markdownLinkRe.MatchString(text)
}

// ExtractReferences rewrites citations in text. Passes run in a fixed order: numbered
// citations, scripture mentions, then bare URLs. Each pass skips the links and URLs
// already present, so no pass re-wraps the output of an earlier one.
func ExtractReferences(text string) Result {
	if text == "" || HasMarkdownLinks(text) {
		return Result{Text: text}
	}

	var refs []ParsedReference
	body, sourcesSection := splitSources(text)
	table := parseSourcesList(sourcesSection)

	body = expandCitationGroups(body)
	body, cited := rewriteCitations(body, table)
	refs = append(refs, cited...)

	body, scripture := rewriteScripture(body)
	refs = append(refs, scripture...)

	text, urls := wrapBareURLs(body + sourcesSection)
	refs = append(refs, urls...)

	return Result{Text: text, References: refs}
}

type span struct{ start, end int }

// protectedSpans returns the sorted byte ranges of existing links in text, and of
// bare URLs too when withURLs is set.
func protectedSpans(text string, withURLs bool) []span {
	var spans []span
	for _, re := range []*regexp.Regexp{linkSpanRe, autoLinkRe} {
		for _, m := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, span{m[0], m[1]})
		}
	}
	if withURLs {
		for _, m := range bareURLRe.FindAllStringIndex(text, -1) {
			spans = append(spans, span{m[0], m[1]})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

func overlaps(spans []span, start, end int) bool {
	for _, s := range spans {
		if s.start >= end {
			return false
		}
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}

// replaceOutside calls fn for each match of re that does not touch a protected span.
// fn receives the submatch indices and returns the replacement, or false to keep the match.
func replaceOutside(text string, re *regexp.Regexp, spans []span, fn func(m []int) (string, bool)) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		if overlaps(spans, m[0], m[1]) {
			continue
		}
		repl, ok := fn(m)
		if !ok {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(repl)
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// group returns submatch i of m in text, or "" when it did not participate.
func group(text string, m []int, i int) string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return text[m[2*i]:m[2*i+1]]
}
