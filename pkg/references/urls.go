package references

import (
	"net/url"
	"strings"
)

// ExtractURLs returns every distinct http(s) URL in text in order of appearance,
// including those inside markdown links.
func ExtractURLs(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, raw := range bareURLRe.FindAllString(text, -1) {
		u := trimURL(raw)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// trimURL drops trailing punctuation picked up from prose and rejects URLs without a host.
func trimURL(raw string) string {
	u := strings.TrimRight(raw, ".,;:!?)]}>'\"*_")
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return u
}

func hostLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// wrapBareURLs turns URLs that are not already link targets into [host](url).
func wrapBareURLs(text string) (string, []ParsedReference) {
	var refs []ParsedReference
	seen := make(map[string]bool)
	spans := protectedSpans(text, false)
	out := replaceOutside(text, bareURLRe, spans, func(m []int) (string, bool) {
		raw := text[m[0]:m[1]]
		u := trimURL(raw)
		if u == "" {
			return "", false
		}
		label := hostLabel(u)
		if !seen[u] {
			seen[u] = true
			refs = append(refs, ParsedReference{
				Type:    RefURL,
				Text:    label,
				URL:     u,
				Details: map[string]string{"host": label},
			})
		}
		// keep the trimmed punctuation after the link
		return "[" + label + "](" + u + ")" + raw[len(u):], true
	})
	return out, refs
}
