package references

import (
	"regexp"
	"strconv"
	"strings"
)

// Source is one numbered entry of a trailing sources list.
type Source struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

var (
	sourcesHeaderRe = regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(?:\*\*|__)?(?:sources|references|citations)(?:\*\*|__)?[ \t]*:?[ \t]*(?:\*\*|__)?[ \t]*$`)

	// Line patterns in decreasing strictness.
	sourceLineRes = []*regexp.Regexp{
		// [1] Title - https://...
		regexp.MustCompile(`^\s*(?:[-*]\s*)?\[(\d+)\]\s*(.*?)\s*[-–—:|]?\s*<?(https?://\S+)\s*$`),
		// 1. Title: https://...   or   1) Title (https://...)
		regexp.MustCompile(`^\s*(?:[-*]\s*)?(\d+)[.)]\s*(.*?)\s*[-–—:|(]?\s*<?(https?://\S+)\s*$`),
		// anything with a leading number and a URL somewhere on the line
		regexp.MustCompile(`^\s*(?:[-*]\s*)?\[?(\d+)\]?[.):]?\s+(.*?)(https?://\S+)`),
	}

	citationGroupRe = regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)+)\]`)
	citationRe      = regexp.MustCompile(`\[(\d+)\]`)
)

// splitSources splits text at the last sources header. The section includes the header.
func splitSources(text string) (body, section string) {
	locs := sourcesHeaderRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, ""
	}
	start := locs[len(locs)-1][0]
	return text[:start], text[start:]
}

// ParseSources returns the numbered sources list at the end of text, if any.
func ParseSources(text string) map[int]Source {
	_, section := splitSources(text)
	return parseSourcesList(section)
}

func parseSourcesList(section string) map[int]Source {
	table := make(map[int]Source)
	if section == "" {
		return table
	}
	for _, line := range strings.Split(section, "\n") {
		for _, re := range sourceLineRes {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 {
				break
			}
			u := trimURL(m[3])
			if _, seen := table[n]; !seen && u != "" {
				table[n] = Source{Number: n, Title: cleanTitle(m[2], u), URL: u}
			}
			break
		}
	}
	return table
}

func cleanTitle(title, u string) string {
	title = strings.TrimSpace(strings.NewReplacer("**", "", "__", "").Replace(title))
	title = strings.TrimRight(title, " -–—:|(")
	title = strings.Trim(title, `"“”`)
	if title == "" {
		return hostLabel(u)
	}
	return title
}

// expandCitationGroups turns [1, 2, 3] into [1] [2] [3].
func expandCitationGroups(text string) string {
	spans := protectedSpans(text, true)
	return replaceOutside(text, citationGroupRe, spans, func(m []int) (string, bool) {
		parts := strings.Split(group(text, m, 1), ",")
		for i, p := range parts {
			parts[i] = "[" + strings.TrimSpace(p) + "]"
		}
		return strings.Join(parts, " "), true
	})
}

// rewriteCitations links each [n] with a known source; unknown numbers stay as they are.
func rewriteCitations(text string, table map[int]Source) (string, []ParsedReference) {
	if len(table) == 0 {
		return text, nil
	}
	var refs []ParsedReference
	seen := make(map[int]bool)
	spans := protectedSpans(text, true)
	out := replaceOutside(text, citationRe, spans, func(m []int) (string, bool) {
		n, err := strconv.Atoi(group(text, m, 1))
		if err != nil {
			return "", false
		}
		src, ok := table[n]
		if !ok {
			return "", false
		}
		if !seen[n] {
			seen[n] = true
			refs = append(refs, ParsedReference{
				Type: RefURL,
				Text: src.Title,
				URL:  src.URL,
				Details: map[string]string{
					"number": strconv.Itoa(n),
				},
			})
		}
		return "[[" + strconv.Itoa(n) + "]](" + src.URL + ")", true
	})
	return out, refs
}
