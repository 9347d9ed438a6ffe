package evidence

import (
	"fmt"
	"strings"

	"github.com/mikeboe/evidence-helper/pkg/references"
)

const maxQuoteRunes = 300

// Appendix renders accumulated evidence as the "Verified Evidence" markdown section.
// It returns "" when there is nothing to show.
func Appendix(f Fragments) string {
	if f.IsEmpty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n## Verified Evidence\n")

	if len(f.QuranVerses) > 0 {
		b.WriteString("\n### Quran\n\n")
		for _, v := range f.QuranVerses {
			label := fmt.Sprintf("Quran %d:%d", v.Surah, v.AyahStart)
			if v.AyahEnd > v.AyahStart {
				label += fmt.Sprintf("-%d", v.AyahEnd)
			}
			if v.SurahName != "" {
				label = "Surah " + v.SurahName + " " + strings.TrimPrefix(label, "Quran ")
			}
			entry(&b, label, verseURL(v), v.Translation, "")
		}
	}

	if len(f.Hadith) > 0 {
		b.WriteString("\n### Hadith\n\n")
		for _, h := range f.Hadith {
			label := references.CollectionName(h.Collection)
			if h.Number != "" {
				label += " " + h.Number
			}
			var note string
			if h.Grade != "" {
				note = h.Grade
			}
			if h.Narrator != "" {
				if note != "" {
					note += "; "
				}
				note += h.Narrator
			}
			entry(&b, label, hadithURL(h), h.Text, note)
		}
	}

	if len(f.ScholarlyOpinions) > 0 {
		b.WriteString("\n### Scholarly Opinions\n\n")
		for _, o := range f.ScholarlyOpinions {
			label := o.Scholar
			if label == "" {
				label = o.Source
			}
			if label == "" {
				label = "Unattributed"
			}
			var note string
			if o.Scholar != "" && o.Source != "" {
				note = o.Source
			}
			entry(&b, label, firstURL(o.URL, o.SourceURL), o.Quote, note)
		}
	}

	if len(f.Fatwas) > 0 {
		b.WriteString("\n### Rulings\n\n")
		for _, w := range f.Fatwas {
			label := w.Title
			if label == "" {
				label = "Ruling"
			}
			text := w.Ruling
			if text == "" {
				text = w.Explanation
			}
			entry(&b, label, firstURL(w.URL, w.SourceURL), text, w.Source)
		}
	}
	return b.String()
}

// entry writes "- [label](url) (note): "quote"".
func entry(b *strings.Builder, label, u, quote, note string) {
	b.WriteString("- ")
	if u != "" {
		fmt.Fprintf(b, "[%s](%s)", escapeLabel(label), u)
	} else {
		b.WriteString("**" + label + "**")
	}
	if note != "" {
		fmt.Fprintf(b, " (%s)", note)
	}
	if q := truncate(quote, maxQuoteRunes); q != "" {
		b.WriteString(": \"" + q + "\"")
	}
	b.WriteString("\n")
}

func verseURL(v QuranVerse) string {
	if references.ValidVerse(v.Surah, v.AyahStart, v.AyahEnd) {
		return references.QuranURL(v.Surah, v.AyahStart, v.AyahEnd)
	}
	return firstURL(v.URL, v.SourceURL)
}

func hadithURL(h Hadith) string {
	if slug, ok := references.CanonicalCollection(h.Collection); ok && h.Number != "" {
		return references.HadithURL(slug, h.Number)
	}
	return firstURL(h.URL, h.SourceURL)
}

func firstURL(urls ...string) string {
	for _, u := range urls {
		if u != "" {
			return u
		}
	}
	return ""
}

func escapeLabel(s string) string {
	return strings.NewReplacer("[", "(", "]", ")").Replace(s)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
