package references

import (
	"regexp"
	"strconv"
)

const surahName = `([a-z'’\-]+(?:\s+[a-z'’\-]+)?)`

var (
	// Surah Al-Baqarah 2:255, Surah Al-Baqarah (2:255-257)
	surahChapterVerseRe = regexp.MustCompile(`(?i)\b(?:surah|surat|sura)\s+` + surahName +
		`\s*,?\s*(\(\s*)?(\d{1,3})\s*:\s*(\d{1,3})(?:\s*[-–]\s*(\d{1,3}))?(\s*\))?`)
	// Surah Al-Baqarah, verse 255
	surahVerseRe = regexp.MustCompile(`(?i)\b(?:surah|surat|sura)\s+` + surahName +
		`\s*,?\s*(?:verses?|ayahs?|ayat)\s+(\d{1,3})(?:\s*[-–]\s*(\d{1,3}))?`)
	// Quran 2:255
	quranRe = regexp.MustCompile(`(?i)\bqur['’]?an\s*,?\s*(\d{1,3})\s*:\s*(\d{1,3})(?:\s*[-–]\s*(\d{1,3}))?`)
)

// rewriteScripture links Quran and hadith mentions. Each pass sees the output of
// the previous one as protected.
func rewriteScripture(text string) (string, []ParsedReference) {
	var refs []ParsedReference

	text = replaceOutside(text, surahChapterVerseRe, protectedSpans(text, true), func(m []int) (string, bool) {
		surah, start, end := atoi(group(text, m, 3)), atoi(group(text, m, 4)), atoi(group(text, m, 5))
		label, suffix := text[m[0]:m[1]], ""
		if group(text, m, 2) == "" && group(text, m, 6) != "" {
			// closing paren belongs to the surrounding prose
			closing := group(text, m, 6)
			label, suffix = label[:len(label)-len(closing)], closing
		}
		ref, ok := quranReference(label, surah, start, end)
		if !ok {
			return "", false
		}
		refs = append(refs, ref)
		return link(label, ref.URL) + suffix, true
	})

	text = replaceOutside(text, surahVerseRe, protectedSpans(text, true), func(m []int) (string, bool) {
		s, ok := LookupSurah(group(text, m, 1))
		if !ok {
			return "", false
		}
		label := text[m[0]:m[1]]
		ref, ok := quranReference(label, s.Number, atoi(group(text, m, 2)), atoi(group(text, m, 3)))
		if !ok {
			return "", false
		}
		refs = append(refs, ref)
		return link(label, ref.URL), true
	})

	text = replaceOutside(text, quranRe, protectedSpans(text, true), func(m []int) (string, bool) {
		label := text[m[0]:m[1]]
		ref, ok := quranReference(label, atoi(group(text, m, 1)), atoi(group(text, m, 2)), atoi(group(text, m, 3)))
		if !ok {
			return "", false
		}
		refs = append(refs, ref)
		return link(label, ref.URL), true
	})

	text = replaceOutside(text, hadithRe, protectedSpans(text, true), func(m []int) (string, bool) {
		slug, number, ok := hadithMention(text, m)
		if !ok {
			return "", false
		}
		label := text[m[0]:m[1]]
		u := HadithURL(slug, number)
		refs = append(refs, ParsedReference{
			Type:    RefHadith,
			Text:    label,
			URL:     u,
			Details: map[string]string{"collection": slug, "number": number},
		})
		return link(label, u), true
	})

	return text, refs
}

func quranReference(label string, surah, start, end int) (ParsedReference, bool) {
	if end == start {
		end = 0
	}
	if !ValidVerse(surah, start, end) {
		return ParsedReference{}, false
	}
	s, _ := SurahByNumber(surah)
	details := map[string]string{
		"surah":     strconv.Itoa(surah),
		"surahName": s.Name,
		"ayahStart": strconv.Itoa(start),
	}
	if end > 0 {
		details["ayahEnd"] = strconv.Itoa(end)
	}
	return ParsedReference{
		Type:    RefQuran,
		Text:    label,
		URL:     QuranURL(surah, start, end),
		Details: details,
	}, true
}

func link(label, u string) string {
	return "[" + label + "](" + u + ")"
}

// atoi returns 0 for empty or malformed input.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
