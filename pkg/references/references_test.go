package references

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReferencesLeavesLinkedTextUntouched(t *testing.T) {
	inputs := []string{
		"Already cited [Sunnah](http://x) and Sahih Bukhari 1 plus https://example.com",
		"See [1](https://quran.com/2/255).\n\nSources:\n[1] Quran - https://quran.com/2/255",
	}
	for _, in := range inputs {
		got := ExtractReferences(in)
		assert.Equal(t, in, got.Text)
		assert.Empty(t, got.References)
	}
}

func TestScriptureMentions(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		refType RefType
	}{
		{
			name:    "hadith collection and number",
			in:      "It is reported in Sahih Bukhari 1 that deeds are by intentions.",
			want:    "It is reported in [Sahih Bukhari 1](https://sunnah.com/bukhari:1) that deeds are by intentions.",
			refType: RefHadith,
		},
		{
			name:    "hadith with hadith keyword",
			in:      "See Sunan Abi Dawud, Hadith 4927.",
			want:    "See [Sunan Abi Dawud, Hadith 4927](https://sunnah.com/abudawud:4927).",
			refType: RefHadith,
		},
		{
			name:    "apostrophe variant",
			in:      "Narrated in Sunan an-Nasa’i 3104.",
			want:    "Narrated in [Sunan an-Nasa’i 3104](https://sunnah.com/nasai:3104).",
			refType: RefHadith,
		},
		{
			name:    "hadith number in parentheses",
			in:      "Kindness adorns everything, Sahih Muslim (2594).",
			want:    "Kindness adorns everything, [Sahih Muslim (2594)](https://sunnah.com/muslim:2594).",
			refType: RefHadith,
		},
		{
			name:    "bare collection name with hadith marker",
			in:      "Recorded by Muslim, hadith 45.",
			want:    "Recorded by [Muslim, hadith 45](https://sunnah.com/muslim:45).",
			refType: RefHadith,
		},
		{
			name:    "bare collection name after imam",
			in:      "Imam Muslim 2699 narrates it.",
			want:    "Imam [Muslim 2699](https://sunnah.com/muslim:2699) narrates it.",
			refType: RefHadith,
		},
		{
			name:    "surah with chapter and verse",
			in:      "Allah says in Surah Al-Baqarah 2:255 that",
			want:    "Allah says in [Surah Al-Baqarah 2:255](https://quran.com/2/255) that",
			refType: RefQuran,
		},
		{
			name:    "surah with verse range in parentheses",
			in:      "Surah Luqman (31:6-7) is often cited.",
			want:    "[Surah Luqman (31:6-7)](https://quran.com/31/6-7) is often cited.",
			refType: RefQuran,
		},
		{
			name:    "closing paren stays outside the link",
			in:      "(see Surah An-Nisa 4:34)",
			want:    "(see [Surah An-Nisa 4:34](https://quran.com/4/34))",
			refType: RefQuran,
		},
		{
			name:    "surah name with verse keyword",
			in:      "Read Surah Baqara, verse 286 tonight.",
			want:    "Read [Surah Baqara, verse 286](https://quran.com/2/286) tonight.",
			refType: RefQuran,
		},
		{
			name:    "quran chapter and verse",
			in:      "as in Qur'an 17:32.",
			want:    "as in [Qur'an 17:32](https://quran.com/17/32).",
			refType: RefQuran,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractReferences(tt.in)
			assert.Equal(t, tt.want, got.Text)
			require.Len(t, got.References, 1)
			assert.Equal(t, tt.refType, got.References[0].Type)
		})
	}
}

func TestOrdinaryWordsAreNotHadith(t *testing.T) {
	for _, in := range []string{
		"Every Muslim 5 times a day must pray.",
		"A Muslim (1) should be honest.",
		"The musnad 3 volumes were printed together.",
		"Muwatta 12 is not a collection citation without a qualifier.",
	} {
		got := ExtractReferences(in)
		assert.Equal(t, in, got.Text)
		assert.Empty(t, got.References)
	}
}

func TestInvalidVersesAreNotLinked(t *testing.T) {
	for _, in := range []string{
		"Quran 115:1 does not exist",
		"Quran 1:8 does not exist",
		"Surah Al-Fatihah 1:5-3 is backwards",
		"Surah Nonexistent, verse 3",
	} {
		got := ExtractReferences(in)
		assert.Equal(t, in, got.Text)
	}
}

func TestNumberedCitations(t *testing.T) {
	in := strings.Join([]string{
		"Music is discussed by many scholars [1, 2]. Some permit the duff [2] while [7] is unknown.",
		"",
		"## Sources",
		"[1] IslamQA - https://islamqa.info/en/answers/5000",
		"2. SeekersGuidance: https://seekersguidance.org/answers/music/.",
	}, "\n")

	got := ExtractReferences(in)

	assert.Contains(t, got.Text, "scholars [[1]](https://islamqa.info/en/answers/5000) [[2]](https://seekersguidance.org/answers/music/).")
	assert.Contains(t, got.Text, "permit the duff [[2]](https://seekersguidance.org/answers/music/) while [7] is unknown")
	// the sources list keeps its numbering; only its URLs are wrapped
	assert.Contains(t, got.Text, "[1] IslamQA - [islamqa.info](https://islamqa.info/en/answers/5000)")

	var cited []string
	for _, r := range got.References {
		if r.Details["number"] != "" {
			cited = append(cited, r.Details["number"])
		}
	}
	assert.Equal(t, []string{"1", "2"}, cited)
}

func TestParseSources(t *testing.T) {
	text := "Body\n\n**References:**\n" +
		"[1] First title - https://a.example/one\n" +
		"2) Second (https://b.example/two)\n" +
		"- 3 see also https://c.example/three\n" +
		"4. no url here\n"

	got := ParseSources(text)

	require.Len(t, got, 3)
	assert.Equal(t, Source{Number: 1, Title: "First title", URL: "https://a.example/one"}, got[1])
	assert.Equal(t, Source{Number: 2, Title: "Second", URL: "https://b.example/two"}, got[2])
	assert.Equal(t, "https://c.example/three", got[3].URL)
	assert.Empty(t, ParseSources("no sources section [1]"))
}

func TestBareURLsAreWrappedOnce(t *testing.T) {
	in := "More at https://www.islamweb.net/en/fatwa/1234, and Sahih Muslim 2000 (https://sunnah.com/muslim:2000)."

	got := ExtractReferences(in)

	assert.Equal(t,
		"More at [islamweb.net](https://www.islamweb.net/en/fatwa/1234), and [Sahih Muslim 2000](https://sunnah.com/muslim:2000) ([sunnah.com](https://sunnah.com/muslim:2000)).",
		got.Text)
	assert.NotContains(t, got.Text, "[[")
}

func TestExtractURLs(t *testing.T) {
	text := "See https://sunnah.com/bukhari:1, [x](https://quran.com/2/255) and https://sunnah.com/bukhari:1 again; also <https://islamqa.info/en/answers/1>."
	assert.Equal(t, []string{
		"https://sunnah.com/bukhari:1",
		"https://quran.com/2/255",
		"https://islamqa.info/en/answers/1",
	}, ExtractURLs(text))
}

func TestLookupSurah(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"Al-Baqarah", 2},
		{"al baqara", 2},
		{"Baqarah", 2},
		{"Ali 'Imran", 3},
		{"Al Imran", 3},
		{"Ya-Sin", 36},
		{"Yaseen", 36},
		{"The Cow", 2},
		{"Ikhlas", 112},
		{"An-Nas", 114},
		{"An-Nasr", 110},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := LookupSurah(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, s.Number)
		})
	}
	_, ok := LookupSurah("Nonexistent")
	assert.False(t, ok)
}

func TestCanonicalCollection(t *testing.T) {
	tests := map[string]string{
		"Sahih al-Bukhari":  "bukhari",
		"Sahih Bukhari":     "bukhari",
		"bukhari":           "bukhari",
		"Jami` at-Tirmidhi": "tirmidhi",
		"Sunan Abu Dawood":  "abudawud",
		"Riyad as-Salihin":  "riyadussalihin",
	}
	for in, want := range tests {
		got, ok := CanonicalCollection(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := CanonicalCollection("Unknown Book")
	assert.False(t, ok)
}

func TestCanonicalURLs(t *testing.T) {
	assert.Equal(t, "https://quran.com/2/255", QuranURL(2, 255, 0))
	assert.Equal(t, "https://quran.com/2/255", QuranURL(2, 255, 255))
	assert.Equal(t, "https://quran.com/31/6-7", QuranURL(31, 6, 7))
	assert.Equal(t, "https://quran.com/112", QuranURL(112, 0, 0))
	assert.Equal(t, "https://sunnah.com/bukhari:1", HadithURL("bukhari", "1"))
}
