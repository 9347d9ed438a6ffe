// Package evidence extracts typed evidence fragments from crawled pages and
// merges them per research session.
package evidence

// Kind names one of the four fragment buckets.
type Kind string

const (
	KindHadith  Kind = "hadith"
	KindQuran   Kind = "quran"
	KindOpinion Kind = "scholarly_opinion"
	KindFatwa   Kind = "fatwa"
)

// Hadith is an attributed saying. Number is a string because some collections
// number sub-narrations ("8a").
type Hadith struct {
	Collection string `json:"collection"`
	Number     string `json:"number,omitempty"`
	Grade      string `json:"grade,omitempty"`
	ArabicText string `json:"arabicText,omitempty"`
	Text       string `json:"text,omitempty"`
	Narrator   string `json:"narrator,omitempty"`
	URL        string `json:"url,omitempty"`
	SourceURL  string `json:"sourceUrl"`
}

// QuranVerse is a verse or verse range. AyahEnd is 0 for a single verse.
type QuranVerse struct {
	Surah       int    `json:"surah"`
	AyahStart   int    `json:"ayahStart"`
	AyahEnd     int    `json:"ayahEnd,omitempty"`
	SurahName   string `json:"surahName,omitempty"`
	ArabicText  string `json:"arabicText,omitempty"`
	Translation string `json:"translation,omitempty"`
	URL         string `json:"url"`
	SourceURL   string `json:"sourceUrl"`
}

type ScholarlyOpinion struct {
	Scholar   string `json:"scholar,omitempty"`
	Quote     string `json:"quote,omitempty"`
	Source    string `json:"source,omitempty"`
	URL       string `json:"url,omitempty"`
	SourceURL string `json:"sourceUrl"`
}

type Fatwa struct {
	Title       string `json:"title,omitempty"`
	Ruling      string `json:"ruling,omitempty"`
	Explanation string `json:"explanation,omitempty"`
	Source      string `json:"source,omitempty"`
	URL         string `json:"url,omitempty"`
	SourceURL   string `json:"sourceUrl"`
}

// Fragments holds evidence of all four kinds, from one page or accumulated.
type Fragments struct {
	Hadith            []Hadith           `json:"hadith"`
	QuranVerses       []QuranVerse       `json:"quranVerses"`
	ScholarlyOpinions []ScholarlyOpinion `json:"scholarlyOpinions"`
	Fatwas            []Fatwa            `json:"fatwas"`
}

func (f Fragments) Len() int {
	return len(f.Hadith) + len(f.QuranVerses) + len(f.ScholarlyOpinions) + len(f.Fatwas)
}

func (f Fragments) IsEmpty() bool {
	return f.Len() == 0
}

// Counts returns the number of fragments per kind.
func (f Fragments) Counts() map[Kind]int {
	return map[Kind]int{
		KindHadith:  len(f.Hadith),
		KindQuran:   len(f.QuranVerses),
		KindOpinion: len(f.ScholarlyOpinions),
		KindFatwa:   len(f.Fatwas),
	}
}
