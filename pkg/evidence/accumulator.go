package evidence

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/mikeboe/evidence-helper/pkg/references"
)

// Accumulator merges fragments from many pages into deduplicated buckets.
// The first fragment stored under a key wins; later ones with the same key are dropped.
type Accumulator struct {
	mu   sync.Mutex
	seen map[string]bool
	ev   Fragments
}

func NewAccumulator() *Accumulator {
	return &Accumulator{seen: make(map[string]bool)}
}

// Add stores the fragments whose keys are new and returns those that were stored.
// Fragments without a SourceURL are attributed to sourceURL.
func (a *Accumulator) Add(f Fragments, sourceURL string) Fragments {
	a.mu.Lock()
	defer a.mu.Unlock()

	var added Fragments
	for _, h := range f.Hadith {
		if h.SourceURL == "" {
			h.SourceURL = sourceURL
		}
		if a.claim("h|" + HadithKey(h)) {
			a.ev.Hadith = append(a.ev.Hadith, h)
			added.Hadith = append(added.Hadith, h)
		}
	}
	for _, v := range f.QuranVerses {
		if v.SourceURL == "" {
			v.SourceURL = sourceURL
		}
		if a.claim("q|" + VerseKey(v)) {
			a.ev.QuranVerses = append(a.ev.QuranVerses, v)
			added.QuranVerses = append(added.QuranVerses, v)
		}
	}
	for _, o := range f.ScholarlyOpinions {
		if o.SourceURL == "" {
			o.SourceURL = sourceURL
		}
		if a.claim("o|" + OpinionKey(o)) {
			a.ev.ScholarlyOpinions = append(a.ev.ScholarlyOpinions, o)
			added.ScholarlyOpinions = append(added.ScholarlyOpinions, o)
		}
	}
	for _, w := range f.Fatwas {
		if w.SourceURL == "" {
			w.SourceURL = sourceURL
		}
		if a.claim("f|" + FatwaKey(w)) {
			a.ev.Fatwas = append(a.ev.Fatwas, w)
			added.Fatwas = append(added.Fatwas, w)
		}
	}
	return added
}

func (a *Accumulator) claim(key string) bool {
	if a.seen[key] {
		return false
	}
	a.seen[key] = true
	return true
}

// Evidence returns a copy of the accumulated buckets.
func (a *Accumulator) Evidence() Fragments {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Fragments{
		Hadith:            append([]Hadith(nil), a.ev.Hadith...),
		QuranVerses:       append([]QuranVerse(nil), a.ev.QuranVerses...),
		ScholarlyOpinions: append([]ScholarlyOpinion(nil), a.ev.ScholarlyOpinions...),
		Fatwas:            append([]Fatwa(nil), a.ev.Fatwas...),
	}
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ev.Len()
}

// HadithKey is collection|number, or collection|text-hash when the number is unknown.
// Collection aliases fold to their sunnah.com slug.
func HadithKey(h Hadith) string {
	collection := fold(h.Collection)
	if slug, ok := references.CanonicalCollection(h.Collection); ok {
		collection = slug
	}
	if n := strings.TrimSpace(h.Number); n != "" {
		return collection + "|" + strings.ToLower(n)
	}
	return collection + "|#" + textHash(h.Text)
}

// VerseKey is surah:ayahStart-ayahEnd, with ayahEnd defaulting to ayahStart.
func VerseKey(v QuranVerse) string {
	end := v.AyahEnd
	if end == 0 {
		end = v.AyahStart
	}
	return fmt.Sprintf("%d:%d-%d", v.Surah, v.AyahStart, end)
}

// OpinionKey is scholar|quote-hash, using the source when the scholar is unknown.
func OpinionKey(o ScholarlyOpinion) string {
	who := fold(o.Scholar)
	if who == "" {
		who = fold(o.Source)
	}
	return who + "|" + textHash(o.Quote)
}

// FatwaKey is title|source. Untitled rulings use a hash of the ruling as the title.
func FatwaKey(f Fatwa) string {
	title := fold(f.Title)
	if title == "" {
		title = "#" + textHash(f.Ruling)
	}
	return title + "|" + fold(f.Source)
}

// fold lowercases s and collapses its whitespace.
func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func textHash(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(fold(s)), 16)
}
