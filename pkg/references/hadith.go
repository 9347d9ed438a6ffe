package references

import (
	"regexp"
	"sort"
	"strings"
)

// Collection is a hadith collection hosted on sunnah.com.
type Collection struct {
	Slug    string
	Name    string
	Aliases []string
}

var collections = []Collection{
	{"bukhari", "Sahih al-Bukhari", []string{"sahih al-bukhari", "sahih bukhari", "al-bukhari", "bukhari"}},
	{"muslim", "Sahih Muslim", []string{"sahih muslim", "muslim"}},
	{"abudawud", "Sunan Abi Dawud", []string{"sunan abi dawud", "sunan abu dawud", "sunan abu dawood", "abu dawud", "abu dawood", "abi dawud", "abudawud"}},
	{"tirmidhi", "Jami` at-Tirmidhi", []string{"jami at-tirmidhi", "jami al-tirmidhi", "sunan at-tirmidhi", "at-tirmidhi", "al-tirmidhi", "tirmidhi", "tirmizi"}},
	{"nasai", "Sunan an-Nasa'i", []string{"sunan an-nasa'i", "sunan al-nasa'i", "an-nasa'i", "al-nasa'i", "nasa'i"}},
	{"ibnmajah", "Sunan Ibn Majah", []string{"sunan ibn majah", "ibn majah", "ibn maja"}},
	{"malik", "Muwatta Malik", []string{"muwatta imam malik", "muwatta malik", "al-muwatta", "muwatta"}},
	{"ahmad", "Musnad Ahmad", []string{"musnad imam ahmad", "musnad ahmad", "musnad"}},
	{"darimi", "Sunan ad-Darimi", []string{"sunan ad-darimi", "sunan al-darimi", "ad-darimi", "al-darimi", "darimi"}},
	{"riyadussalihin", "Riyad as-Salihin", []string{"riyad as-salihin", "riyad al-salihin", "riyadh as-saliheen", "riyad us-saliheen", "riyadh us-saliheen", "riyadussalihin"}},
	{"adab", "Al-Adab Al-Mufrad", []string{"al-adab al-mufrad", "adab al-mufrad"}},
	{"bulugh", "Bulugh al-Maram", []string{"bulugh al-maram", "bulugh al maram"}},
	{"nawawi40", "40 Hadith Nawawi", []string{"40 hadith nawawi", "forty hadith nawawi", "nawawi 40", "nawawi40"}},
	{"qudsi40", "40 Hadith Qudsi", []string{"40 hadith qudsi", "forty hadith qudsi", "qudsi40"}},
	{"shamail", "Ash-Shama'il Al-Muhammadiyah", []string{"ash-shama'il al-muhammadiyah", "shama'il muhammadiyah", "shama'il"}},
	{"mishkat", "Mishkat al-Masabih", []string{"mishkat al-masabih", "mishkat"}},
}

var (
	collectionIndex = buildCollectionIndex()
	hadithRe        = buildHadithRe()
)

// collectionKey folds a collection name to lowercase letters and digits.
func collectionKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func buildCollectionIndex() map[string]*Collection {
	idx := make(map[string]*Collection)
	for i := range collections {
		c := &collections[i]
		idx[collectionKey(c.Slug)] = c
		idx[collectionKey(c.Name)] = c
		for _, a := range c.Aliases {
			idx[collectionKey(a)] = c
		}
	}
	return idx
}

// aliasPattern matches an alias with optional apostrophes and flexible word separators.
func aliasPattern(alias string) string {
	words := strings.FieldsFunc(strings.ToLower(alias), func(r rune) bool {
		return r == ' ' || r == '-'
	})
	parts := make([]string, len(words))
	for i, w := range words {
		var b strings.Builder
		for _, r := range w {
			if r == '\'' || r == '`' {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("['’`]?")
			}
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, `[\s\-]*`)
}

// ambiguousAliases are ordinary words in English prose. They only count as a
// collection when qualified, as in "Sahih Muslim 5", "Imam Muslim 5" or "Muslim, hadith 5".
var ambiguousAliases = map[string]bool{
	"muslim":  true,
	"musnad":  true,
	"muwatta": true,
}

// qualifierRe matches a "Sahih" or "Imam" directly before an alias.
var qualifierRe = regexp.MustCompile(`(?i)\b(?:sahih|imam)\s+$`)

// Groups: 1 alias, 2 number marker, 3 number in parentheses, 4 bare number.
func buildHadithRe() *regexp.Regexp {
	var aliases []string
	for _, c := range collections {
		aliases = append(aliases, c.Aliases...)
	}
	// longest alias first so "sahih al-bukhari" wins over "bukhari"
	sort.SliceStable(aliases, func(i, j int) bool { return len(aliases[i]) > len(aliases[j]) })
	pats := make([]string, len(aliases))
	for i, a := range aliases {
		pats[i] = aliasPattern(a)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(pats, "|") +
		`)\s*,?\s*((?:hadith|no\.?|number|num\.?|#)\s*:?\s*)?(?:\(\s*(\d{1,5})\s*\)|(\d{1,5})\b)`)
}

// hadithMention reports the collection slug and number of a hadithRe match,
// rejecting ambiguous aliases that carry no qualifier.
func hadithMention(text string, m []int) (slug, number string, ok bool) {
	alias := group(text, m, 1)
	slug, ok = CanonicalCollection(alias)
	if !ok {
		return "", "", false
	}
	if ambiguousAliases[collectionKey(alias)] && group(text, m, 2) == "" && !qualifierRe.MatchString(text[:m[0]]) {
		return "", "", false
	}
	number = group(text, m, 3)
	if number == "" {
		number = group(text, m, 4)
	}
	return slug, number, true
}

// CanonicalCollection maps a collection name or alias to its sunnah.com slug.
func CanonicalCollection(name string) (string, bool) {
	c, ok := collectionIndex[collectionKey(name)]
	if !ok {
		return "", false
	}
	return c.Slug, true
}

// CollectionName returns the display name for a slug or alias.
func CollectionName(name string) string {
	if c, ok := collectionIndex[collectionKey(name)]; ok {
		return c.Name
	}
	return name
}

// HadithURL builds the canonical sunnah.com link for a collection slug and number.
func HadithURL(slug, number string) string {
	return "https://sunnah.com/" + slug + ":" + number
}
