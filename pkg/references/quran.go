package references

import (
	"fmt"
	"strings"
	"unicode"
)

// Surah is one chapter of the Quran.
type Surah struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Ayahs  int    `json:"ayahs"`
}

var surahs = [...]struct {
	name  string
	ayahs int
}{
	{"Al-Fatihah", 7}, {"Al-Baqarah", 286}, {"Ali 'Imran", 200}, {"An-Nisa", 176}, {"Al-Ma'idah", 120},
	{"Al-An'am", 165}, {"Al-A'raf", 206}, {"Al-Anfal", 75}, {"At-Tawbah", 129}, {"Yunus", 109},
	{"Hud", 123}, {"Yusuf", 111}, {"Ar-Ra'd", 43}, {"Ibrahim", 52}, {"Al-Hijr", 99},
	{"An-Nahl", 128}, {"Al-Isra", 111}, {"Al-Kahf", 110}, {"Maryam", 98}, {"Taha", 135},
	{"Al-Anbya", 112}, {"Al-Hajj", 78}, {"Al-Mu'minun", 118}, {"An-Nur", 64}, {"Al-Furqan", 77},
	{"Ash-Shu'ara", 227}, {"An-Naml", 93}, {"Al-Qasas", 88}, {"Al-'Ankabut", 69}, {"Ar-Rum", 60},
	{"Luqman", 34}, {"As-Sajdah", 30}, {"Al-Ahzab", 73}, {"Saba", 54}, {"Fatir", 45},
	{"Ya-Sin", 83}, {"As-Saffat", 182}, {"Sad", 88}, {"Az-Zumar", 75}, {"Ghafir", 85},
	{"Fussilat", 54}, {"Ash-Shuraa", 53}, {"Az-Zukhruf", 89}, {"Ad-Dukhan", 59}, {"Al-Jathiyah", 37},
	{"Al-Ahqaf", 35}, {"Muhammad", 38}, {"Al-Fath", 29}, {"Al-Hujurat", 18}, {"Qaf", 45},
	{"Adh-Dhariyat", 60}, {"At-Tur", 49}, {"An-Najm", 62}, {"Al-Qamar", 55}, {"Ar-Rahman", 78},
	{"Al-Waqi'ah", 96}, {"Al-Hadid", 29}, {"Al-Mujadila", 22}, {"Al-Hashr", 24}, {"Al-Mumtahanah", 13},
	{"As-Saf", 14}, {"Al-Jumu'ah", 11}, {"Al-Munafiqun", 11}, {"At-Taghabun", 18}, {"At-Talaq", 12},
	{"At-Tahrim", 12}, {"Al-Mulk", 30}, {"Al-Qalam", 52}, {"Al-Haqqah", 52}, {"Al-Ma'arij", 44},
	{"Nuh", 28}, {"Al-Jinn", 28}, {"Al-Muzzammil", 20}, {"Al-Muddaththir", 56}, {"Al-Qiyamah", 40},
	{"Al-Insan", 31}, {"Al-Mursalat", 50}, {"An-Naba", 40}, {"An-Nazi'at", 46}, {"'Abasa", 42},
	{"At-Takwir", 29}, {"Al-Infitar", 19}, {"Al-Mutaffifin", 36}, {"Al-Inshiqaq", 25}, {"Al-Buruj", 22},
	{"At-Tariq", 17}, {"Al-A'la", 19}, {"Al-Ghashiyah", 26}, {"Al-Fajr", 30}, {"Al-Balad", 20},
	{"Ash-Shams", 15}, {"Al-Layl", 21}, {"Ad-Duhaa", 11}, {"Ash-Sharh", 8}, {"At-Tin", 8},
	{"Al-'Alaq", 19}, {"Al-Qadr", 5}, {"Al-Bayyinah", 8}, {"Az-Zalzalah", 8}, {"Al-'Adiyat", 11},
	{"Al-Qari'ah", 11}, {"At-Takathur", 8}, {"Al-'Asr", 3}, {"Al-Humazah", 9}, {"Al-Fil", 5},
	{"Quraysh", 4}, {"Al-Ma'un", 7}, {"Al-Kawthar", 3}, {"Al-Kafirun", 6}, {"An-Nasr", 3},
	{"Al-Masad", 5}, {"Al-Ikhlas", 4}, {"Al-Falaq", 5}, {"An-Nas", 6},
}

// Spellings and English names not reachable by normalizing the names above.
var surahAliases = map[string]int{
	"fateha": 1, "opening": 1, "cow": 2, "imran": 3, "al imran": 3, "family of imran": 3,
	"nisaa": 4, "women": 4, "maaida": 5, "table spread": 5, "anaam": 6, "cattle": 6,
	"araf": 7, "heights": 7, "tauba": 9, "tawbah": 9, "repentance": 9, "baraah": 9,
	"jonah": 10, "joseph": 12, "raad": 13, "thunder": 13, "abraham": 14, "bee": 16,
	"israa": 17, "bani israil": 17, "night journey": 17, "cave": 18, "mary": 19, "ta ha": 20,
	"anbiya": 21, "anbiyaa": 21, "prophets": 21, "muminun": 23, "muminoon": 23, "noor": 24,
	"light": 24, "criterion": 25, "shuara": 26, "poets": 26, "ant": 27, "ankabut": 29,
	"spider": 29, "room": 30, "romans": 30, "sajda": 32, "confederates": 33, "sheba": 34,
	"yaseen": 36, "yasin": 36, "saad": 38, "mumin": 40, "fussilat": 41, "shura": 42,
	"smoke": 44, "victory": 48, "hujraat": 49, "dhariyat": 51, "zariyat": 51, "rahmaan": 55,
	"waqiah": 56, "iron": 57, "mujadilah": 58, "mujadalah": 58, "saff": 61, "jumuah": 62,
	"jumah": 62, "munafiqoon": 63, "sovereignty": 67, "haaqqa": 69, "maarij": 70, "noah": 71,
	"muzzammil": 73, "muddaththir": 74, "muddathir": 74, "dahr": 76, "naba": 78, "naziat": 79,
	"abasa": 80, "takweer": 81, "mutaffifeen": 83, "buruj": 85, "alaa": 87, "ala": 87,
	"ghashiya": 88, "dawn": 89, "lail": 92, "night": 92, "duha": 93, "inshirah": 94,
	"sharh": 94, "teen": 95, "fig": 95, "alaq": 96, "qadr": 97, "bayyina": 98,
	"zilzal": 99, "adiyat": 100, "qaria": 101, "takathur": 102, "asr": 103, "humaza": 104,
	"elephant": 105, "quraish": 106, "maun": 107, "kauthar": 108, "kawthar": 108,
	"kafiroon": 109, "kafirun": 109, "nasr": 110, "lahab": 111, "masad": 111,
	"ikhlas": 112, "ikhlaas": 112, "sincerity": 112, "falaq": 113, "daybreak": 113,
	"naas": 114, "mankind": 114,
}

var articles = map[string]bool{
	"al": true, "an": true, "ar": true, "as": true, "at": true, "az": true,
	"ad": true, "adh": true, "ash": true, "ath": true, "the": true, "el": true,
}

var surahIndex = buildSurahIndex()

func buildSurahIndex() map[string]int {
	idx := make(map[string]int, len(surahs)+len(surahAliases))
	for i, s := range surahs {
		idx[surahKey(s.name)] = i + 1
	}
	for alias, n := range surahAliases {
		if _, taken := idx[surahKey(alias)]; !taken {
			idx[surahKey(alias)] = n
		}
	}
	return idx
}

// surahKey folds a transliterated surah name: article and punctuation dropped,
// final "ah" and doubled final vowels shortened.
func surahKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	words := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
	if len(words) > 1 && articles[words[0]] {
		words = words[1:]
	}
	var b strings.Builder
	for _, w := range words {
		for _, r := range w {
			if r >= 'a' && r <= 'z' {
				b.WriteRune(r)
			}
		}
	}
	key := b.String()
	switch {
	case strings.HasSuffix(key, "ah") && len(key) > 3:
		key = strings.TrimSuffix(key, "h")
	case strings.HasSuffix(key, "aa") && len(key) > 3:
		key = strings.TrimSuffix(key, "a")
	}
	return key
}

// LookupSurah resolves a surah name or common alias ("Al-Baqarah", "baqara", "The Cow").
func LookupSurah(name string) (Surah, bool) {
	n, ok := surahIndex[surahKey(name)]
	if !ok {
		return Surah{}, false
	}
	return SurahByNumber(n)
}

func SurahByNumber(n int) (Surah, bool) {
	if n < 1 || n > len(surahs) {
		return Surah{}, false
	}
	s := surahs[n-1]
	return Surah{Number: n, Name: s.name, Ayahs: s.ayahs}, true
}

// ValidVerse reports whether surah:ayahStart(-ayahEnd) exists. ayahEnd 0 means a single verse.
func ValidVerse(surah, ayahStart, ayahEnd int) bool {
	s, ok := SurahByNumber(surah)
	if !ok || ayahStart < 1 || ayahStart > s.Ayahs {
		return false
	}
	return ayahEnd == 0 || (ayahEnd >= ayahStart && ayahEnd <= s.Ayahs)
}

// QuranURL builds the canonical quran.com link. ayahStart 0 links the whole surah;
// ayahEnd 0 (or equal to ayahStart) links a single verse.
func QuranURL(surah, ayahStart, ayahEnd int) string {
	switch {
	case ayahStart <= 0:
		return fmt.Sprintf("https://quran.com/%d", surah)
	case ayahEnd > ayahStart:
		return fmt.Sprintf("https://quran.com/%d/%d-%d", surah, ayahStart, ayahEnd)
	default:
		return fmt.Sprintf("https://quran.com/%d/%d", surah, ayahStart)
	}
}
