package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/evidence-helper/pkg/sites"
)

const sunnahPage = `<!doctype html>
<html><head>
<title>Sahih al-Bukhari 1 - Revelation - Sunnah.com</title>
<meta name="description" content="The reward of deeds depends upon intentions">
</head><body>
<nav>Home | Collections | About</nav>
<div class="hadith_reference_sticky">Sahih al-Bukhari 1</div>
<div class="actualHadithContainer">
  <div class="hadith_narrated">Narrated 'Umar bin Al-Khattab:</div>
  <div class="text_details">I heard Allah's Messenger saying, "The reward of deeds depends upon the
    intentions and every person will get the reward according to what he has intended."</div>
  <div class="arabic_hadith_full">إِنَّمَا الأَعْمَالُ بِالنِّيَّاتِ</div>
  <div class="english_grade">Grade: Sahih</div>
</div>
<table class="hadith_reference">
  <tr><td>Reference : Sahih al-Bukhari 1</td></tr>
  <tr><td>In-book reference : Book 1, Hadith 1</td></tr>
</table>
<div class="hadith_reference">
  <a href="/bukhari:2">Next</a>
  <a href="https://sunnah.com/bukhari:1">Self</a>
  <a href="/bukhari">Book</a>
  <a href="/bukhari:3#comments">Anchor</a>
  <a href="https://example.com/bukhari:4">Elsewhere</a>
  <a href="/bukhari:2">Next again</a>
</div>
<script>var tracking = "should not appear";</script>
</body></html>`

func sunnahConfig(t *testing.T) *sites.Config {
	t.Helper()
	store, err := sites.Default()
	require.NoError(t, err)
	cfg, ok := store.Get("sunnah.com")
	require.True(t, ok)
	return cfg
}

func TestExtractConfiguredSite(t *testing.T) {
	got := Extract(sunnahPage, "https://sunnah.com/bukhari:1", sunnahConfig(t))

	assert.Equal(t, "sunnah.com", got.Domain)
	assert.True(t, got.IsContentPage)
	assert.Equal(t, sites.EvidenceHadith, got.EvidenceType)
	assert.Equal(t, "Sahih al-Bukhari 1", got.Title)
	assert.Contains(t, got.Content, "every person will get the reward")
	assert.NotContains(t, got.Content, "should not appear")
	assert.NotContains(t, got.Content, "Collections")

	assert.Equal(t, "Grade: Sahih", got.Metadata["grade"])
	assert.Equal(t, "Narrated 'Umar bin Al-Khattab:", got.Metadata["narrator"])
	assert.Equal(t, []string{"Reference : Sahih al-Bukhari 1", "In-book reference : Book 1, Hadith 1"}, got.Metadata["reference"])
	assert.Equal(t, "The reward of deeds depends upon intentions", got.Metadata["description"])

	assert.Equal(t, []string{"https://sunnah.com/bukhari:2"}, got.RelatedLinks)
}

func TestExtractGenericFallbacks(t *testing.T) {
	long := strings.Repeat("Scholars differ on this question. ", 5)

	t.Run("short containers are skipped", func(t *testing.T) {
		page := `<html><head><title>A generic page</title></head><body>
			<h1>Ok</h1>
			<article>too short</article>
			<div class="content">` + long + `</div></body></html>`
		got := Extract(page, "https://blog.example.com/post/1", nil)

		assert.Equal(t, "A generic page", got.Title)
		assert.Equal(t, strings.TrimSpace(long), got.Content)
		assert.False(t, got.IsContentPage)
		assert.Empty(t, got.RelatedLinks)
	})

	t.Run("body text without chrome", func(t *testing.T) {
		page := `<html><body><header>Site header</header><nav>Menu</nav><p>Only a paragraph.</p><footer>Footer</footer></body></html>`
		got := Extract(page, "https://example.com/x", nil)

		assert.Equal(t, "Only a paragraph.", got.Content)
	})

	t.Run("body text is capped", func(t *testing.T) {
		page := `<html><body><p>` + strings.Repeat("a", MaxFallbackChars+500) + `</p></body></html>`
		got := Extract(page, "https://example.com/x", nil)

		assert.Len(t, []rune(got.Content), MaxFallbackChars)
	})

	t.Run("garbage markup", func(t *testing.T) {
		got := Extract("<<<>>> not html at all", "https://example.com/x", nil)

		assert.Equal(t, "https://example.com/x", got.URL)
		assert.Empty(t, got.Title)
	})
}

func TestMetadataTypes(t *testing.T) {
	cfg := &sites.Config{
		Domain: "example.org",
		Extraction: sites.ExtractionRule{
			Metadata: map[string]sites.MetadataField{
				"answerId": {Selector: ".id", Type: "number"},
				"tags":     {Selector: ".tag", Type: "list"},
				"lang":     {Selector: "html", Type: "attr:lang"},
				"missing":  {Selector: ".nope", Type: "text"},
			},
		},
	}
	page := `<html lang="en"><body><span class="id">Answer #12345</span><a class="tag">Prayer</a><a class="tag"> Fasting </a></body></html>`

	got := Extract(page, "https://example.org/a", cfg)

	assert.Equal(t, 12345, got.Metadata["answerId"])
	assert.Equal(t, []string{"Prayer", "Fasting"}, got.Metadata["tags"])
	assert.Equal(t, "en", got.Metadata["lang"])
	assert.NotContains(t, got.Metadata, "missing")
}

func TestInferEvidenceType(t *testing.T) {
	store, err := sites.Default()
	require.NoError(t, err)
	quran, _ := store.Get("quran.com")
	islamqa, _ := store.Get("islamqa.info")

	tests := []struct {
		name string
		url  string
		cfg  *sites.Config
		want sites.EvidenceType
	}{
		{"single declared type", "https://sunnah.com/bukhari:1", sunnahConfig(t), sites.EvidenceHadith},
		{"tafsir path", "https://quran.com/2:255/tafsirs/en-tafisr-ibn-kathir", quran, sites.EvidenceTafsir},
		{"quran path", "https://quran.com/2/255", quran, sites.EvidenceQuran},
		{"answers path", "https://islamqa.info/en/answers/5000", islamqa, sites.EvidenceFatwa},
		{"unconfigured fiqh hint", "https://example.com/fiqh/zakat", nil, sites.EvidenceFiqh},
		{"unconfigured without hints", "https://example.com/blog", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferEvidenceType(tt.url, tt.cfg))
		})
	}
}

func TestSearchResults(t *testing.T) {
	page := `<html><body>
		<div class="boh">
			<div class="bc_search_link"><a href="/muslim:1">Muslim 1</a></div>
			<a href="/bukhari:5">Bukhari 5</a>
			<a href="/bukhari:5#top">Bukhari 5 again</a>
		</div>
		<a href="/tirmidhi:1">outside results</a>
	</body></html>`

	got := SearchResults(page, "https://sunnah.com/search?q=intention", sunnahConfig(t))

	assert.Equal(t, []string{"https://sunnah.com/muslim:1", "https://sunnah.com/bukhari:5"}, got)
	assert.Nil(t, SearchResults(page, "https://example.com/search", nil))
}

func TestEngineResolvesSiteRecord(t *testing.T) {
	store, err := sites.Default()
	require.NoError(t, err)
	engine := NewEngine(store)

	got := engine.Extract(sunnahPage, "https://www.sunnah.com/bukhari:1")
	assert.Equal(t, "Sahih al-Bukhari 1", got.Title)
	assert.True(t, got.IsContentPage)

	generic := engine.Extract(sunnahPage, "https://example.com/bukhari:1")
	assert.False(t, generic.IsContentPage)
	assert.Equal(t, "Sahih al-Bukhari 1 - Revelation - Sunnah.com", generic.Title)
	assert.Empty(t, generic.RelatedLinks)
	assert.Nil(t, engine.SearchResults(sunnahPage, "https://example.com/search?q=x"))

	storeless := NewEngine(nil).Extract(sunnahPage, "https://example.com/bukhari:1")
	assert.Equal(t, generic, storeless)
}
