package sites

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStoreLoadsEmbeddedConfigs(t *testing.T) {
	store, err := Default()
	require.NoError(t, err)
	require.NoError(t, store.Validate())

	assert.Contains(t, store.Domains(), "sunnah.com")
	assert.Contains(t, store.Domains(), "quran.com")
	assert.Len(t, store.All(), len(store.Domains()))
}

func TestStoreGet(t *testing.T) {
	store, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name   string
		domain string
		want   string
		ok     bool
	}{
		{"exact", "sunnah.com", "sunnah.com", true},
		{"www prefix", "www.sunnah.com", "sunnah.com", true},
		{"upper case with port", "Quran.com:443", "quran.com", true},
		{"subdomain falls back to parent", "en.islamqa.info", "islamqa.info", true},
		{"unknown", "example.com", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, ok := store.Get(tt.domain)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, cfg.Domain)
			}
		})
	}
}

func TestStoreCachesParsedRecords(t *testing.T) {
	store, err := Default()
	require.NoError(t, err)

	a, ok := store.Get("sunnah.com")
	require.True(t, ok)
	b, ok := store.Get("www.sunnah.com")
	require.True(t, ok)
	assert.Same(t, a, b)
}

func TestIsContentPage(t *testing.T) {
	store, err := Default()
	require.NoError(t, err)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://sunnah.com/bukhari:1", true},
		{"https://sunnah.com/bukhari", false},
		{"https://quran.com/2/255", true},
		{"https://quran.com/2:255", true},
		{"https://islamqa.info/en/answers/5000/music", true},
		{"https://islamqa.info/en/categories/topics/1", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg, ok := store.ForURL(tt.url)
			require.True(t, ok)
			assert.Equal(t, tt.want, cfg.IsContentPage(tt.url))
		})
	}
}

func TestOverrideLayerAndBrokenRecords(t *testing.T) {
	base := fstest.MapFS{
		"example.org.yaml": {Data: []byte("domain: example.org\nname: Base\nevidenceTypes: [fatwa]\n")},
		"broken.org.yaml":  {Data: []byte("domain: broken.org\ncontentPage:\n  urlPatterns: ['(']\n")},
		"notes.txt":        {Data: []byte("ignored")},
	}
	override := fstest.MapFS{
		"example.org.yaml": {Data: []byte("domain: example.org\nname: Override\nevidenceTypes: [hadith, fiqh]\n")},
	}

	store, err := NewStore(base, override)
	require.NoError(t, err)
	assert.Equal(t, []string{"broken.org", "example.org"}, store.Domains())

	cfg, ok := store.Get("example.org")
	require.True(t, ok)
	assert.Equal(t, "Override", cfg.Name)
	assert.Equal(t, EvidenceHadith, cfg.PrimaryEvidenceType())

	_, ok = store.Get("broken.org")
	assert.False(t, ok)
	assert.Error(t, store.Validate())
	assert.Len(t, store.All(), 1)
}

func TestResolveFallsBackToGeneric(t *testing.T) {
	store, err := NewStore(fstest.MapFS{})
	require.NoError(t, err)

	cfg, ok := store.Resolve("https://blog.example.com/post/1")
	assert.False(t, ok)
	assert.Same(t, Generic(), cfg)
	assert.False(t, cfg.IsContentPage("https://blog.example.com/post/1"))
	assert.False(t, store.IsTrusted("https://blog.example.com/post/1"))
}

func TestSearchURL(t *testing.T) {
	store, err := Default()
	require.NoError(t, err)

	cfg, ok := store.Get("sunnah.com")
	require.True(t, ok)
	assert.Equal(t, "https://sunnah.com/search?q=is+music+haram", cfg.SearchURL("is music haram"))

	var none *Config
	assert.Equal(t, "", none.SearchURL("x"))
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "sunnah.com", DomainOf("https://www.sunnah.com/muslim:1"))
	assert.Equal(t, "127.0.0.1", DomainOf("http://127.0.0.1:8080/a"))
	assert.Equal(t, "", DomainOf("::not a url"))
}
