package sites

// generic is used for domains without a record of their own. It has no content-page
// patterns, so pages on unconfigured domains are never flagged as content pages.
var generic = &Config{
	Domain: "*",
	Name:   "Generic",
	Extraction: ExtractionRule{
		Title: []string{"h1", "title", `meta[property="og:title"]`},
		MainContent: []string{
			"article",
			"main",
			`[role="main"]`,
			".entry-content",
			".post-content",
			".article-content",
			"#content",
			".content",
		},
		Metadata: map[string]MetadataField{
			"description": {Selector: `meta[name="description"]`, Description: "Page description", Type: "attr:content"},
			"author":      {Selector: `meta[name="author"]`, Description: "Page author", Type: "attr:content"},
		},
	},
	Navigation: NavigationRule{
		ExcludePatterns: []string{"page=", "/login", "/signin", "/register", "/search", "?q=", "#"},
	},
}

// Generic returns the fallback rule set.
func Generic() *Config {
	return generic
}

// Resolve returns the record for rawURL and true, or the generic rule set and false.
func (s *Store) Resolve(rawURL string) (*Config, bool) {
	if cfg, ok := s.ForURL(rawURL); ok {
		return cfg, true
	}
	return generic, false
}
