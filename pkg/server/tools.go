package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikeboe/evidence-helper/pkg/crawler"
	"github.com/mikeboe/evidence-helper/pkg/extract"
	"github.com/mikeboe/evidence-helper/pkg/references"
	"github.com/mikeboe/evidence-helper/pkg/sites"
)

var (
	ErrInvalidURL  = errors.New("url must be absolute http(s)")
	ErrEmptySearch = errors.New("query must not be empty")
)

// Toolset exposes the building blocks of a research session as standalone
// operations. It backs both the REST routes and the MCP tools.
type Toolset struct {
	Sites     *sites.Store
	Crawler   *crawler.Crawler
	Extractor *extract.Engine
}

func NewToolset(store *sites.Store, c *crawler.Crawler, x *extract.Engine) *Toolset {
	return &Toolset{Sites: store, Crawler: c, Extractor: x}
}

type ResolveReferencesArgs struct {
	Text string `json:"text" jsonschema:"Markdown text with numbered citations, Quran or hadith mentions and bare URLs"`
}

func (t *Toolset) ResolveReferences(_ context.Context, args ResolveReferencesArgs) (references.Result, error) {
	return references.ExtractReferences(args.Text), nil
}

type ExtractPageArgs struct {
	URL string `json:"url" jsonschema:"Absolute http(s) URL of the page to extract"`
}

// ExtractPage fetches one page and runs it through the extraction engine.
func (t *Toolset) ExtractPage(ctx context.Context, args ExtractPageArgs) (extract.Content, error) {
	u := strings.TrimSpace(args.URL)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return extract.Content{}, fmt.Errorf("%w: %q", ErrInvalidURL, args.URL)
	}
	p, err := t.Crawler.Fetch(ctx, u)
	if err != nil {
		return extract.Content{}, err
	}
	return t.Extractor.Extract(p.HTML, p.URL), nil
}

type SiteSearchArgs struct {
	Domain string `json:"domain" jsonschema:"Configured domain to search, for example sunnah.com"`
	Query  string `json:"query" jsonschema:"Search terms"`
}

type SiteSearchResp struct {
	Domain    string   `json:"domain"`
	SearchURL string   `json:"searchUrl"`
	Results   []string `json:"results"`
}

// SiteSearch runs a query against a configured site's own search page.
func (t *Toolset) SiteSearch(ctx context.Context, args SiteSearchArgs) (SiteSearchResp, error) {
	cfg, ok := t.Sites.Get(args.Domain)
	if !ok {
		return SiteSearchResp{}, fmt.Errorf("no site config for domain %q", args.Domain)
	}
	if strings.TrimSpace(args.Query) == "" {
		return SiteSearchResp{}, ErrEmptySearch
	}
	searchURL := cfg.SearchURL(args.Query)
	if searchURL == "" {
		return SiteSearchResp{}, fmt.Errorf("site %s has no search page", cfg.Domain)
	}
	p, err := t.Crawler.Fetch(ctx, searchURL)
	if err != nil {
		return SiteSearchResp{}, err
	}
	results := extract.SearchResults(p.HTML, searchURL, cfg)
	if results == nil {
		results = []string{}
	}
	return SiteSearchResp{Domain: cfg.Domain, SearchURL: searchURL, Results: results}, nil
}

type SiteSummary struct {
	Domain        string               `json:"domain"`
	Name          string               `json:"name"`
	Languages     []string             `json:"languages,omitempty"`
	EvidenceTypes []sites.EvidenceType `json:"evidenceTypes,omitempty"`
	Searchable    bool                 `json:"searchable"`
}

type ListSitesArgs struct{}

type ListSitesResp struct {
	Sites []SiteSummary `json:"sites"`
}

func (t *Toolset) ListSites(context.Context, ListSitesArgs) (ListSitesResp, error) {
	resp := ListSitesResp{Sites: []SiteSummary{}}
	for _, cfg := range t.Sites.All() {
		resp.Sites = append(resp.Sites, SiteSummary{
			Domain:        cfg.Domain,
			Name:          cfg.Name,
			Languages:     cfg.Languages,
			EvidenceTypes: cfg.EvidenceTypes,
			Searchable:    cfg.Search.URLTemplate != "",
		})
	}
	return resp, nil
}
