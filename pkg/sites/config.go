// Package sites holds the per-domain traversal records that drive structured
// extraction, and a process-wide store that loads them lazily.
package sites

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// EvidenceType is the kind of evidence a site (or page) primarily carries.
type EvidenceType string

const (
	EvidenceHadith  EvidenceType = "hadith"
	EvidenceQuran   EvidenceType = "quran"
	EvidenceTafsir  EvidenceType = "tafsir"
	EvidenceFatwa   EvidenceType = "fatwa"
	EvidenceFiqh    EvidenceType = "fiqh"
	EvidenceScholar EvidenceType = "scholarly"
)

// Config is the traversal record for one domain. It is read-only once loaded.
type Config struct {
	Domain        string         `yaml:"domain" json:"domain"`
	Name          string         `yaml:"name" json:"name"`
	Languages     []string       `yaml:"languages" json:"languages"`
	EvidenceTypes []EvidenceType `yaml:"evidenceTypes" json:"evidenceTypes"`
	Search        SearchRule     `yaml:"search" json:"search"`
	ContentPage   ContentRule    `yaml:"contentPage" json:"contentPage"`
	Extraction    ExtractionRule `yaml:"extraction" json:"extraction"`
	Navigation    NavigationRule `yaml:"navigation" json:"navigation"`

	contentPatterns []*regexp.Regexp
}

type SearchRule struct {
	URLTemplate        string `yaml:"urlTemplate" json:"urlTemplate"`
	ResultSelector     string `yaml:"resultSelector" json:"resultSelector"`
	ResultLinkSelector string `yaml:"resultLinkSelector" json:"resultLinkSelector"`
}

type ContentRule struct {
	URLPatterns []string `yaml:"urlPatterns" json:"urlPatterns"`
}

type ExtractionRule struct {
	Title       []string                 `yaml:"title" json:"title"`
	MainContent []string                 `yaml:"mainContent" json:"mainContent"`
	Metadata    map[string]MetadataField `yaml:"metadata" json:"metadata"`
}

// MetadataField describes one structured field scraped from a content page.
// Type is one of "text", "number", "list" or "attr:<name>".
type MetadataField struct {
	Selector    string `yaml:"selector" json:"selector"`
	Description string `yaml:"description" json:"description"`
	Type        string `yaml:"type" json:"type"`
}

type NavigationRule struct {
	RelatedLinks    []string `yaml:"relatedLinks" json:"relatedLinks"`
	ExcludePatterns []string `yaml:"excludePatterns" json:"excludePatterns"`
}

// compile validates the record and prepares its content-page patterns.
func (c *Config) compile() error {
	c.Domain = NormalizeDomain(c.Domain)
	if c.Domain == "" {
		return fmt.Errorf("site config: domain is required")
	}
	c.contentPatterns = make([]*regexp.Regexp, 0, len(c.ContentPage.URLPatterns))
	for _, p := range c.ContentPage.URLPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("site config %s: invalid content pattern %q: %w", c.Domain, p, err)
		}
		c.contentPatterns = append(c.contentPatterns, re)
	}
	for field, m := range c.Extraction.Metadata {
		if m.Selector == "" {
			return fmt.Errorf("site config %s: metadata field %q has no selector", c.Domain, field)
		}
	}
	return nil
}

// IsContentPage reports whether rawURL matches one of the domain's content-page patterns.
func (c *Config) IsContentPage(rawURL string) bool {
	if c == nil {
		return false
	}
	for _, re := range c.contentPatterns {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// SearchURL fills the search template for query. It returns "" if the site has no search page.
func (c *Config) SearchURL(query string) string {
	if c == nil || c.Search.URLTemplate == "" {
		return ""
	}
	return strings.ReplaceAll(c.Search.URLTemplate, "{query}", url.QueryEscape(query))
}

// PrimaryEvidenceType returns the first declared evidence type, or "".
func (c *Config) PrimaryEvidenceType() EvidenceType {
	if c == nil || len(c.EvidenceTypes) == 0 {
		return ""
	}
	return c.EvidenceTypes[0]
}

// NormalizeDomain lowercases a host and strips a port and a leading "www.".
func NormalizeDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}

// DomainOf returns the normalized domain of rawURL, or "" if it cannot be parsed.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return NormalizeDomain(u.Host)
}
