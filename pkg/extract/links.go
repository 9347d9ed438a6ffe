package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mikeboe/evidence-helper/pkg/sites"
)

// relatedLinks collects same-domain content-page links reachable from the
// configured navigation selectors.
func relatedLinks(doc *goquery.Document, pageURL string, cfg *sites.Config) []string {
	if len(cfg.Navigation.RelatedLinks) == 0 {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	domain := sites.NormalizeDomain(base.Host)
	excludes := cfg.Navigation.ExcludePatterns
	if len(excludes) == 0 {
		excludes = sites.Generic().Navigation.ExcludePatterns
	}

	self := stripFragment(pageURL)
	seen := map[string]bool{self: true}
	var links []string

	add := func(href string) {
		if len(links) >= MaxRelatedLinks || excluded(href, excludes) {
			return
		}
		abs, ok := absolute(base, href)
		if !ok || seen[abs] || excluded(abs, excludes) {
			return
		}
		if sites.DomainOf(abs) != domain || !cfg.IsContentPage(abs) {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	}

	for _, selector := range cfg.Navigation.RelatedLinks {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if goquery.NodeName(s) == "a" {
				if href, ok := s.Attr("href"); ok {
					add(href)
				}
				return
			}
			s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
				href, _ := a.Attr("href")
				add(href)
			})
		})
	}
	return links
}

func excluded(link string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(link, p) {
			return true
		}
	}
	return false
}

// absolute resolves href against base and keeps only http(s) links, without fragment.
func absolute(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}

func stripFragment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}
