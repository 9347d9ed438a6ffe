// Package crawler fetches a bounded set of pages in small concurrent batches and
// hands each one to the extraction engine.
package crawler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mikeboe/evidence-helper/pkg/evidence"
	"github.com/mikeboe/evidence-helper/pkg/extract"
	"github.com/mikeboe/evidence-helper/pkg/metrics"
)

const (
	DefaultMaxPages     = 8
	DefaultBatchSize    = 3
	DefaultTimeout      = 5 * time.Second
	DefaultMaxBodyBytes = 2 << 20
	DefaultUserAgent    = "Mozilla/5.0 (compatible; EvidenceHelper/1.0)"
)

// Page is one successfully fetched page.
type Page struct {
	URL        string          `json:"url"`
	FinalURL   string          `json:"finalUrl"`
	StatusCode int             `json:"statusCode"`
	HTML       string          `json:"-"`
	Content    extract.Content `json:"content"`
	// Related is set for pages reached through a related link rather than the input list.
	Related bool `json:"related"`
	// Evidence is filled by a Visit hook, if any.
	Evidence evidence.Fragments `json:"evidence"`
}

type ProgressType string

const (
	ProgressFound ProgressType = "found"
	ProgressError ProgressType = "error"
)

// Progress reports the outcome of one URL.
type Progress struct {
	Type    ProgressType
	URL     string
	Title   string
	Related bool
	Page    *Page
	Err     error
}

// Crawler is safe for concurrent use once configured.
type Crawler struct {
	Client       *http.Client
	UserAgent    string
	MaxPages     int
	BatchSize    int
	Timeout      time.Duration
	MaxBodyBytes int64

	// Extractor, when set, extracts every fetched page.
	Extractor *extract.Engine
	// FollowRelated queues related links of content pages from the input list
	// until MaxPages URLs have been scheduled.
	FollowRelated bool
	// Visit runs in the worker after extraction, before the page is reported.
	Visit func(ctx context.Context, p *Page)

	Logger *slog.Logger
}

func New(extractor *extract.Engine) *Crawler {
	return &Crawler{
		Client:       &http.Client{},
		UserAgent:    DefaultUserAgent,
		MaxPages:     DefaultMaxPages,
		BatchSize:    DefaultBatchSize,
		Timeout:      DefaultTimeout,
		MaxBodyBytes: DefaultMaxBodyBytes,
		Extractor:    extractor,
		Logger:       slog.Default(),
	}
}

type result struct {
	url     string
	related bool
	page    *Page
	err     error
}

// Crawl fetches at most MaxPages of urls, BatchSize at a time, waiting for each batch
// before starting the next. A failing URL is reported through onProgress and left
// out of the result; it never stops the crawl. Pages are returned in completion order.
//
// onProgress is called from the calling goroutine only. Once ctx is cancelled no
// further fetches start, results of in-flight fetches are dropped and Crawl returns
// the pages completed so far.
func (c *Crawler) Crawl(ctx context.Context, urls []string, onProgress func(Progress)) []Page {
	queue := make([]string, 0, c.MaxPages)
	related := make(map[string]bool)
	scheduled := make(map[string]bool)
	for _, u := range urls {
		if len(queue) >= c.MaxPages {
			break
		}
		if u == "" || scheduled[u] {
			continue
		}
		scheduled[u] = true
		queue = append(queue, u)
	}

	batchSize := c.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	var pages []Page
	// queue grows while a batch is collected, so each batch starts where the last one ended
	for start := 0; start < len(queue); {
		if ctx.Err() != nil {
			c.logger().Info("Crawl cancelled", "completed", len(pages), "remaining", len(queue)-start)
			return pages
		}
		end := min(start+batchSize, len(queue))
		batch := queue[start:end]
		start = end

		results := make(chan result, len(batch))
		var g errgroup.Group
		for _, u := range batch {
			isRelated := related[u]
			g.Go(func() error {
				p, err := c.visit(ctx, u)
				results <- result{url: u, related: isRelated, page: p, err: err}
				// per-URL failures are reported, never propagated to siblings
				return nil
			})
		}
		go func() {
			_ = g.Wait()
			close(results)
		}()

	collect:
		for {
			select {
			case <-ctx.Done():
				c.logger().Info("Crawl cancelled mid-batch", "completed", len(pages))
				return pages
			case r, ok := <-results:
				if !ok {
					break collect
				}
				if r.err != nil {
					metrics.PagesFetched.WithLabelValues("error").Inc()
					c.logger().Warn("Failed to fetch page", "url", r.url, "error", r.err)
					report(onProgress, Progress{Type: ProgressError, URL: r.url, Related: r.related, Err: r.err})
					continue
				}
				metrics.PagesFetched.WithLabelValues("ok").Inc()
				r.page.Related = r.related
				pages = append(pages, *r.page)
				report(onProgress, Progress{Type: ProgressFound, URL: r.url, Title: r.page.Content.Title, Related: r.related, Page: r.page})

				if c.FollowRelated && !r.related && r.page.Content.IsContentPage {
					for _, link := range r.page.Content.RelatedLinks {
						if len(queue) >= c.MaxPages {
							break
						}
						if scheduled[link] {
							continue
						}
						scheduled[link] = true
						related[link] = true
						queue = append(queue, link)
					}
				}
			}
		}
	}
	return pages
}

// visit fetches, extracts and runs the Visit hook for one URL.
func (c *Crawler) visit(ctx context.Context, u string) (*Page, error) {
	p, err := c.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	if c.Extractor != nil {
		p.Content = c.Extractor.Extract(p.HTML, p.URL)
	} else {
		p.Content = extract.Content{URL: p.URL}
	}
	if c.Visit != nil {
		c.Visit(ctx, p)
	}
	return p, nil
}

func report(onProgress func(Progress), p Progress) {
	if onProgress != nil {
		onProgress(p)
	}
}

func (c *Crawler) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
