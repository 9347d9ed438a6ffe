// Package research runs one question through the understanding, searching,
// exploring and synthesizing stages and reports progress as a stream of events.
package research

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"

	"github.com/mikeboe/evidence-helper/pkg/crawler"
	"github.com/mikeboe/evidence-helper/pkg/evidence"
	"github.com/mikeboe/evidence-helper/pkg/metrics"
	"github.com/mikeboe/evidence-helper/pkg/references"
	"github.com/mikeboe/evidence-helper/pkg/search"
	"github.com/mikeboe/evidence-helper/pkg/sites"
)

// ErrEmptyQuery rejects a request before any stage runs.
var ErrEmptyQuery = errors.New("query must not be empty")

const (
	DefaultChunkSize  = 40
	DefaultChunkDelay = 15 * time.Millisecond
)

type Request struct {
	Query   string           `json:"query"`
	History []search.Message `json:"history,omitempty"`
	// SessionID, when set, is used instead of a generated one.
	SessionID string `json:"-"`
}

// Engine holds the collaborators shared by all sessions. It is safe for
// concurrent use; every Run gets its own session state.
type Engine struct {
	LLM      llms.Model
	Searcher search.Searcher
	// Crawler is used as a template; each session copies it and installs its own Visit hook.
	Crawler   *crawler.Crawler
	Evidence  *evidence.Extractor
	Sites     *sites.Store
	ChunkSize int
	// ChunkDelay paces response chunks. Zero streams them as fast as the consumer reads.
	ChunkDelay time.Duration

	Logger *slog.Logger
	// SessionLogger, when set, builds the logger used for one session.
	SessionLogger func(sessionID string) *slog.Logger
	NewID         func() string
}

func NewEngine(llm llms.Model, searcher search.Searcher, c *crawler.Crawler, x *evidence.Extractor, store *sites.Store) *Engine {
	return &Engine{
		LLM:        llm,
		Searcher:   searcher,
		Crawler:    c,
		Evidence:   x,
		Sites:      store,
		ChunkSize:  DefaultChunkSize,
		ChunkDelay: DefaultChunkDelay,
		Logger:     slog.Default(),
		NewID:      uuid.NewString,
	}
}

// Run starts a session. Events are produced while the caller ranges over the
// sequence; stopping the range or cancelling ctx ends the session and no
// further events are produced. A session ends with exactly one done or error
// event unless it was cancelled.
func (e *Engine) Run(ctx context.Context, req Request) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		id := req.SessionID
		if id == "" && e.NewID != nil {
			id = e.NewID()
		}
		if id == "" {
			id = uuid.NewString()
		}
		logger := e.logger()
		if e.SessionLogger != nil {
			logger = e.SessionLogger(id)
		}
		s := &session{
			engine: e,
			ctx:    ctx,
			yield:  yield,
			id:     id,
			req:    req,
			logger: logger.With("session", id),
			acc:    evidence.NewAccumulator(),
			seen:   make(map[string]bool),
		}
		s.run()
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// session is the state of one Run. It is only touched from the goroutine
// ranging over the event sequence.
type session struct {
	engine  *Engine
	ctx     context.Context
	yield   func(Event) bool
	id      string
	req     Request
	logger  *slog.Logger
	stopped bool

	acc     *evidence.Accumulator
	seen    map[string]bool
	sources []Source
}

func (s *session) run() {
	start := time.Now()
	outcome := s.pipeline()
	metrics.Sessions.WithLabelValues(outcome).Inc()
	s.logger.Info("Session finished", "outcome", outcome, "sources", len(s.sources), "evidence", s.acc.Len(), "duration", time.Since(start))
}

// pipeline runs the stages in order and returns the session outcome.
func (s *session) pipeline() string {
	query := strings.TrimSpace(s.req.Query)
	if query == "" {
		s.fail(ErrEmptyQuery)
		return "rejected"
	}
	s.req.Query = query
	s.logger.Info("Starting research session", "query", query, "history", len(s.req.History))

	if !s.emit(Event{Type: EventSessionInit, SessionID: s.id}) {
		return "cancelled"
	}

	understanding, err := s.understand()
	if err != nil {
		return s.abort("understanding", err)
	}

	result, candidates, err := s.search(understanding)
	if err != nil {
		return s.abort("search", err)
	}

	if len(candidates) > 0 {
		if err := s.explore(candidates); err != nil {
			return s.abort("exploring", err)
		}
	}

	if err := s.synthesize(result.Text); err != nil {
		return s.abort("synthesizing", err)
	}
	return "done"
}

// abort reports a stage failure, unless the session was cancelled.
func (s *session) abort(stage string, err error) string {
	if s.cancelled() {
		s.logger.Info("Session cancelled", "stage", stage)
		return "cancelled"
	}
	s.logger.Error("Research stage failed", "stage", stage, "error", err)
	s.fail(err)
	return "error"
}

var errStopped = errors.New("session stopped")

func (s *session) cancelled() bool {
	return s.stopped || s.ctx.Err() != nil
}

// emit delivers ev and reports whether the session may continue.
func (s *session) emit(ev Event) bool {
	if s.stopped {
		return false
	}
	if s.ctx.Err() != nil {
		s.stopped = true
		return false
	}
	ev.Time = time.Now().UTC()
	if !s.yield(ev) {
		s.stopped = true
		return false
	}
	return true
}

func (s *session) fail(err error) {
	s.emit(Event{Type: EventError, Error: err.Error()})
}

func (s *session) stepStart(step StepType) bool {
	return s.emit(Event{Type: EventStepStart, Step: step, StepTitle: stepTitles[step]})
}

func (s *session) stepContent(step StepType, format string, args ...any) bool {
	return s.emit(Event{Type: EventStepContent, Step: step, Content: fmt.Sprintf(format, args...)})
}

func (s *session) stepComplete(step StepType) bool {
	return s.emit(Event{Type: EventStepComplete, Step: step})
}

// addSource emits a source event the first time rawURL is seen.
func (s *session) addSource(rawURL, title string) bool {
	if rawURL == "" || s.seen[rawURL] {
		return !s.stopped
	}
	s.seen[rawURL] = true
	domain := sites.DomainOf(rawURL)
	if title == "" {
		title = domain
	}
	src := Source{
		ID:      len(s.sources) + 1,
		Title:   title,
		URL:     rawURL,
		Domain:  domain,
		Trusted: s.engine.Sites != nil && s.engine.Sites.IsTrusted(rawURL),
	}
	s.sources = append(s.sources, src)
	return s.emit(Event{Type: EventSource, Source: &src})
}

const understandingPrompt = `You help people research questions about Islamic law, belief and practice.
Restate the user's question in one sentence, name the topic it concerns and list which kinds of evidence would settle it (Quran verses, hadith, scholarly opinions, fatwas).
Be brief: no more than five sentences. Do not answer the question yet.`

// understand streams the model's restatement of the question.
func (s *session) understand() (string, error) {
	defer metrics.ObserveStage(string(StepUnderstanding), time.Now())
	if !s.stepStart(StepUnderstanding) {
		return "", errStopped
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, understandingPrompt),
	}
	for _, m := range s.req.History {
		role := llms.ChatMessageTypeHuman
		if m.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, m.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, s.req.Query))

	streamed := false
	resp, err := s.engine.LLM.GenerateContent(s.ctx, messages,
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			streamed = true
			if !s.emit(Event{Type: EventStepContent, Step: StepUnderstanding, Content: string(chunk)}) {
				return errStopped
			}
			return nil
		}),
	)
	if s.cancelled() {
		return "", errStopped
	}
	if err != nil {
		return "", fmt.Errorf("failed to understand question: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("failed to understand question: model returned no choices")
	}
	text := resp.Choices[0].Content
	if !streamed && text != "" {
		if !s.emit(Event{Type: EventStepContent, Step: StepUnderstanding, Content: text}) {
			return "", errStopped
		}
	}
	if !s.stepComplete(StepUnderstanding) {
		return "", errStopped
	}
	return text, nil
}

// search asks the search service for a grounded answer and turns everything it
// points at into sources. It returns the pages worth crawling, trusted domains first.
func (s *session) search(understanding string) (*search.Result, []string, error) {
	defer metrics.ObserveStage(string(StepSearching), time.Now())
	if !s.stepStart(StepSearching) {
		return nil, nil, errStopped
	}
	if !s.stepContent(StepSearching, "Searching the web for: %s\n", s.req.Query) {
		return nil, nil, errStopped
	}

	result, err := s.engine.Searcher.Search(s.ctx, search.Request{
		Query:         s.req.Query,
		Understanding: understanding,
		History:       s.req.History,
	})
	if s.cancelled() {
		return nil, nil, errStopped
	}
	if err != nil {
		return nil, nil, fmt.Errorf("search failed: %w", err)
	}

	titles := make(map[string]string)
	var urls []string
	for _, src := range result.Sources {
		urls = append(urls, src.URL)
		if src.Title != "" {
			titles[src.URL] = src.Title
		}
	}
	for _, src := range references.ParseSources(result.Text) {
		if _, ok := titles[src.URL]; !ok && src.Title != "" {
			titles[src.URL] = src.Title
		}
	}
	urls = append(urls, references.ExtractURLs(result.Text)...)

	candidates := s.rankCandidates(urls)
	for _, u := range candidates {
		if !s.addSource(u, titles[u]) {
			return nil, nil, errStopped
		}
	}

	trusted := 0
	for _, src := range s.sources {
		if src.Trusted {
			trusted++
		}
	}
	if !s.stepContent(StepSearching, "Found %d sources, %d from trusted sites\n", len(s.sources), trusted) {
		return nil, nil, errStopped
	}
	if !s.stepComplete(StepSearching) {
		return nil, nil, errStopped
	}

	limit := crawler.DefaultMaxPages
	if s.engine.Crawler != nil && s.engine.Crawler.MaxPages > 0 {
		limit = s.engine.Crawler.MaxPages
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return result, candidates, nil
}

// rankCandidates deduplicates urls and moves trusted ones to the front,
// keeping relative order otherwise.
func (s *session) rankCandidates(urls []string) []string {
	seen := make(map[string]bool)
	var trusted, other []string
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		if s.engine.Sites != nil && s.engine.Sites.IsTrusted(u) {
			trusted = append(trusted, u)
		} else {
			other = append(other, u)
		}
	}
	return append(trusted, other...)
}

// explore crawls the candidates and accumulates the evidence found on each page.
func (s *session) explore(candidates []string) error {
	defer metrics.ObserveStage(string(StepExploring), time.Now())
	if !s.stepStart(StepExploring) {
		return errStopped
	}
	if s.engine.Crawler == nil {
		return fmt.Errorf("no crawler configured")
	}
	if !s.stepContent(StepExploring, "Reading %d pages\n", len(candidates)) {
		return errStopped
	}

	c := *s.engine.Crawler
	c.Logger = s.logger
	if s.engine.Evidence != nil {
		query := s.req.Query
		c.Visit = func(ctx context.Context, p *crawler.Page) {
			p.Evidence = s.engine.Evidence.ExtractPage(ctx, p.Content, query, nil)
		}
	}

	pages := c.Crawl(s.ctx, candidates, func(p crawler.Progress) {
		if s.stopped {
			return
		}
		switch p.Type {
		case crawler.ProgressError:
			s.stepContent(StepExploring, "Could not read %s\n", p.URL)
		case crawler.ProgressFound:
			title := p.Title
			if title == "" {
				title = p.URL
			}
			if p.Related {
				if !s.addSource(p.URL, p.Title) {
					return
				}
				if !s.stepContent(StepExploring, "Following related page: %s\n", title) {
					return
				}
			} else if !s.stepContent(StepExploring, "Read: %s\n", title) {
				return
			}
			if p.Page == nil || p.Page.Evidence.IsEmpty() {
				return
			}
			added := s.acc.Add(p.Page.Evidence, p.URL)
			for kind, n := range added.Counts() {
				metrics.EvidenceFragments.WithLabelValues(string(kind)).Add(float64(n))
			}
			if added.Len() > 0 {
				s.stepContent(StepExploring, "Found %d pieces of evidence on %s\n", added.Len(), sites.DomainOf(p.URL))
			}
		}
	})
	if s.cancelled() {
		return errStopped
	}

	if !s.stepContent(StepExploring, "Collected %d pieces of evidence from %d pages\n", s.acc.Len(), len(pages)) {
		return errStopped
	}
	if !s.stepComplete(StepExploring) {
		return errStopped
	}
	return nil
}

// synthesize streams the search answer with resolved references, followed by
// the verified evidence section when anything was collected.
func (s *session) synthesize(prose string) error {
	defer metrics.ObserveStage(string(StepSynthesizing), time.Now())
	if !s.stepStart(StepSynthesizing) {
		return errStopped
	}
	if !s.emit(Event{Type: EventResponseStart}) {
		return errStopped
	}

	answer := references.ExtractReferences(prose).Text + evidence.Appendix(s.acc.Evidence())

	size := s.engine.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	var limiter *rate.Limiter
	if s.engine.ChunkDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.engine.ChunkDelay), 1)
	}
	for _, chunk := range Chunks(answer, size) {
		if limiter != nil {
			if err := limiter.Wait(s.ctx); err != nil {
				return errStopped
			}
		}
		if !s.emit(Event{Type: EventResponseContent, Content: chunk}) {
			return errStopped
		}
	}

	if !s.stepComplete(StepSynthesizing) {
		return errStopped
	}
	if !s.emit(Event{Type: EventDone}) {
		return errStopped
	}
	return nil
}

// Chunks splits text into pieces of at most size runes without breaking a rune.
func Chunks(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		out = append(out, string(runes[start:min(start+size, len(runes))]))
	}
	return out
}
