// Package app wires the configured components shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mikeboe/evidence-helper/pkg/clients"
	"github.com/mikeboe/evidence-helper/pkg/config"
	"github.com/mikeboe/evidence-helper/pkg/crawler"
	"github.com/mikeboe/evidence-helper/pkg/evidence"
	"github.com/mikeboe/evidence-helper/pkg/extract"
	"github.com/mikeboe/evidence-helper/pkg/research"
	"github.com/mikeboe/evidence-helper/pkg/search"
	"github.com/mikeboe/evidence-helper/pkg/sites"
)

// Components need no external service and no API key.
type Components struct {
	Config    *config.Config
	Sites     *sites.Store
	Extractor *extract.Engine
	Crawler   *crawler.Crawler
}

func NewComponents(cfg *config.Config) (*Components, error) {
	store, err := sites.Open(cfg.SitesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load site configs: %w", err)
	}
	if err := store.Validate(); err != nil {
		slog.Warn("Some site configs are invalid and will be ignored", "error", err)
	}

	x := extract.NewEngine(store)
	c := crawler.New(x)
	c.MaxPages = cfg.MaxCrawlPages
	c.BatchSize = cfg.CrawlBatchSize
	c.Timeout = cfg.FetchTimeout
	c.FollowRelated = cfg.FollowRelatedLinks

	return &Components{Config: cfg, Sites: store, Extractor: x, Crawler: c}, nil
}

// Engine builds the research engine on top of the Gemini clients.
func (c *Components) Engine(ctx context.Context) (*research.Engine, error) {
	cfg := c.Config

	fast, err := clients.GoogleAi(ctx, cfg.GoogleApiKey, clients.ModelType(cfg.FastModel))
	if err != nil {
		return nil, fmt.Errorf("failed to init understanding model: %w", err)
	}
	reasoning, err := clients.GoogleAi(ctx, cfg.GoogleApiKey, clients.ModelType(cfg.ReasoningModel))
	if err != nil {
		return nil, fmt.Errorf("failed to init evidence model: %w", err)
	}
	genaiClient, err := clients.GenAI(ctx, cfg.GoogleApiKey)
	if err != nil {
		return nil, err
	}

	engine := research.NewEngine(
		fast,
		search.NewGeminiSearcher(genaiClient, cfg.SearchModel),
		c.Crawler,
		evidence.NewExtractor(reasoning, cfg.EvidenceChunkSize, cfg.EvidenceChunkOverlap, cfg.EvidenceMaxChunks),
		c.Sites,
	)
	engine.ChunkSize = cfg.ResponseChunkSize
	engine.ChunkDelay = cfg.ResponseChunkDelay
	return engine, nil
}

// NewLogger builds a text logger at the configured level and makes it the default.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}
