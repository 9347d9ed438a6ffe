package sites

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed configs/*.yaml
var embedded embed.FS

// Store indexes site records by domain and parses each one on first use.
// Parsed records are cached for the life of the process and shared between sessions.
type Store struct {
	Logger *slog.Logger

	mu     sync.RWMutex
	files  map[string]fileRef
	loaded map[string]*Config
	failed map[string]error
}

type fileRef struct {
	fsys fs.FS
	name string
}

var (
	defaultStore     *Store
	defaultStoreErr  error
	defaultStoreOnce sync.Once
)

// Default returns the store backed by the embedded site records.
func Default() (*Store, error) {
	defaultStoreOnce.Do(func() {
		sub, err := fs.Sub(embedded, "configs")
		if err != nil {
			defaultStoreErr = err
			return
		}
		defaultStore, defaultStoreErr = NewStore(sub)
	})
	return defaultStore, defaultStoreErr
}

// Open builds a store from the embedded records, overridden per domain by any
// <domain>.yaml files found in dir. An empty dir yields the embedded set only.
func Open(dir string) (*Store, error) {
	sub, err := fs.Sub(embedded, "configs")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return NewStore(sub)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("sites dir: %w", err)
	}
	return NewStore(sub, os.DirFS(dir))
}

// NewStore indexes the *.yaml files at the root of each filesystem. The file stem is
// the domain; later filesystems override earlier ones.
func NewStore(layers ...fs.FS) (*Store, error) {
	s := &Store{
		Logger: slog.Default(),
		files:  make(map[string]fileRef),
		loaded: make(map[string]*Config),
		failed: make(map[string]error),
	}
	for _, fsys := range layers {
		entries, err := fs.ReadDir(fsys, ".")
		if err != nil {
			return nil, fmt.Errorf("failed to list site configs: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := path.Ext(e.Name())
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			domain := NormalizeDomain(strings.TrimSuffix(e.Name(), ext))
			s.files[domain] = fileRef{fsys: fsys, name: e.Name()}
		}
	}
	return s, nil
}

// Get returns the record for domain, trying parent domains when a subdomain has
// no record of its own ("en.islamqa.info" falls back to "islamqa.info").
func (s *Store) Get(domain string) (*Config, bool) {
	domain = NormalizeDomain(domain)
	for domain != "" {
		if cfg, ok := s.load(domain); ok {
			return cfg, true
		}
		_, parent, found := strings.Cut(domain, ".")
		if !found || !strings.Contains(parent, ".") {
			break
		}
		domain = parent
	}
	return nil, false
}

// ForURL resolves the record for the host of rawURL.
func (s *Store) ForURL(rawURL string) (*Config, bool) {
	d := DomainOf(rawURL)
	if d == "" {
		return nil, false
	}
	return s.Get(d)
}

// IsTrusted reports whether rawURL belongs to a configured domain.
func (s *Store) IsTrusted(rawURL string) bool {
	_, ok := s.ForURL(rawURL)
	return ok
}

// Domains lists every indexed domain in lexical order.
func (s *Store) Domains() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.files))
	for d := range s.files {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// All loads and returns every valid record, skipping broken ones.
func (s *Store) All() []*Config {
	var out []*Config
	for _, d := range s.Domains() {
		if cfg, ok := s.load(d); ok {
			out = append(out, cfg)
		}
	}
	return out
}

// Validate eagerly parses every record and returns the first failure.
func (s *Store) Validate() error {
	for _, d := range s.Domains() {
		if _, ok := s.load(d); !ok {
			s.mu.RLock()
			err := s.failed[d]
			s.mu.RUnlock()
			return err
		}
	}
	return nil
}

func (s *Store) load(domain string) (*Config, bool) {
	s.mu.RLock()
	cfg, ok := s.loaded[domain]
	_, broken := s.failed[domain]
	ref, indexed := s.files[domain]
	s.mu.RUnlock()
	if ok {
		return cfg, true
	}
	if broken || !indexed {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg, ok := s.loaded[domain]; ok {
		return cfg, true
	}
	if _, broken := s.failed[domain]; broken {
		return nil, false
	}

	cfg, err := parseConfig(ref)
	if err == nil && cfg.Domain != domain {
		err = fmt.Errorf("site config %s declares domain %q", ref.name, cfg.Domain)
	}
	if err != nil {
		s.failed[domain] = err
		s.Logger.Warn("Failed to load site config", "domain", domain, "error", err)
		return nil, false
	}
	s.loaded[domain] = cfg
	return cfg, true
}

func parseConfig(ref fileRef) (*Config, error) {
	data, err := fs.ReadFile(ref.fsys, ref.name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref.name, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ref.name, err)
	}
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}
