package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/evidence-helper/pkg/crawler"
	"github.com/mikeboe/evidence-helper/pkg/database"
	"github.com/mikeboe/evidence-helper/pkg/evidence"
	"github.com/mikeboe/evidence-helper/pkg/extract"
	"github.com/mikeboe/evidence-helper/pkg/llmtest"
	"github.com/mikeboe/evidence-helper/pkg/research"
	"github.com/mikeboe/evidence-helper/pkg/search"
	"github.com/mikeboe/evidence-helper/pkg/sites"
)

// memStore is an in-memory SessionStore.
type memStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*database.Session
	events   map[uuid.UUID][]json.RawMessage
	logs     map[uuid.UUID][]database.LogEntry
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[uuid.UUID]*database.Session),
		events:   make(map[uuid.UUID][]json.RawMessage),
		logs:     make(map[uuid.UUID][]database.LogEntry),
	}
}

func (m *memStore) CreateSession(_ context.Context, id uuid.UUID, query string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = &database.Session{ID: id, Query: query, Status: StatusRunning}
	return nil
}

func (m *memStore) FinishSession(_ context.Context, id uuid.UUID, status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return database.ErrNotFound
	}
	s.Status, s.Error = status, errMsg
	return nil
}

func (m *memStore) GetSession(_ context.Context, id uuid.UUID) (*database.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSessions(context.Context, int) ([]database.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Session
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memStore) AppendEvents(_ context.Context, id uuid.UUID, _ int, events []json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[id] = append(m.events[id], events...)
	return nil
}

func (m *memStore) ListEvents(_ context.Context, id uuid.UUID) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[id], nil
}

func (m *memStore) InsertLog(_ context.Context, id uuid.UUID, entry database.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[id] = append(m.logs[id], entry)
	return nil
}

func (m *memStore) ListLogs(_ context.Context, id uuid.UUID) ([]database.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logs[id], nil
}

func (m *memStore) only(t *testing.T) *database.Session {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.sessions, 1)
	for _, s := range m.sessions {
		return s
	}
	return nil
}

const answer = "Scholars differ on this. See Sahih Muslim 2000."

// newTestSite serves a page and a search page for a site record written to a temp dir.
func newTestSite(t *testing.T) (*httptest.Server, *sites.Store) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/item/1":
			fmt.Fprintf(w, "<html><body><h1>Ruling on music</h1><article><p>%s</p></article></body></html>",
				strings.Repeat("Singing with instruments is discussed here. ", 5))
		case "/search":
			fmt.Fprintf(w, `<html><body><div class="results"><a href="/item/1">One</a><a href="/item/2">Two</a></div><a href="/about">About</a></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	record := fmt.Sprintf(`domain: 127.0.0.1
name: Local
evidenceTypes: [fatwa]
search:
  urlTemplate: "%s/search?q={query}"
  resultSelector: ".results"
  resultLinkSelector: "a"
contentPage:
  urlPatterns: ['/item/\d+$']
extraction:
  title: ["h1"]
  mainContent: ["article"]
`, srv.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "127.0.0.1.yaml"), []byte(record), 0o644))

	store, err := sites.Open(dir)
	require.NoError(t, err)
	return srv, store
}

func newTestRouter(t *testing.T, store SessionStore) (*gin.Engine, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv, siteStore := newTestSite(t)
	x := extract.NewEngine(siteStore)
	c := crawler.New(x)

	engine := research.NewEngine(
		llmtest.Reply("The question is about music."),
		search.Func(func(context.Context, search.Request) (*search.Result, error) {
			return &search.Result{Text: answer}, nil
		}),
		c,
		evidence.NewExtractor(llmtest.Reply(`{}`), 6000, 200, 2),
		siteStore,
	)
	engine.ChunkDelay = 0

	svc := NewService(engine, store)
	r := gin.New()
	NewHandler(svc, NewToolset(siteStore, c, x)).RegisterRoutes(r)
	return r, srv
}

func parseSSE(t *testing.T, body string) []research.Event {
	t.Helper()
	var events []research.Event
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		require.True(t, strings.HasPrefix(block, "data: "), block)
		var ev research.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(block, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestResearchStreamsEvents(t *testing.T) {
	store := newMemStore()
	r, _ := newTestRouter(t, store)

	w := postJSON(r, "/api/research", map[string]any{"query": "Is music haram?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := parseSSE(t, w.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, research.EventSessionInit, events[0].Type)
	assert.Equal(t, research.EventDone, events[len(events)-1].Type)

	tr := research.Reduce(events)
	assert.Contains(t, tr.Response, "](https://sunnah.com/muslim:2000)")

	session := store.only(t)
	assert.Equal(t, events[0].SessionID, session.ID.String())
	assert.Equal(t, StatusCompleted, session.Status)
	assert.Len(t, store.events[session.ID], len(events))
	assert.NotEmpty(t, store.logs[session.ID])

	t.Run("replay", func(t *testing.T) {
		w := get(r, "/api/research/"+session.ID.String())
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Session    database.Session    `json:"session"`
			Transcript research.Transcript `json:"transcript"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tr.Response, body.Transcript.Response)
		assert.True(t, body.Transcript.Done)
		assert.Equal(t, StatusCompleted, body.Session.Status)
	})

	t.Run("logs", func(t *testing.T) {
		w := get(r, "/api/research/"+session.ID.String()+"/logs")
		require.Equal(t, http.StatusOK, w.Code)
		var logs []database.LogEntry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
		require.NotEmpty(t, logs)
		assert.Equal(t, "Starting research session", logs[0].Message)
	})

	t.Run("list", func(t *testing.T) {
		w := get(r, "/api/research")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Is music haram?")
	})
}

func TestResearchRejectsBadRequests(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := postJSON(r, "/api/research", map[string]any{"query": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), research.ErrEmptyQuery.Error())

	req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader("{not json"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResearchStopsWhenClientDisconnects(t *testing.T) {
	store := newMemStore()
	r, _ := newTestRouter(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{"query":"Is music haram?"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Empty(t, parseSSE(t, w.Body.String()))
	assert.Equal(t, StatusCancelled, store.only(t).Status)
}

func TestSessionRoutesWithoutStore(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	id := uuid.NewString()

	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/api/research").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/api/research/"+id).Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/api/research/"+id+"/logs").Code)
}

func TestSessionRoutesValidateID(t *testing.T) {
	r, _ := newTestRouter(t, newMemStore())

	assert.Equal(t, http.StatusBadRequest, get(r, "/api/research/not-a-uuid").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/api/research/"+uuid.NewString()).Code)
}

func TestToolRoutes(t *testing.T) {
	r, srv := newTestRouter(t, nil)

	t.Run("sites", func(t *testing.T) {
		w := get(r, "/api/sites")
		require.Equal(t, http.StatusOK, w.Code)
		var resp ListSitesResp
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		var domains []string
		for _, s := range resp.Sites {
			domains = append(domains, s.Domain)
		}
		assert.Contains(t, domains, "sunnah.com")
		assert.Contains(t, domains, "127.0.0.1")
	})

	t.Run("references", func(t *testing.T) {
		w := postJSON(r, "/api/references", ResolveReferencesArgs{Text: "Read Quran 2:255."})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "https://quran.com/2/255")
	})

	t.Run("extract", func(t *testing.T) {
		w := postJSON(r, "/api/extract", ExtractPageArgs{URL: srv.URL + "/item/1"})
		require.Equal(t, http.StatusOK, w.Code)
		var content extract.Content
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &content))
		assert.Equal(t, "Ruling on music", content.Title)
		assert.True(t, content.IsContentPage)
		assert.Equal(t, sites.EvidenceFatwa, content.EvidenceType)

		assert.Equal(t, http.StatusBadRequest, postJSON(r, "/api/extract", ExtractPageArgs{URL: "ftp://x"}).Code)
		assert.Equal(t, http.StatusBadGateway, postJSON(r, "/api/extract", ExtractPageArgs{URL: srv.URL + "/missing"}).Code)
	})

	t.Run("site search", func(t *testing.T) {
		w := postJSON(r, "/api/sites/search", SiteSearchArgs{Domain: "127.0.0.1", Query: "music"})
		require.Equal(t, http.StatusOK, w.Code)
		var resp SiteSearchResp
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{srv.URL + "/item/1", srv.URL + "/item/2"}, resp.Results)

		assert.Equal(t, http.StatusNotFound, postJSON(r, "/api/sites/search", SiteSearchArgs{Domain: "example.com", Query: "music"}).Code)
		assert.Equal(t, http.StatusBadRequest, postJSON(r, "/api/sites/search", SiteSearchArgs{Domain: "127.0.0.1"}).Code)
	})
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	assert.Equal(t, http.StatusOK, get(r, "/healthz").Code)
	w := get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
