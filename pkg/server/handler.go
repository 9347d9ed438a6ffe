package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mikeboe/evidence-helper/pkg/database"
	"github.com/mikeboe/evidence-helper/pkg/research"
)

type Handler struct {
	Service *Service
	Tools   *Toolset
	MCP     http.Handler
}

func NewHandler(s *Service, tools *Toolset) *Handler {
	return &Handler{Service: s, Tools: tools, MCP: MCPHandler(NewMCPServer(tools))}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Any("/mcp", gin.WrapH(h.MCP))

	api := r.Group("/api")
	{
		api.POST("/research", h.research)
		api.GET("/research", h.listSessions)
		api.GET("/research/:id", h.getSession)
		api.GET("/research/:id/logs", h.getSessionLogs)

		api.GET("/sites", h.listSites)
		api.POST("/references", h.resolveReferences)
		api.POST("/extract", h.extractPage)
		api.POST("/sites/search", h.siteSearch)
	}
}

// research streams one session as server-sent events. Closing the connection
// cancels the session.
func (h *Handler) research(c *gin.Context) {
	var req research.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": research.ErrEmptyQuery.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	h.Service.Research(c.Request.Context(), req, func(ev research.Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
}

func (h *Handler) requireStore(c *gin.Context) bool {
	if h.Service.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session storage is not configured"})
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) listSessions(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	sessions, err := h.Service.Store.ListSessions(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Return empty list instead of null
	if sessions == nil {
		sessions = []database.Session{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) getSession(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	session, err := h.Service.Store.GetSession(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	events, transcript, err := h.Service.Replay(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":    session,
		"transcript": transcript,
		"events":     events,
	})
}

func (h *Handler) getSessionLogs(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	logs, err := h.Service.Store.ListLogs(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []database.LogEntry{}
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) listSites(c *gin.Context) {
	resp, err := h.Tools.ListSites(c.Request.Context(), ListSitesArgs{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) resolveReferences(c *gin.Context) {
	var args ResolveReferencesArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, _ := h.Tools.ResolveReferences(c.Request.Context(), args)
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) extractPage(c *gin.Context) {
	var args ExtractPageArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.Tools.ExtractPage(c.Request.Context(), args)
	if errors.Is(err, ErrInvalidURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) siteSearch(c *gin.Context) {
	var args SiteSearchArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := h.Tools.Sites.Get(args.Domain); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no site config for domain %q", args.Domain)})
		return
	}
	resp, err := h.Tools.SiteSearch(c.Request.Context(), args)
	if errors.Is(err, ErrEmptySearch) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
