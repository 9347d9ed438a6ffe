package server

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mikeboe/evidence-helper/pkg/extract"
	"github.com/mikeboe/evidence-helper/pkg/references"
)

// NewMCPServer registers the toolset on a new MCP server.
func NewMCPServer(t *Toolset) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "evidence-helper-mcp", Version: "1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_references",
		Description: "Turn numbered citations, Quran verse mentions, hadith mentions and bare URLs in markdown text into links.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args ResolveReferencesArgs) (*mcp.CallToolResult, references.Result, error) {
		out, err := t.ResolveReferences(ctx, args)
		return nil, out, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "extract_page",
		Description: "Fetch a web page and extract its title, main text, metadata and related links using the configured site rules.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args ExtractPageArgs) (*mcp.CallToolResult, extract.Content, error) {
		out, err := t.ExtractPage(ctx, args)
		return nil, out, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "site_search",
		Description: "Search a configured trusted site and return the result links.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args SiteSearchArgs) (*mcp.CallToolResult, SiteSearchResp, error) {
		out, err := t.SiteSearch(ctx, args)
		return nil, out, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_sites",
		Description: "List the trusted sites with extraction rules.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args ListSitesArgs) (*mcp.CallToolResult, ListSitesResp, error) {
		out, err := t.ListSites(ctx, args)
		return nil, out, err
	})

	return server
}

// MCPHandler serves server over the streamable HTTP transport.
func MCPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}
