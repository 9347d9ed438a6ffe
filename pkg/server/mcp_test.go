package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/evidence-helper/pkg/crawler"
	"github.com/mikeboe/evidence-helper/pkg/extract"
)

func connectMCP(t *testing.T, tools *Toolset) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	_, err := NewMCPServer(tools).Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestMCPTools(t *testing.T) {
	srv, store := newTestSite(t)
	x := extract.NewEngine(store)
	session := connectMCP(t, NewToolset(store, crawler.New(x), x))
	ctx := context.Background()

	list, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"resolve_references", "extract_page", "site_search", "list_sites"}, names)

	t.Run("resolve_references", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "resolve_references",
			Arguments: map[string]any{"text": "As in Sahih al-Bukhari 1."},
		})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Contains(t, textOf(t, res), "https://sunnah.com/bukhari:1")
	})

	t.Run("extract_page", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "extract_page",
			Arguments: map[string]any{"url": srv.URL + "/item/1"},
		})
		require.NoError(t, err)
		require.False(t, res.IsError)
		var content extract.Content
		require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &content))
		assert.Equal(t, "Ruling on music", content.Title)
	})

	t.Run("site_search reports unknown domains as tool errors", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "site_search",
			Arguments: map[string]any{"domain": "example.com", "query": "music"},
		})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "example.com")
	})
}
