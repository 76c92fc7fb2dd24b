package mcp_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/astdiff/pkg/ingest"
	"github.com/Sumatoshi-tech/astdiff/pkg/mcp"
	"github.com/Sumatoshi-tech/astdiff/pkg/observability"
	"github.com/Sumatoshi-tech/astdiff/pkg/report"
)

// connect starts srv on an in-memory transport and returns a client session.
func connect(t *testing.T, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func newServer() *mcp.Server {
	return mcp.NewServer(mcp.ServerDeps{Logger: observability.DiscardLogger()})
}

func textOf(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestListTools(t *testing.T) {
	t.Parallel()

	srv := newServer()
	assert.Equal(t, []string{mcp.ToolNameDiff, mcp.ToolNameParse}, srv.ListToolNames())

	session := connect(t, srv)

	toolsResult, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, []string{mcp.ToolNameDiff, mcp.ToolNameParse}, names)
}

func TestCallDiff(t *testing.T) {
	t.Parallel()

	session := connect(t, newServer())

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name: mcp.ToolNameDiff,
		Arguments: map[string]any{
			"before":   "package main\n\nfunc add(a, b int) int { return a + b }\n",
			"after":    "package main\n\nfunc adds(a, b int) int { return a + b }\n",
			"language": "go",
			"path":     "main.go",
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))

	var rep report.Project
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &rep))
	require.Len(t, rep.Diffs, 1)

	diff := rep.Diffs[0]
	assert.Equal(t, "main.go", diff.SrcPath)
	assert.Equal(t, 1, diff.Summary.Updates)

	var labels []string
	for _, action := range diff.Actions {
		labels = append(labels, action.Label)
	}

	assert.Contains(t, labels, "adds")
}

func TestCallParse(t *testing.T) {
	t.Parallel()

	session := connect(t, newServer())

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name: mcp.ToolNameParse,
		Arguments: map[string]any{
			"code":     "package main\n\nvar x = 1\n",
			"language": "go",
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))

	doc, err := ingest.LoadJSON(strings.NewReader(textOf(t, result)))
	require.NoError(t, err)
	assert.Positive(t, doc.Len())
}

func TestCallToolErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{
			name: "missing language",
			tool: mcp.ToolNameParse,
			args: map[string]any{"code": "x", "language": ""},
			want: mcp.ErrEmptyLanguage.Error(),
		},
		{
			name: "unknown grammar",
			tool: mcp.ToolNameDiff,
			args: map[string]any{"before": "a", "after": "b", "language": "zzz9"},
			want: ingest.ErrUnsupportedLanguage.Error(),
		},
		{
			name: "code too large",
			tool: mcp.ToolNameParse,
			args: map[string]any{"code": strings.Repeat("x", mcp.MaxCodeInputBytes+1), "language": "go"},
			want: mcp.ErrCodeTooLarge.Error(),
		},
	}

	session := connect(t, newServer())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
				Name:      tt.tool,
				Arguments: tt.args,
			})
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, textOf(t, result), tt.want)
		})
	}
}
