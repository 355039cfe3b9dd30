package operation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-training/mcp-legifrance/pkg/core"
	"github.com/go-training/mcp-legifrance/pkg/operation/code"
	"github.com/go-training/mcp-legifrance/pkg/operation/jurisprudence"
	"github.com/go-training/mcp-legifrance/pkg/operation/legal"
	"github.com/go-training/mcp-legifrance/pkg/operation/texte"
	"github.com/go-training/mcp-legifrance/pkg/ratelimit"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	endpoint string
	args     map[string]any
}

func recordingConsulter(calls *[]recordedCall, result any) core.Consulter {
	return core.ConsulterFunc(func(_ context.Context, endpoint string, args map[string]any) any {
		*calls = append(*calls, recordedCall{endpoint: endpoint, args: args})
		return result
	})
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func toolText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func handler(t *testing.T, tools *Tool, name string) server.ToolHandlerFunc {
	t.Helper()
	for _, st := range tools.Tools() {
		if st.Tool.Name == name {
			return st.Handler
		}
	}
	t.Fatalf("tool %s not registered", name)
	return nil
}

func TestToolRegistry(t *testing.T) {
	tool := &Tool{}
	tool.RegisterRead(server.ServerTool{Tool: mcp.NewTool("read_a")})
	tool.RegisterWrite(server.ServerTool{Tool: mcp.NewTool("write_a")})
	tool.RegisterRead(server.ServerTool{Tool: mcp.NewTool("read_b")})

	assert.Equal(t, []string{"write_a", "read_a", "read_b"}, tool.Names())
}

func TestLegalTools(t *testing.T) {
	tools := LegalTools(core.ConsulterFunc(func(context.Context, string, map[string]any) any { return nil }))

	assert.ElementsMatch(t, []string{
		"rechercher_code",
		"rechercher_jurisprudence_judiciaire",
		"rechercher_dans_texte_legal",
	}, tools.Names())
}

func TestLegalToolPayloads(t *testing.T) {
	tests := []struct {
		name         string
		tool         string
		args         map[string]any
		wantEndpoint string
		wantArgs     map[string]any
	}{
		{
			name:         "code with defaults",
			tool:         code.Name,
			args:         map[string]any{"search": "pacte civil de solidarité", "code_name": "Code civil"},
			wantEndpoint: "code",
			wantArgs: map[string]any{
				"search":         "pacte civil de solidarité",
				"code_name":      "Code civil",
				"champ":          "ALL",
				"sort":           "PERTINENCE",
				"type_recherche": "TOUS_LES_MOTS_DANS_UN_CHAMP",
				"page_size":      "10",
				"fetch_all":      false,
			},
		},
		{
			name: "jurisprudence with lists",
			tool: jurisprudence.Name,
			args: map[string]any{
				"search":               "signature électronique",
				"fetch_all":            true,
				"juri_keys":            []any{"titre", "sommaire"},
				"publication_bulletin": []any{"T"},
			},
			wantEndpoint: "juri",
			wantArgs: map[string]any{
				"search":               "signature électronique",
				"publication_bulletin": []any{"T"},
				"sort":                 "PERTINENCE",
				"champ":                "ALL",
				"type_recherche":       "TOUS_LES_MOTS_DANS_UN_CHAMP",
				"page_size":            "10",
				"fetch_all":            true,
				"juri_keys":            []any{"titre", "sommaire"},
			},
		},
		{
			name:         "texte without text id",
			tool:         texte.Name,
			args:         map[string]any{"search": "7", "champ": "NUM_ARTICLE", "page_size": 5},
			wantEndpoint: "loda",
			wantArgs: map[string]any{
				"search":         "7",
				"champ":          "NUM_ARTICLE",
				"type_recherche": "TOUS_LES_MOTS_DANS_UN_CHAMP",
				"page_size":      "5",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []recordedCall
			tools := LegalTools(recordingConsulter(&calls, "Article 7"))

			res, err := handler(t, tools, tt.tool)(context.Background(), callRequest(tt.tool, tt.args))
			require.NoError(t, err)
			assert.False(t, res.IsError)
			assert.Equal(t, "Article 7"+legal.OfficialLinkReminder, toolText(t, res))

			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantEndpoint, calls[0].endpoint)
			got := make(map[string]any, len(calls[0].args))
			for k, v := range calls[0].args {
				if n, ok := v.(interface{ String() string }); ok {
					got[k] = n.String()
					continue
				}
				got[k] = v
			}
			assert.Equal(t, tt.wantArgs, got)
		})
	}
}

func TestLegalToolRejectsInvalidArguments(t *testing.T) {
	var calls []recordedCall
	tools := LegalTools(recordingConsulter(&calls, nil))

	res, err := handler(t, tools, jurisprudence.Name)(context.Background(),
		callRequest(jurisprudence.Name, map[string]any{
			"search":               "vol",
			"publication_bulletin": []any{"X"},
		}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, toolText(t, res),
		"Erreur lors de l'exécution de rechercher_jurisprudence_judiciaire: publication_bulletin[0] must be one of [T F]")
	assert.Empty(t, calls)
}

func TestLegalToolReportsAPIError(t *testing.T) {
	var calls []recordedCall
	tools := LegalTools(recordingConsulter(&calls, map[string]any{"error": "Legifrance API async request failed: HTTP 500"}))

	res, err := handler(t, tools, code.Name)(context.Background(),
		callRequest(code.Name, map[string]any{"search": "bail", "code_name": "Code civil"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Legifrance API async request failed: HTTP 500", toolText(t, res))
}

func TestObservabilityMiddleware(t *testing.T) {
	next := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("boom"), nil
	}
	h := ObservabilityMiddleware()(next)

	res, err := h(core.WithRequestID(context.Background()), callRequest("rechercher_code", nil))
	require.NoError(t, err)
	assert.Equal(t, "boom", toolText(t, res))
}

func TestRateLimitMiddleware(t *testing.T) {
	var served atomic.Int32
	next := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		served.Add(1)
		return mcp.NewToolResultText("ok"), nil
	}

	l := ratelimit.New(1, time.Hour)
	h := RateLimitMiddleware(l)(next)

	res, err := h(context.Background(), callRequest("rechercher_code", nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", toolText(t, res))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res, err = h(ctx, callRequest("rechercher_code", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, toolText(t, res), "Erreur lors de l'exécution de rechercher_code: ")
	assert.Equal(t, int32(1), served.Load())
}

func TestResultText(t *testing.T) {
	assert.Equal(t, "unknown error with no content", resultText(&mcp.CallToolResult{}))
	assert.Equal(t, "boom", resultText(mcp.NewToolResultError("boom")))
	assert.Equal(t, "unknown error with content type mcp.ImageContent", resultText(&mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewImageContent("AAAA", "image/png")},
	}))
}
