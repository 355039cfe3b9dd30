package legal

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-training/mcp-legifrance/pkg/core"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Search   string   `json:"search" validate:"required"`
	Sort     string   `json:"sort" validate:"oneof=PERTINENCE DATE_ASC DATE_DESC"`
	PageSize int      `json:"page_size" validate:"gte=1,lte=100"`
	Keys     []string `json:"keys,omitempty"`
}

func newArgs() *searchArgs {
	return &searchArgs{Sort: SortPertinence, PageSize: DefaultPageSize}
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		args    *searchArgs
		wantErr string
	}{
		{
			name: "defaults are valid",
			args: &searchArgs{Search: "bail", Sort: SortPertinence, PageSize: 10},
		},
		{
			name:    "missing search",
			args:    &searchArgs{Sort: SortPertinence, PageSize: 10},
			wantErr: "search is required",
		},
		{
			name:    "unknown sort",
			args:    &searchArgs{Search: "bail", Sort: "RANDOM", PageSize: 10},
			wantErr: "sort must be one of [PERTINENCE DATE_ASC DATE_DESC], got RANDOM",
		},
		{
			name:    "page size too large",
			args:    &searchArgs{Search: "bail", Sort: SortPertinence, PageSize: 101},
			wantErr: "page_size must be at most 100",
		},
		{
			name:    "page size too small",
			args:    &searchArgs{Search: "bail", Sort: SortPertinence, PageSize: 0},
			wantErr: "page_size must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestDecodeKeepsDefaults(t *testing.T) {
	args := newArgs()
	err := Decode(callRequest("t", map[string]any{"search": "bail", "sort": "DATE_DESC"}), args)
	require.NoError(t, err)
	assert.Equal(t, &searchArgs{Search: "bail", Sort: "DATE_DESC", PageSize: 10}, args)

	err = Decode(callRequest("t", map[string]any{"page_size": "ten"}), newArgs())
	assert.ErrorContains(t, err, "invalid arguments")
}

func TestPayloadDropsUnsetOptionals(t *testing.T) {
	payload, err := Payload(&searchArgs{Search: "bail", Sort: SortPertinence, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"search":    "bail",
		"sort":      "PERTINENCE",
		"page_size": json.Number("10"),
	}, payload)
}

func TestFormat(t *testing.T) {
	res, err := Format(map[string]any{"error": "Legifrance authentication failed"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Legifrance authentication failed", text(t, res))

	res, err = Format("Article 1240 du Code civil")
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Article 1240 du Code civil"+OfficialLinkReminder, text(t, res))

	res, err = Format(map[string]any{"titre": "Loi n° 78-17 <informatique & libertés>"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"titre\": \"Loi n° 78-17 <informatique & libertés>\"\n}", text(t, res))

	_, err = Format(map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	var gotEndpoint string
	var gotArgs map[string]any
	c := core.ConsulterFunc(func(_ context.Context, endpoint string, args map[string]any) any {
		gotEndpoint = endpoint
		gotArgs = args
		return map[string]any{"results": []any{}}
	})

	res, err := Run(context.Background(), c,
		callRequest("rechercher_test", map[string]any{"search": "bail", "keys": []any{"titre"}}),
		"rechercher_test", "code", newArgs())
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "{\n  \"results\": []\n}", text(t, res))
	assert.Equal(t, "code", gotEndpoint)
	assert.Equal(t, "bail", gotArgs["search"])
	assert.Equal(t, []any{"titre"}, gotArgs["keys"])
}

func TestRunValidationError(t *testing.T) {
	called := false
	c := core.ConsulterFunc(func(context.Context, string, map[string]any) any {
		called = true
		return nil
	})

	res, err := Run(context.Background(), c,
		callRequest("rechercher_test", map[string]any{"page_size": 500}),
		"rechercher_test", "code", newArgs())
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t,
		"Erreur lors de l'exécution de rechercher_test: search is required; page_size must be at most 100",
		text(t, res))
	assert.False(t, called)
}

func TestRunRenderFailure(t *testing.T) {
	c := core.ConsulterFunc(func(context.Context, string, map[string]any) any {
		return []any{func() {}}
	})

	res, err := Run(context.Background(), c,
		callRequest("rechercher_test", map[string]any{"search": "bail"}),
		"rechercher_test", "code", newArgs())
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "Erreur API lors de l'exécution de rechercher_test: ")
}
