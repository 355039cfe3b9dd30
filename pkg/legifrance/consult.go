package legifrance

import (
	"context"

	"github.com/go-training/mcp-legifrance/pkg/core"
)

var _ core.Consulter = (*Client)(nil)

// MakeAPIRequest posts args to the consult/{endpoint} search endpoint. It
// never fails: any error is returned as {"error": message}.
func (c *Client) MakeAPIRequest(ctx context.Context, endpoint string, args map[string]any) any {
	res := <-c.PostAsync(ctx, "consult/"+endpoint, Clean(args))
	if res.Err != nil {
		core.LoggerFromCtx(ctx).Error("Legifrance API request failed",
			"endpoint", endpoint,
			"error", res.Err,
		)
		return map[string]any{"error": res.Err.Error()}
	}
	return res.Value
}
