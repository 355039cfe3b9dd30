package core

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background())
	assert.NotEmpty(t, RequestIDFromCtx(ctx))
	assert.NotEqual(t, RequestIDFromCtx(ctx), RequestIDFromCtx(WithRequestID(context.Background())))
}

func TestRequestIDFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "reuses caller header", header: "abc-123", want: "abc-123"},
		{name: "generates when missing", header: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/mcp", nil)
			if tt.header != "" {
				r.Header.Set(RequestIDHeader, tt.header)
			}
			got := RequestIDFromCtx(RequestIDFromRequest(context.Background(), r))
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
				return
			}
			assert.Len(t, got, 36)
		})
	}
}

func TestLoggerFromCtx_NoRequestID(t *testing.T) {
	assert.NotNil(t, LoggerFromCtx(context.Background()))
	assert.Empty(t, RequestIDFromCtx(context.Background()))
}

func TestConsulterFunc(t *testing.T) {
	var gotEndpoint string
	c := ConsulterFunc(func(_ context.Context, endpoint string, args map[string]any) any {
		gotEndpoint = endpoint
		return args["search"]
	})

	got := c.MakeAPIRequest(context.Background(), "code", map[string]any{"search": "bail"})
	assert.Equal(t, "code", gotEndpoint)
	assert.Equal(t, "bail", got)
}
