package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-training/mcp-legifrance/pkg/core"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httplog/v3"
)

// HTTPOptions configures the HTTP transport.
type HTTPOptions struct {
	// APIKey, when set, is required on /mcp as a bearer token or X-API-Key.
	APIKey string
	Logger *slog.Logger
}

// Handler returns the HTTP handler serving /mcp, /healthz and /readyz, with
// request logging and request IDs.
func (s *MCPServer) Handler(opts HTTPOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware, corsMiddleware("X-API-Key", core.RequestIDHeader, "Mcp-Session-Id"))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			core.LoggerFromCtx(c.Request.Context()).Warn("Readiness check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	router.OPTIONS("/mcp", func(*gin.Context) {})

	mcpHandler := gin.WrapH(s.ServeHTTP())
	mcpGroup := router.Group("/mcp", apiKeyMiddleware(opts.APIKey))
	// Register POST, GET, DELETE methods for the /mcp path, all handled by MCPServer
	for _, method := range []string{http.MethodPost, http.MethodGet, http.MethodDelete} {
		mcpGroup.Handle(method, "", mcpHandler)
	}

	return httplog.RequestLogger(logger, &httplog.Options{
		Schema: httplog.SchemaECS.Concise(true),

		// never log credentials or bodies
		LogRequestHeaders:  []string{"Content-Type", "Origin"},
		LogResponseHeaders: []string{},

		RecoverPanics: false,
	})(router)
}

// NewHTTPServer wraps handler in an http.Server listening on addr.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// requestIDMiddleware reuses the caller's X-Request-ID or generates one,
// exposes it on the response and attaches it to the context and request log.
func requestIDMiddleware(c *gin.Context) {
	ctx := core.RequestIDFromRequest(c.Request.Context(), c.Request)
	id := core.RequestIDFromCtx(ctx)
	c.Request.Header.Set(core.RequestIDHeader, id)
	c.Header(core.RequestIDHeader, id)

	httplog.SetAttrs(ctx, slog.String("request_id", id))
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

// apiKeyMiddleware checks the API key when one is configured.
func apiKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		key := c.GetHeader("X-API-Key")
		if key == "" {
			key, _ = strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// corsMiddleware allows browser based MCP clients. Extra headers are added
// to the default allow list.
func corsMiddleware(allowedHeaders ...string) gin.HandlerFunc {
	headers := []string{"Mcp-Protocol-Version", "Authorization", "Content-Type"}
	for _, h := range allowedHeaders {
		h = strings.TrimSpace(h)
		if h != "" && h != "*" && !containsCI(headers, h) {
			headers = append(headers, h)
		}
	}
	allowHeaders := strings.Join(headers, ", ")
	allowMethods := strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}, ", ")

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Vary", "Origin")
		c.Header("Access-Control-Allow-Methods", allowMethods)
		c.Header("Access-Control-Allow-Headers", allowHeaders)
		c.Header("Access-Control-Expose-Headers", "Mcp-Session-Id, "+core.RequestIDHeader)
		c.Header("Access-Control-Max-Age", "86400")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// containsCI checks if slice contains item (case-insensitive).
func containsCI(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
