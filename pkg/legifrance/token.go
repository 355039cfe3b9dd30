package legifrance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	// expiryMargin is subtracted from the server declared lifetime.
	expiryMargin = 60 * time.Second
	// defaultExpiresIn applies when the token response has no expires_in.
	defaultExpiresIn = 3600
)

// TokenInfo is one OAuth2 access token. A zero ExpiresAt means the token
// never expires (static token). Values are never mutated; a refresh
// replaces the whole TokenInfo.
type TokenInfo struct {
	AccessToken string
	ExpiresAt   time.Time
}

// ExpiredAt reports whether the token is expired at now.
func (t *TokenInfo) ExpiredAt(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// OAuth2 returns the token as a bearer oauth2.Token.
func (t *TokenInfo) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   "Bearer",
		Expiry:      t.ExpiresAt,
	}
}

// tokenManager owns the client-credentials exchange and the current token.
type tokenManager struct {
	credentials *clientcredentials.Config

	httpClient *http.Client
	retrier    retrier
	now        func() time.Time
	logger     *slog.Logger
	tracer     trace.Tracer

	current atomic.Pointer[TokenInfo]
	group   singleflight.Group
}

// ensure returns a valid token, refreshing the current one if it expired.
// Concurrent callers observing the same expiry share a single exchange.
func (m *tokenManager) ensure(ctx context.Context) (*TokenInfo, error) {
	cur := m.current.Load()
	if cur != nil && !cur.ExpiredAt(m.now()) {
		return cur, nil
	}

	v, err, _ := m.group.Do("refresh", func() (any, error) {
		if cur := m.current.Load(); cur != nil && !cur.ExpiredAt(m.now()) {
			return cur, nil
		}
		m.logger.Info("Access token expired, refreshing token")
		info, err := m.acquire(ctx)
		if err != nil {
			return nil, err
		}
		m.current.Store(info)
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TokenInfo), nil
}

// acquire exchanges the client credentials for a new token, with retries.
func (m *tokenManager) acquire(ctx context.Context) (*TokenInfo, error) {
	ctx, span := m.tracer.Start(ctx, "legifrance.token",
		trace.WithAttributes(attribute.String("legifrance.token_url", m.credentials.TokenURL)))
	defer span.End()

	var info *TokenInfo
	err := m.retrier.do(ctx, "token", func() error {
		var err error
		info, err = m.exchange(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	m.logger.Info("Obtained Legifrance access token", "expires_at", info.ExpiresAt)
	return info, nil
}

// exchange performs a single client-credentials request.
func (m *tokenManager) exchange(ctx context.Context) (*TokenInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	issued := m.now()
	tok, err := m.credentials.Token(ctx)
	if err != nil {
		return nil, classifyTokenError(err)
	}
	return tokenInfo(tok, issued)
}

// classifyTokenError maps a failed exchange to the error taxonomy.
func classifyTokenError(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.Response != nil {
		code := rErr.Response.StatusCode
		body := string(rErr.Body)
		details := statusDetails(code, body)
		cause := &statusError{code: code, body: body}
		if code == http.StatusUnauthorized || code == http.StatusForbidden {
			return newAuthenticationError("Legifrance authentication failed", details, cause)
		}
		return &LegifranceError{
			APIError: APIError{
				Message: fmt.Sprintf("Error obtaining Legifrance access token: HTTP %d", code),
				Details: details,
				Err:     cause,
			},
			StatusCode: code,
			Operation:  "token",
		}
	}

	var urlErr *url.Error
	switch {
	case errors.As(err, &urlErr), strings.HasPrefix(err.Error(), "oauth2: cannot fetch token"):
		return connectivityError("token", "Error connecting to Legifrance auth server", err)
	case strings.Contains(err.Error(), "missing access_token"):
		return newAuthenticationError("Failed to obtain access token",
			map[string]any{"response": err.Error()}, err)
	default:
		return unexpectedError("token", "Unexpected error obtaining Legifrance access token", err)
	}
}

// tokenInfo builds a TokenInfo from an exchanged token. The expiry is
// computed from issued rather than from the oauth2 package clock.
func tokenInfo(tok *oauth2.Token, issued time.Time) (*TokenInfo, error) {
	if tok.AccessToken == "" || tok.AccessToken == "null" {
		return nil, newAuthenticationError("Failed to obtain access token",
			map[string]any{"response": map[string]any{
				"access_token": tok.AccessToken,
				"token_type":   tok.TokenType,
			}}, nil)
	}

	expiresIn, err := parseExpiresIn(tok.Extra("expires_in"))
	if err != nil {
		return nil, unexpectedError("token", "Unexpected error obtaining Legifrance access token", err)
	}

	return &TokenInfo{
		AccessToken: tok.AccessToken,
		ExpiresAt:   issued.Add(time.Duration(expiresIn)*time.Second - expiryMargin),
	}, nil
}

func parseExpiresIn(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return defaultExpiresIn, nil
	case float64:
		return int64(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid expires_in %q: %w", n, err)
		}
		return int64(f), nil
	case string:
		n = strings.TrimSpace(n)
		if n == "" {
			return defaultExpiresIn, nil
		}
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid expires_in %q: %w", n, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("invalid expires_in type %T", v)
	}
}
