package mcp

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// authMiddleware verifies the Authorization bearer token on every request in
// HTTP mode. Tokens are compared by digest in constant time.
func authMiddleware(expectedToken string) sdkmcp.Middleware {
	want := sha256.Sum256([]byte(expectedToken))
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			auth := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			got := sha256.Sum256([]byte(token))
			if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				return nil, fmt.Errorf("unauthorized: invalid bearer token")
			}
			return next(ctx, method, req)
		}
	}
}

// loggingMiddleware logs each method with its duration and outcome.
func loggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)
			attrs := []any{
				"direction", direction,
				"method", method,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				logger.Warn("mcp request failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("mcp request", attrs...)
			}
			return result, err
		}
	}
}
