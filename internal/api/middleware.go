package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/logging"
	"scan2cal/calendar-app/internal/service"
)

// Context keys
const (
	ContextPrincipalKey = "principal"
	HeaderBridgeSecret  = "X-Auth-Bridge-Secret"
	HeaderRequestID     = "X-Request-ID"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
// A valid token puts the caller's domain.Principal into the context.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		principal, err := service.ParseAccessToken(jwtSecret, parts[1])
		if err != nil {
			logging.FromContextOr(c.Request.Context(), nil).Debug(c.Request.Context(), "token rejected", "error", err)
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

// BridgeSecretMiddleware guards server-to-server endpoints with a shared secret header.
func BridgeSecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderBridgeSecret)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			abortWithError(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		c.Next()
	}
}

// RequestLogger attaches a request-scoped logger to the request context and
// logs one line per request once the handler chain is done.
func RequestLogger(base logging.Logger) gin.HandlerFunc {
	if base == nil {
		base = logging.Nop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		log := base.With("request_id", requestID)
		ctx := logging.ContextWithLogger(c.Request.Context(), log)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if p, ok := principalFromContext(c); ok {
			attrs = append(attrs, "account_id", p.AccountID)
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error(ctx, "request finished", attrs...)
		case status >= http.StatusBadRequest:
			log.Warn(ctx, "request finished", attrs...)
		default:
			log.Info(ctx, "request finished", attrs...)
		}
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

func principalFromContext(c *gin.Context) (domain.Principal, bool) {
	raw, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return domain.Principal{}, false
	}
	p, ok := raw.(domain.Principal)
	return p, ok
}

// principal returns the authenticated caller, or the zero Principal which
// every service rejects as unauthorized.
func principal(c *gin.Context) domain.Principal {
	p, _ := principalFromContext(c)
	return p
}
