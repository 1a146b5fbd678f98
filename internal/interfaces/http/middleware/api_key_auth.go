// Package middleware provides the gin middleware of the HTTP surface,
// including the API key boundary adapter.
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/courierd/courierd/internal/application/dto"
	"github.com/courierd/courierd/internal/application/service"
	"github.com/courierd/courierd/pkg/constants"
	"github.com/courierd/courierd/pkg/errors"
	"github.com/courierd/courierd/pkg/logger"
)

// extractCredential pulls the presented credential from the request.
// Source priority: dedicated header, then bearer token, then query
// parameter. The query parameter is flagged as least trusted.
func extractCredential(c *gin.Context) (credential string, fromQuery bool) {
	if v := c.GetHeader(constants.HeaderAPIKey); v != "" {
		return v, false
	}
	if auth := c.GetHeader(constants.HeaderAuthorization); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1]), false
		}
	}
	if v := c.Query(constants.QueryParamAPIKey); v != "" {
		return v, true
	}
	return "", false
}

// clientIP derives the client address for audit purposes. Forwarding headers
// come first because the service normally sits behind a proxy; when nothing
// yields an address the unknown sentinel is recorded rather than failing.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get(constants.HeaderForwardedFor); fwd != "" {
		first := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get(constants.HeaderRealIP)); real != "" {
		return real
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return constants.UnknownIP
}

// requestID returns the caller-supplied correlation id or generates one.
func requestID(c *gin.Context) string {
	if id := c.GetHeader(constants.HeaderRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}

// RequireAPIKey guards a route group with the validation pipeline. On
// success the sanitized key view is attached to the gin context; on denial
// the stable error code is mapped to its HTTP status and the request ends.
func RequireAPIKey(validation service.ValidationService, requiredScope string, log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("api_key_auth")
	return func(c *gin.Context) {
		reqID := requestID(c)
		c.Header(constants.HeaderRequestID, reqID)
		c.Set(string(constants.ContextKeyRequestID), reqID)

		credential, fromQuery := extractCredential(c)
		if credential == "" {
			abortWithError(c, errors.ErrMissingCredential())
			return
		}

		result := validation.Validate(c.Request.Context(), &dto.ValidateKeyRequest{
			Credential:     credential,
			RequiredScope:  requiredScope,
			ClientIP:       clientIP(c.Request),
			UserAgent:      c.Request.UserAgent(),
			RequestID:      reqID,
			FromQueryParam: fromQuery,
		})

		if result.RateLimit != nil {
			c.Header(constants.HeaderRateLimitLimit, strconv.FormatInt(result.RateLimit.Limit, 10))
			c.Header(constants.HeaderRateLimitRemaining, strconv.FormatInt(result.RateLimit.Remaining, 10))
			c.Header(constants.HeaderRateLimitReset, strconv.FormatInt(result.RateLimit.ResetAt.Unix(), 10))
		}

		if !result.Valid {
			log.Debug(c.Request.Context(), "request denied",
				logger.String("reason", string(result.Reason)),
				logger.String("request_id", reqID),
			)
			c.AbortWithStatusJSON(errors.HTTPStatusFor(result.Reason), &errors.ErrorResponse{
				Error:   string(result.Reason),
				Message: denialMessage(result.Reason),
			})
			return
		}

		c.Set(string(constants.ContextKeyAPIKey), result.Key)
		c.Next()
	}
}

// KeyFromContext returns the sanitized key view attached by RequireAPIKey.
func KeyFromContext(c *gin.Context) (*dto.KeyView, bool) {
	v, ok := c.Get(string(constants.ContextKeyAPIKey))
	if !ok {
		return nil, false
	}
	view, ok := v.(*dto.KeyView)
	return view, ok
}

// RequestIDFromContext returns the correlation id attached by RequireAPIKey.
func RequestIDFromContext(c *gin.Context) string {
	if v, ok := c.Get(string(constants.ContextKeyRequestID)); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func abortWithError(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus(), errors.ToErrorResponse(err))
}

// denialMessage maps denial codes to their caller-safe messages. Internal
// failures share one opaque message regardless of cause.
func denialMessage(code constants.ErrorCode) string {
	switch code {
	case constants.ErrCodeInvalidFormat:
		return "malformed API key"
	case constants.ErrCodeInvalidCredential:
		return "invalid API key"
	case constants.ErrCodeCredentialExpired:
		return "API key has expired"
	case constants.ErrCodeInsufficientScope:
		return "API key lacks the required scope"
	case constants.ErrCodeRateLimitExceeded:
		return "rate limit exceeded"
	default:
		return "authentication service error"
	}
}
