package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierd/courierd/internal/application/dto"
	"github.com/courierd/courierd/pkg/constants"
	"github.com/courierd/courierd/pkg/logger"
)

// stubValidation captures the request the middleware builds and returns a
// canned result.
type stubValidation struct {
	lastReq *dto.ValidateKeyRequest
	result  *dto.ValidationResult
}

func (s *stubValidation) Validate(_ context.Context, req *dto.ValidateKeyRequest) *dto.ValidationResult {
	s.lastReq = req
	return s.result
}

func validResult() *dto.ValidationResult {
	return &dto.ValidationResult{
		Valid: true,
		Key:   &dto.KeyView{ID: "key-1", Scopes: []string{constants.ScopeNotificationsCreate}},
	}
}

func newAuthTestRouter(stub *stubValidation) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected",
		RequireAPIKey(stub, constants.ScopeNotificationsCreate, logger.NewNoopLogger()),
		func(c *gin.Context) {
			key, ok := KeyFromContext(c)
			if !ok {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, gin.H{"key_id": key.ID})
		})
	return r
}

func doRequest(r *gin.Engine, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAPIKey_MissingCredential(t *testing.T) {
	stub := &stubValidation{result: validResult()}
	w := doRequest(newAuthTestRouter(stub), nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), string(constants.ErrCodeMissingCredential))
	assert.Nil(t, stub.lastReq, "pipeline must not run without a credential")
}

func TestRequireAPIKey_CredentialSourcePriority(t *testing.T) {
	stub := &stubValidation{result: validResult()}
	r := newAuthTestRouter(stub)

	// All three sources present: the dedicated header wins.
	w := doRequest(r, func(req *http.Request) {
		req.Header.Set(constants.HeaderAPIKey, "from-header")
		req.Header.Set(constants.HeaderAuthorization, "Bearer from-bearer")
		q := req.URL.Query()
		q.Set(constants.QueryParamAPIKey, "from-query")
		req.URL.RawQuery = q.Encode()
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "from-header", stub.lastReq.Credential)
	assert.False(t, stub.lastReq.FromQueryParam)

	// Bearer beats the query parameter.
	doRequest(r, func(req *http.Request) {
		req.Header.Set(constants.HeaderAuthorization, "Bearer from-bearer")
		q := req.URL.Query()
		q.Set(constants.QueryParamAPIKey, "from-query")
		req.URL.RawQuery = q.Encode()
	})
	assert.Equal(t, "from-bearer", stub.lastReq.Credential)
	assert.False(t, stub.lastReq.FromQueryParam)

	// Query parameter is last and gets flagged.
	doRequest(r, func(req *http.Request) {
		q := req.URL.Query()
		q.Set(constants.QueryParamAPIKey, "from-query")
		req.URL.RawQuery = q.Encode()
	})
	assert.Equal(t, "from-query", stub.lastReq.Credential)
	assert.True(t, stub.lastReq.FromQueryParam)
}

func TestRequireAPIKey_ClientIPPriority(t *testing.T) {
	stub := &stubValidation{result: validResult()}
	r := newAuthTestRouter(stub)

	doRequest(r, func(req *http.Request) {
		req.Header.Set(constants.HeaderAPIKey, "k")
		req.Header.Set(constants.HeaderForwardedFor, "198.51.100.9, 10.0.0.1")
		req.Header.Set(constants.HeaderRealIP, "203.0.113.5")
	})
	assert.Equal(t, "198.51.100.9", stub.lastReq.ClientIP)

	doRequest(r, func(req *http.Request) {
		req.Header.Set(constants.HeaderAPIKey, "k")
		req.Header.Set(constants.HeaderRealIP, "203.0.113.5")
	})
	assert.Equal(t, "203.0.113.5", stub.lastReq.ClientIP)

	// httptest sets a RemoteAddr, so the fallback is the peer address.
	doRequest(r, func(req *http.Request) {
		req.Header.Set(constants.HeaderAPIKey, "k")
	})
	assert.Equal(t, "192.0.2.1", stub.lastReq.ClientIP)
}

func TestRequireAPIKey_RequestIDPropagated(t *testing.T) {
	stub := &stubValidation{result: validResult()}
	r := newAuthTestRouter(stub)

	w := doRequest(r, func(req *http.Request) {
		req.Header.Set(constants.HeaderAPIKey, "k")
		req.Header.Set(constants.HeaderRequestID, "caller-id-1")
	})
	assert.Equal(t, "caller-id-1", stub.lastReq.RequestID)
	assert.Equal(t, "caller-id-1", w.Header().Get(constants.HeaderRequestID))

	// Without a caller id one is generated and echoed back.
	w = doRequest(r, func(req *http.Request) {
		req.Header.Set(constants.HeaderAPIKey, "k")
	})
	assert.NotEmpty(t, stub.lastReq.RequestID)
	assert.Equal(t, stub.lastReq.RequestID, w.Header().Get(constants.HeaderRequestID))
}

func TestRequireAPIKey_DenialStatusMapping(t *testing.T) {
	cases := []struct {
		reason constants.ErrorCode
		status int
	}{
		{constants.ErrCodeInvalidFormat, http.StatusBadRequest},
		{constants.ErrCodeInvalidCredential, http.StatusUnauthorized},
		{constants.ErrCodeCredentialExpired, http.StatusUnauthorized},
		{constants.ErrCodeInsufficientScope, http.StatusForbidden},
		{constants.ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{constants.ErrCodeAuthError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.reason), func(t *testing.T) {
			stub := &stubValidation{result: dto.Denied(tc.reason)}
			w := doRequest(newAuthTestRouter(stub), func(req *http.Request) {
				req.Header.Set(constants.HeaderAPIKey, "k")
			})
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), string(tc.reason))
		})
	}
}

func TestRequireAPIKey_RateLimitHeaders(t *testing.T) {
	resetAt := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	denied := dto.Denied(constants.ErrCodeRateLimitExceeded)
	denied.RateLimit = &dto.RateLimitStatus{
		Window:    constants.RateWindowHourly,
		Limit:     1000,
		Remaining: 0,
		ResetAt:   resetAt,
	}
	stub := &stubValidation{result: denied}

	w := doRequest(newAuthTestRouter(stub), func(req *http.Request) {
		req.Header.Set(constants.HeaderAPIKey, "k")
	})

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1000", w.Header().Get(constants.HeaderRateLimitLimit))
	assert.Equal(t, "0", w.Header().Get(constants.HeaderRateLimitRemaining))
	assert.NotEmpty(t, w.Header().Get(constants.HeaderRateLimitReset))
}

func TestRequireAPIKey_AttachesSanitizedKey(t *testing.T) {
	stub := &stubValidation{result: validResult()}

	w := doRequest(newAuthTestRouter(stub), func(req *http.Request) {
		req.Header.Set(constants.HeaderAPIKey, "k")
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "key-1")
}
