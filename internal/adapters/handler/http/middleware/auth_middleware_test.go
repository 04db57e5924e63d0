package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	tokens map[string]string
	calls  int
}

func (s *stubValidator) ValidateToken(_ context.Context, token string) (string, error) {
	s.calls++
	if id, ok := s.tokens[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Parallel()

	setupRouter := func(v TokenValidator, trustHeader bool) *gin.Engine {
		router := gin.New()
		router.Use(AuthMiddleware(v, trustHeader))
		router.GET("/protected", func(c *gin.Context) {
			userID, ok := GetUserID(c)
			if !ok {
				c.String(http.StatusInternalServerError, "UserID not found in context")
				return
			}
			c.String(http.StatusOK, "Hello "+userID)
		})
		return router
	}

	serve := func(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Success: Valid Token", func(t *testing.T) {
		t.Parallel()
		v := &stubValidator{tokens: map[string]string{"good": "user-123"}}

		w := serve(setupRouter(v, false), map[string]string{"Authorization": "Bearer good"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Hello user-123", w.Body.String())
	})

	t.Run("Fail: Missing Authorization Header", func(t *testing.T) {
		t.Parallel()

		w := serve(setupRouter(&stubValidator{}, false), nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "authorization header required")
	})

	t.Run("Fail: Invalid Header Format", func(t *testing.T) {
		t.Parallel()
		v := &stubValidator{tokens: map[string]string{"good": "user-123"}}
		router := setupRouter(v, false)

		for _, h := range []string{"Bearer", "Token good", "Bearergood", "Bearer ", "Bearer good extra"} {
			w := serve(router, map[string]string{"Authorization": h})
			assert.Equal(t, http.StatusUnauthorized, w.Code, "Should fail for header: "+h)
		}
		assert.Zero(t, v.calls)
	})

	t.Run("Fail: Rejected Token", func(t *testing.T) {
		t.Parallel()

		w := serve(setupRouter(&stubValidator{}, false), map[string]string{"Authorization": "Bearer forged"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid or expired token")
	})

	t.Run("Internal: X-User-ID accepted only when trusted", func(t *testing.T) {
		t.Parallel()

		trusted := serve(setupRouter(&stubValidator{}, true), map[string]string{"X-User-ID": "svc-user"})
		untrusted := serve(setupRouter(&stubValidator{}, false), map[string]string{"X-User-ID": "svc-user"})

		assert.Equal(t, http.StatusOK, trusted.Code)
		assert.Equal(t, "Hello svc-user", trusted.Body.String())
		assert.Equal(t, http.StatusUnauthorized, untrusted.Code)
	})

	t.Run("Precedence: A bad token is not rescued by X-User-ID", func(t *testing.T) {
		t.Parallel()

		w := serve(setupRouter(&stubValidator{}, true), map[string]string{
			"Authorization": "Bearer forged",
			"X-User-ID":     "svc-user",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
