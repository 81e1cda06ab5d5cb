package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debate-platform-backend/internal/common/errors"
)

type fakeVerifier map[string]struct {
	id   int64
	role string
}

func (f fakeVerifier) VerifyAccessToken(token string) (int64, string, error) {
	v, ok := f[token]
	if !ok {
		return 0, "", fmt.Errorf("unknown token")
	}
	return v.id, v.role, nil
}

type fakeBans map[int64]bool

func (f fakeBans) IsBanned(_ context.Context, id int64) (bool, error) { return f[id], nil }

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	verifier := fakeVerifier{
		"user-token":   {id: 7, role: RoleUser},
		"admin-token":  {id: 1, role: RoleAdmin},
		"banned-token": {id: 9, role: RoleUser},
	}

	r := gin.New()
	r.Use(RequestID(), ErrorHandler(), Recovery())

	authed := r.Group("/", RequireAuth(verifier), CheckBanned(fakeBans{9: true}))
	authed.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUserID(c)})
	})
	authed.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := newTestRouter()

	t.Run("missing token", func(t *testing.T) {
		w := do(r, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, "UNAUTHORIZED", string(body.Error.Code))
		assert.NotEmpty(t, body.RequestID)
	})

	t.Run("invalid token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "nope").Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := do(r, "/me", "user-token")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":7}`, w.Body.String())
	})

	t.Run("banned user", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, do(r, "/me", "banned-token").Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", "user-token").Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", "admin-token").Code)
}

func TestRecovery(t *testing.T) {
	r := newTestRouter()

	w := do(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code errors.ErrorCode
		want int
	}{
		{errors.ErrCodeValidation, http.StatusBadRequest},
		{errors.ErrCodeUserNotFound, http.StatusNotFound},
		{errors.ErrCodeUserBanned, http.StatusForbidden},
		{errors.ErrCodeRequestNotPending, http.StatusConflict},
		{errors.ErrCodeTooLarge, http.StatusRequestEntityTooLarge},
		{errors.ErrCodeTransactionFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(errors.New(tt.code, "x")), tt.code)
	}
}
