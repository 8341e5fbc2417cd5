package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newRouter serves "ok" on GET /test behind the given middleware.
func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw...)
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeyAPIKey))
	})
	return router
}

func serve(router *gin.Engine, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPIKeyAuth(t *testing.T) {
	router := newRouter(APIKeyAuth([]string{"key-1", "key-2"}))

	tests := []struct {
		name     string
		target   string
		header   http.Header
		wantCode int
		wantKey  string
	}{
		{"header", "/test", http.Header{"X-Api-Key": {"key-1"}}, http.StatusOK, "key-1"},
		{"query param", "/test?api_key=key-2", nil, http.StatusOK, "key-2"},
		{"header wins over query", "/test?api_key=nope", http.Header{"X-Api-Key": {"key-2"}}, http.StatusOK, "key-2"},
		{"missing", "/test", nil, http.StatusUnauthorized, ""},
		{"invalid", "/test", http.Header{"X-Api-Key": {"wrong"}}, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodGet, tt.target, tt.header)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if tt.wantCode == http.StatusOK && w.Body.String() != tt.wantKey {
				t.Errorf("expected key %q in context, got %q", tt.wantKey, w.Body.String())
			}
		})
	}
}

func TestAPIKeyAuth_NoKeysConfigured(t *testing.T) {
	router := newRouter(APIKeyAuth(nil))

	w := serve(router, http.MethodGet, "/test", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected open access, got %d", w.Code)
	}
}

func TestAdminKeyAuth(t *testing.T) {
	router := newRouter(AdminKeyAuth([]string{"admin-key"}))

	tests := []struct {
		name     string
		header   http.Header
		wantCode int
	}{
		{"valid", http.Header{"X-Api-Key": {"admin-key"}}, http.StatusOK},
		{"missing", nil, http.StatusUnauthorized},
		{"not an admin key", http.Header{"X-Api-Key": {"user-key"}}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodGet, "/test", tt.header)
			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}
