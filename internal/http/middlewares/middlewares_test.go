package middlewares_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medicareprima/clinic-api/internal/auth"
	"github.com/medicareprima/clinic-api/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f *fakeVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func protectedRouter(v middlewares.TokenVerifier, requiredRole string) *gin.Engine {
	mw := middlewares.NewAuthMiddleware(v)

	r := gin.New()

	chain := []gin.HandlerFunc{mw.RequireAuth()}
	if requiredRole != "" {
		chain = append(chain, mw.RequireRole(requiredRole))
	}

	handlers := append(chain, func(c *gin.Context) {
		id, _ := middlewares.UserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	r.GET("/protected", handlers...)

	return r
}

func get(r *gin.Engine, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	valid := &fakeVerifier{claims: &auth.Claims{UserID: "u1", Email: "a@b.c", Role: "PATIENT"}}

	tests := []struct {
		name       string
		verifier   middlewares.TokenVerifier
		header     map[string]string
		wantStatus int
	}{
		{name: "no header", verifier: valid, wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", verifier: valid, header: map[string]string{"Authorization": "Basic abc"}, wantStatus: http.StatusUnauthorized},
		{name: "empty token", verifier: valid, header: map[string]string{"Authorization": "Bearer "}, wantStatus: http.StatusUnauthorized},
		{
			name:       "verifier rejects",
			verifier:   &fakeVerifier{err: errors.New("expired")},
			header:     map[string]string{"Authorization": "Bearer whatever"},
			wantStatus: http.StatusUnauthorized,
		},
		{name: "valid token", verifier: valid, header: map[string]string{"Authorization": "Bearer good"}, wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := protectedRouter(tc.verifier, "")

			w := get(r, "/protected", tc.header)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body: %s", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		required   string
		wantStatus int
	}{
		{name: "matching role", role: "ADMIN", required: "ADMIN", wantStatus: http.StatusOK},
		{name: "insufficient role", role: "PATIENT", required: "ADMIN", wantStatus: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := &fakeVerifier{claims: &auth.Claims{UserID: "u1", Role: tc.role}}

			r := protectedRouter(v, tc.required)

			w := get(r, "/protected", map[string]string{"Authorization": "Bearer good"})

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := middlewares.NewRateLimiter(2, time.Minute)

	r := gin.New()
	r.GET("/login", rl.Middleware(middlewares.KeyByIP), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := get(r, "/login", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	w := get(r, "/login", nil)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}

	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	// POST without JSON content type is rejected
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", w.Code)
	}

	// GET is exempt
	if w := get(r, "/x", nil); w.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", w.Code)
	}

	// charset suffix is fine
	req = httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	// inbound id is echoed
	w := get(r, "/x", map[string]string{"X-Request-Id": "req-42"})

	if got := w.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("request id = %q, want req-42", got)
	}

	// absent id is minted
	w = get(r, "/x", nil)

	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}
}
