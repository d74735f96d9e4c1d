package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/olegkanal/taskapp/internal/auth"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authService, err := auth.NewService("test-secret", 0)
	if err != nil {
		t.Fatalf("failed to create auth service: %v", err)
	}

	store := newMemStore()
	handler := NewHandler(authService, store, nil, zap.NewNop())

	router := gin.New()
	router.Use(Recovery(zap.NewNop()))
	handler.RegisterRoutes(router)

	return router, store
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	req, err := http.NewRequest(method, path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func newAuthRequest(t *testing.T, method, path, token string, body any) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = newJSONRequest(t, method, path, body)
	} else {
		var err error
		req, err = http.NewRequest(method, path, nil)
		if err != nil {
			t.Fatalf("failed to create request: %v", err)
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decodeBody(t *testing.T, data []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode response %q: %v", data, err)
	}
}

func perform(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// signupUser registers an account and returns the issued session token.
func signupUser(t *testing.T, router *gin.Engine, email, password string) string {
	t.Helper()

	rec := perform(router, newJSONRequest(t, http.MethodPost, "/users/signup", map[string]any{
		"name":     "Test User",
		"email":    email,
		"password": password,
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup for %s: expected 201, got %d (%s)", email, rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp.Token == "" {
		t.Fatalf("signup for %s: expected token in response", email)
	}
	return resp.Token
}
