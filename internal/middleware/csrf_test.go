package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func csrfTestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCSRFMiddleware_SafeMethod_SkipsValidation(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})
	handler := mw(csrfTestHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("GETリクエストが拒否された: status = %d", rec.Code)
	}

	// トークンCookieが設定される
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf_token" && c.Value != "" {
			found = true
			if c.HttpOnly {
				t.Error("CSRFトークンCookieがHttpOnlyになっている")
			}
		}
	}
	if !found {
		t.Error("CSRFトークンCookieが設定されていない")
	}
}

func TestCSRFMiddleware_MutatingMethod_MissingToken(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})
	handler := mw(csrfTestHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", nil))

	if rec.Code != http.StatusForbidden {
		t.Errorf("トークンなしPOSTのstatus = %d, want %d", rec.Code, http.StatusForbidden)
	}

	var body ErrorResponseBody
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Code != "CSRF_VALIDATION_FAILED" {
		t.Errorf("code = %s, want CSRF_VALIDATION_FAILED", body.Code)
	}
}

func TestCSRFMiddleware_MutatingMethod_TokenMismatch(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})
	handler := mw(csrfTestHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-a"})
	req.Header.Set("X-CSRF-Token", "token-b")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("不一致トークンのstatus = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestCSRFMiddleware_MutatingMethod_ValidToken(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})
	handler := mw(csrfTestHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-a"})
	req.Header.Set("X-CSRF-Token", "token-a")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("正しいトークンのPOSTが拒否された: status = %d", rec.Code)
	}
}

func TestCSRFTokenHandler_IssuesToken(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのデコードに失敗: %v", err)
	}
	if body["token"] == "" {
		t.Error("トークンが返されていない")
	}

	var cookieValue string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf_token" {
			cookieValue = c.Value
		}
	}
	if cookieValue != body["token"] {
		t.Error("Cookie値とレスポンストークンが一致しない")
	}
}

func TestCSRFTokenHandler_ReturnsExistingToken(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "existing-token"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["token"] != "existing-token" {
		t.Errorf("token = %s, want existing-token", body["token"])
	}
}
