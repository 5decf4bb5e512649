package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/storefront/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestClient_Exchange_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("HTTPメソッド = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %s, want application/x-www-form-urlencoded", ct)
		}

		if err := r.ParseForm(); err != nil {
			t.Fatalf("フォームのパースに失敗: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "password" {
			t.Errorf("grant_type = %s, want password", got)
		}
		if got := r.PostForm.Get("client_id"); got != "product-service" {
			t.Errorf("client_id = %s, want product-service", got)
		}
		if got := r.PostForm.Get("client_secret"); got != "secret" {
			t.Errorf("client_secret = %s, want secret", got)
		}
		if got := r.PostForm.Get("username"); got != "alice" {
			t.Errorf("username = %s, want alice", got)
		}
		if got := r.PostForm.Get("password"); got != "pw" {
			t.Errorf("password = %s, want pw", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "token-123"})
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), server.URL, "product-service", "secret")

	token, err := c.Exchange(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Exchange がエラーを返した: %v", err)
	}
	if token != "token-123" {
		t.Errorf("token = %s, want token-123", token)
	}
}

func TestClient_Exchange_RejectedWithDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid user credentials",
		})
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), server.URL, "id", "secret")

	_, err := c.Exchange(context.Background(), "alice", "wrong")
	if err == nil {
		t.Fatal("認証拒否なのにエラーが返らなかった")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorではないエラーが返った: %v", err)
	}
	if apiErr.Code != model.ErrCodeLoginFailed {
		t.Errorf("Code = %s, want %s", apiErr.Code, model.ErrCodeLoginFailed)
	}
	if !strings.Contains(apiErr.Message, "Invalid user credentials") {
		t.Errorf("サーバーのerror_descriptionがメッセージに含まれない: %s", apiErr.Message)
	}
}

func TestClient_Exchange_RejectedWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), server.URL, "id", "secret")

	_, err := c.Exchange(context.Background(), "alice", "pw")
	if err == nil {
		t.Fatal("エラー応答なのにエラーが返らなかった")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorではないエラーが返った: %v", err)
	}
	// error_descriptionがない場合は汎用メッセージにフォールバックする
	if apiErr.Message == "" {
		t.Error("汎用メッセージへのフォールバックが働いていない")
	}
}

func TestClient_Exchange_MissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token_type": "Bearer"})
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), server.URL, "id", "secret")

	if _, err := c.Exchange(context.Background(), "alice", "pw"); err == nil {
		t.Fatal("access_tokenのない応答でエラーが返らなかった")
	}
}
