package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/browser"
	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/order"
	"github.com/hitoshi/storefront/internal/session"
	"github.com/hitoshi/storefront/internal/upstream"
)

// mintCredential はテスト用のアクセスクレデンシャルを生成する。
func mintCredential(t *testing.T, username string, roles []string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"preferred_username": username,
		"email":              username + "@example.com",
		"realm_access":       map[string]any{"roles": roles},
		"exp":                time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("クレデンシャル生成に失敗: %v", err)
	}
	return raw
}

// memStore はテスト用のインメモリクレデンシャルストア。
type memStore struct {
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (m *memStore) Get(ctx context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memStore) Set(ctx context.Context, key, credential string) error {
	m.values[key] = credential
	return nil
}

func (m *memStore) Remove(ctx context.Context, key string) error {
	delete(m.values, key)
	return nil
}

// fakeExchanger はテスト用のTokenExchanger。
type fakeExchanger struct {
	credential string
	err        error
}

func (f *fakeExchanger) Exchange(ctx context.Context, username, password string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.credential, nil
}

// testEnv はハンドラーテスト用のブラウザ状態一式。
type testEnv struct {
	state *browser.State
	store *memStore
}

// newTestState はテスト用のブラウザ状態を組み立てる。
// rolesがnilの場合は未ログイン状態となる。
func newTestState(t *testing.T, upstreamServer *httptest.Server, exchanger session.TokenExchanger, roles []string) *testEnv {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	httpClient := http.DefaultClient
	baseURL := "http://upstream.example.test"
	if upstreamServer != nil {
		httpClient = upstreamServer.Client()
		baseURL = upstreamServer.URL
	}
	if exchanger == nil {
		exchanger = &fakeExchanger{}
	}

	store := newMemStore()
	sess := session.New("browser-test", store, exchanger)

	if roles != nil {
		store.Set(context.Background(), "browser-test", mintCredential(t, "taro", roles))
	}
	if err := sess.Restore(context.Background()); err != nil {
		t.Fatalf("セッション復元に失敗: %v", err)
	}

	client := upstream.NewClient(httpClient, logger, metrics.Nop{}, baseURL)
	bound := client.Bind(sess)
	cartStore := cart.NewStore()

	return &testEnv{
		state: &browser.State{
			ID:        "browser-test",
			Session:   sess,
			Cart:      cartStore,
			Submitter: order.NewSubmitter(bound, cartStore, metrics.Nop{}, time.Hour),
			Upstream:  bound,
		},
		store: store,
	}
}

// newHandlerRouter はブラウザ状態を注入するルーターを組み立てる。
func newHandlerRouter(state *browser.State, register func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.ContextWithState(req.Context(), state)))
		})
	})
	register(r)
	return r
}
