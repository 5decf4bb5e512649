// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/storefront/internal/browser"
)

const browserCookieName = "storefront_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// browserStateContextKey はリクエストコンテキストにブラウザ状態を格納するためのキー。
var browserStateContextKey = contextKey("browser_state")

// StateAcquirer はブラウザセッションIDからStateを取得するインターフェース。
// browser.Managerが実装する。
type StateAcquirer interface {
	Acquire(id string) *browser.State
}

// BrowserSessionConfig はブラウザセッションCookieの設定。
type BrowserSessionConfig struct {
	CookieSecure bool
	CookieDomain string
	MaxAge       int // 秒
}

// NewBrowserSessionMiddleware はブラウザセッションCookieを読み取り、
// 対応するブラウザ状態をリクエストコンテキストに注入するミドルウェアを返す。
// Cookieが未設定の場合は新しいセッションIDを発行する。
// 保存済みクレデンシャルの復元もここで行うため、後続のハンドラーは
// 常に解決済みのセッションを参照できる。
func NewBrowserSessionMiddleware(states StateAcquirer, config BrowserSessionConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cookie, err := r.Cookie(browserCookieName); err == nil {
				id = cookie.Value
			}

			if id == "" {
				id = browser.NewID()
				http.SetCookie(w, &http.Cookie{
					Name:     browserCookieName,
					Value:    id,
					Path:     "/",
					Domain:   config.CookieDomain,
					MaxAge:   config.MaxAge,
					HttpOnly: true,
					Secure:   config.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			state := states.Acquire(id)

			if err := state.Session.Restore(r.Context()); err != nil {
				slog.Error("failed to restore session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			ctx := context.WithValue(r.Context(), browserStateContextKey, state)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StateFromContext はリクエストコンテキストからブラウザ状態を取得する。
// ブラウザセッションミドルウェアを通過したリクエストでのみ有効。
func StateFromContext(ctx context.Context) (*browser.State, error) {
	state, ok := ctx.Value(browserStateContextKey).(*browser.State)
	if !ok || state == nil {
		return nil, fmt.Errorf("browser state not found in context")
	}
	return state, nil
}

// ContextWithState はコンテキストにブラウザ状態を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithState(ctx context.Context, state *browser.State) context.Context {
	return context.WithValue(ctx, browserStateContextKey, state)
}
