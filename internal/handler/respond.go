// Package handler はストアフロントAPIのHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/storefront/internal/browser"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// unauthorizedError は未ログインアクセスの統一エラーレスポンス。
func unauthorizedError() *model.APIError {
	return &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// forbiddenError は権限不足アクセスの統一エラーレスポンス。
func forbiddenError() *model.APIError {
	return &model.APIError{
		Code:     "FORBIDDEN",
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// requireState はリクエストコンテキストからブラウザ状態を取得する。
// 取得できない場合は500を書き込みfalseを返す。
func requireState(w http.ResponseWriter, r *http.Request) (*browser.State, bool) {
	state, err := middleware.StateFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return nil, false
	}
	return state, true
}

// requireIdentity はログイン済みのブラウザ状態を取得する。
// 未ログインの場合は401を書き込みfalseを返す。
func requireIdentity(w http.ResponseWriter, r *http.Request) (*browser.State, *model.Identity, bool) {
	state, ok := requireState(w, r)
	if !ok {
		return nil, nil, false
	}

	identity := state.Session.Current()
	if identity == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return nil, nil, false
	}

	return state, identity, true
}

// requireAdmin は管理者ロールを持つブラウザ状態を取得する。
// 未ログインの場合は401、ロール不足の場合は403を書き込みfalseを返す。
func requireAdmin(w http.ResponseWriter, r *http.Request) (*browser.State, *model.Identity, bool) {
	state, identity, ok := requireIdentity(w, r)
	if !ok {
		return nil, nil, false
	}

	if !identity.IsAdmin() {
		middleware.WriteErrorResponse(w, http.StatusForbidden, forbiddenError())
		return nil, nil, false
	}

	return state, identity, true
}
