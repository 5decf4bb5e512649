package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	collector metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{collector: collector}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// identityResponse はログイン中ユーザー情報のAPIレスポンス。
type identityResponse struct {
	Username string       `json:"username"`
	Email    string       `json:"email,omitempty"`
	Roles    []model.Role `json:"roles"`
	IsAdmin  bool         `json:"isAdmin"`
}

// meResponse は認証状態確認のAPIレスポンス。
type meResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          *identityResponse `json:"user,omitempty"`
}

// newIdentityResponse はIdentityからAPIレスポンスを構築する。
func newIdentityResponse(identity *model.Identity) *identityResponse {
	roles := identity.Roles
	if roles == nil {
		roles = []model.Role{}
	}
	return &identityResponse{
		Username: identity.Username,
		Email:    identity.Email,
		Roles:    roles,
		IsAdmin:  identity.IsAdmin(),
	}
}

// Login はユーザー名とパスワードでログインする。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}
	if req.Username == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	identity, err := state.Session.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.collector.RecordLoginFailure()
		middleware.WriteAPIError(w, err)
		return
	}

	h.collector.RecordLoginSuccess()
	writeJSON(w, http.StatusOK, newIdentityResponse(identity))
}

// Logout はログアウトし、保存済みクレデンシャルを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}

	state.Session.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在の認証状態を返す。
// GET /auth/me
// 未ログインの場合もエラーではなくauthenticated=falseの200を返す。
// ブラウザ側はこの応答でナビゲーションを初期化する。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}

	identity := state.Session.Current()
	if identity == nil {
		writeJSON(w, http.StatusOK, meResponse{Authenticated: false})
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		Authenticated: true,
		User:          newIdentityResponse(identity),
	})
}
