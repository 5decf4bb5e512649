package handler

import (
	"net/http"

	"github.com/hitoshi/storefront/internal/guard"
	"github.com/hitoshi/storefront/internal/middleware"
)

// NavigationHandler はビューアクセス判定のHTTPハンドラー。
// ブラウザ側のルーターは画面遷移のたびにここへ問い合わせる。
type NavigationHandler struct {
	registry *guard.Registry
}

// NewNavigationHandler はNavigationHandlerを生成する。
func NewNavigationHandler(registry *guard.Registry) *NavigationHandler {
	return &NavigationHandler{registry: registry}
}

// navigationResponse はアクセス判定のAPIレスポンス。
type navigationResponse struct {
	View       string         `json:"view"`
	Decision   guard.Decision `json:"decision"`
	RedirectTo string         `json:"redirectTo,omitempty"`
}

// Decide は指定ビューへのアクセス判定を返す。
// GET /api/navigation?view=
func (h *NavigationHandler) Decide(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}

	view := r.URL.Query().Get("view")

	decision, err := h.registry.Decide(view, state.Session)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, navigationResponse{
		View:       view,
		Decision:   decision,
		RedirectTo: decision.RedirectTarget(),
	})
}
