// Package guard はビューごとのアクセス制御判定を提供する。
// ブラウザ側のルーターはビューを描画する前にここへ問い合わせ、
// 判定に従って描画・リダイレクト・ローディング表示を選択する。
package guard

import (
	"github.com/hitoshi/storefront/internal/model"
)

// Decision はビューへのアクセス判定の結果を表す。
type Decision string

const (
	// DecisionLoading はセッション復元が未完了で判定を保留する状態。
	// ブラウザ側はリダイレクトせずローディング表示を維持する。
	DecisionLoading Decision = "loading"
	// DecisionAllowed はビューの描画を許可する判定。
	DecisionAllowed Decision = "allowed"
	// DecisionRedirectLogin は未ログインのためログイン画面へ誘導する判定。
	DecisionRedirectLogin Decision = "redirect_login"
	// DecisionRedirectHome はログイン済みだが必要ロールを欠くため
	// ホーム画面へ誘導する判定。
	DecisionRedirectHome Decision = "redirect_home"
)

// RedirectTarget は判定に対応するリダイレクト先パスを返す。
// リダイレクトを伴わない判定では空文字列を返す。
func (d Decision) RedirectTarget() string {
	switch d {
	case DecisionRedirectLogin:
		return "/login"
	case DecisionRedirectHome:
		return "/products"
	default:
		return ""
	}
}

// View は1つの画面とそのアクセス要件を表す。
type View struct {
	// Path はビューのパス。ビュー登録のキーとなる。
	Path string `json:"path"`
	// RequiresAuth はログイン済みでなければ描画できないビューか。
	RequiresAuth bool `json:"requiresAuth"`
	// RequiredRole は描画に必要なロール。空の場合はロール不問。
	RequiredRole model.Role `json:"requiredRole,omitempty"`
}

// SessionState はアクセス判定に必要なセッション状態の読み取りインターフェース。
// session.Sessionが実装する。
type SessionState interface {
	// Resolved は保存済みクレデンシャルの復元試行が完了しているかを返す。
	Resolved() bool
	// Current は現在のIdentityを返す。未ログインの場合はnilを返す。
	Current() *model.Identity
}

// Registry は登録済みビューの集合。
type Registry struct {
	views map[string]View
}

// NewRegistry は指定ビューを登録したRegistryを生成する。
func NewRegistry(views ...View) *Registry {
	r := &Registry{views: make(map[string]View, len(views))}
	for _, v := range views {
		r.views[v.Path] = v
	}
	return r
}

// DefaultViews はストアフロントの全ビュー定義を返す。
func DefaultViews() []View {
	return []View{
		{Path: "/login"},
		{Path: "/products", RequiresAuth: true},
		{Path: "/orders", RequiresAuth: true},
		{Path: "/admin/products", RequiresAuth: true, RequiredRole: model.RoleAdmin},
		{Path: "/admin/orders", RequiresAuth: true, RequiredRole: model.RoleAdmin},
	}
}

// Lookup は指定パスのビュー定義を返す。
func (r *Registry) Lookup(path string) (View, bool) {
	v, ok := r.views[path]
	return v, ok
}

// Decide は指定ビューへのアクセス判定を返す。
//
// 公開ビューはセッション状態に関わらず常に許可する。
// 保護ビューはセッション復元が完了するまでLoadingを返し、
// 早まったログインリダイレクトを防ぐ。復元完了後は、未ログインなら
// ログイン画面へ、必要ロールを欠くならホーム画面へ誘導する。
func (r *Registry) Decide(path string, sess SessionState) (Decision, error) {
	view, ok := r.Lookup(path)
	if !ok {
		return "", model.NewViewNotFoundError()
	}

	if !view.RequiresAuth {
		return DecisionAllowed, nil
	}

	if !sess.Resolved() {
		return DecisionLoading, nil
	}

	identity := sess.Current()
	if identity == nil {
		return DecisionRedirectLogin, nil
	}

	if view.RequiredRole != "" && !identity.HasRole(view.RequiredRole) {
		return DecisionRedirectHome, nil
	}

	return DecisionAllowed, nil
}
