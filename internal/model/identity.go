// Package model はドメインモデルを定義する。
package model

import "time"

// Role はビューやアクションへのアクセスを制御するロールタグを表す。
// 意味を持つのは RoleAdmin と RoleClient の2つのみで、
// どちらも持たないユーザーはゲストとして扱われる。
type Role string

const (
	// RoleAdmin は管理者ロール。カタログCRUDと全注文の閲覧が許可される。
	RoleAdmin Role = "admin"
	// RoleClient は購入者ロール。カタログ閲覧とカート・注文操作が許可される。
	RoleClient Role = "client"
)

// Identity はBearerクレデンシャルから復号したログイン中ユーザーの識別情報を表す。
// クレデンシャル文字列そのもの（RawCredential）は上流APIへの認証にのみ使用し、
// クレームの内容はあくまで表示・ナビゲーション判定用の参考値として扱う。
type Identity struct {
	Username      string
	Email         string
	Roles         []Role
	RawCredential string
	ExpiresAt     time.Time
	DerivedAt     time.Time
}

// HasRole は指定ロールを保持しているかを返す。
// レシーバーがnilの場合（未ログイン）は常にfalseを返し、panicしない。
func (i *Identity) HasRole(role Role) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin は管理者ロールを保持しているかを返す。
func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

// IsClient は購入者ロールを保持しているかを返す。
func (i *Identity) IsClient() bool {
	return i.HasRole(RoleClient)
}
