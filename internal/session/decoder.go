// Package session はBearerクレデンシャルから導出する認証状態の管理を提供する。
// クレデンシャルの保存・復元、パスワードグラントによるログイン交換、
// ロール述語、および認可失効時の全体破棄を含む。
package session

import (
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/hitoshi/storefront/internal/model"
)

// credentialClaims はアクセストークンから読み取るクレームの部分集合。
// Keycloakのアクセストークン形式（preferred_username, realm_access.roles, email）に従う。
type credentialClaims struct {
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	jwt.StandardClaims
}

// Decode はクレデンシャル文字列からIdentityを導出する。
// 署名検証は行わない。クレームはナビゲーション判定と表示にのみ使用し、
// 認可の正は常に上流API側の検証にある。
// 形式が不正な場合はCREDENTIAL_DECODE_FAILEDを返す。
func Decode(rawCredential string) (*model.Identity, error) {
	if rawCredential == "" {
		return nil, model.NewCredentialDecodeError()
	}

	claims := &credentialClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(rawCredential, claims); err != nil {
		return nil, model.NewCredentialDecodeError()
	}

	roles := make([]model.Role, 0, len(claims.RealmAccess.Roles))
	for _, r := range claims.RealmAccess.Roles {
		roles = append(roles, model.Role(r))
	}

	var expiresAt time.Time
	if claims.ExpiresAt > 0 {
		expiresAt = time.Unix(claims.ExpiresAt, 0)
	}

	return &model.Identity{
		Username:      claims.PreferredUsername,
		Email:         claims.Email,
		Roles:         roles,
		RawCredential: rawCredential,
		ExpiresAt:     expiresAt,
		DerivedAt:     time.Now(),
	}, nil
}
