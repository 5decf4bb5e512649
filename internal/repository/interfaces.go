// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
)

// CredentialRepository はブラウザセッションごとのアクセスクレデンシャルの
// 永続化インターフェース。キーはブラウザセッションID、値は認証サーバーが
// 発行した生のクレデンシャル文字列1件のみ。
type CredentialRepository interface {
	// Get は保存済みクレデンシャルを返す。存在しない場合は空文字列を返す。
	Get(ctx context.Context, key string) (string, error)

	// Set はクレデンシャルを保存する。既存の値は上書きされる。
	Set(ctx context.Context, key, credential string) error

	// Remove は保存済みクレデンシャルを削除する。存在しない場合も成功扱い。
	Remove(ctx context.Context, key string) error
}
