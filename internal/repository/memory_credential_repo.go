package repository

import (
	"context"
	"sync"
)

// MemoryCredentialRepo はインメモリのクレデンシャルリポジトリ。
// DATABASE_URL未設定の開発環境およびテストで使用する。
// プロセス再起動でログイン状態は失われる。
type MemoryCredentialRepo struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryCredentialRepo はMemoryCredentialRepoを生成する。
func NewMemoryCredentialRepo() *MemoryCredentialRepo {
	return &MemoryCredentialRepo{values: make(map[string]string)}
}

// Get は保存済みクレデンシャルを返す。存在しない場合は空文字列を返す。
func (r *MemoryCredentialRepo) Get(ctx context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[key], nil
}

// Set はクレデンシャルを保存する。既存の値は上書きされる。
func (r *MemoryCredentialRepo) Set(ctx context.Context, key, credential string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = credential
	return nil
}

// Remove は保存済みクレデンシャルを削除する。存在しない場合も成功扱い。
func (r *MemoryCredentialRepo) Remove(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
	return nil
}

// Len は保存中のエントリ数を返す。テスト用。
func (r *MemoryCredentialRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}

// compile-time interface check
var _ CredentialRepository = (*MemoryCredentialRepo)(nil)
