package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresCredentialRepo はPostgreSQLを使用したクレデンシャルリポジトリ。
// ブラウザセッションの状態がプロセス再起動やTTL回収で失われても、
// ここに保存されたクレデンシャルからログイン状態を復元できる。
type PostgresCredentialRepo struct {
	db *sql.DB
}

// NewPostgresCredentialRepo はPostgresCredentialRepoを生成する。
func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

// Get は保存済みクレデンシャルを返す。存在しない場合は空文字列を返す。
func (r *PostgresCredentialRepo) Get(ctx context.Context, key string) (string, error) {
	var credential string
	err := r.db.QueryRowContext(ctx,
		`SELECT credential FROM browser_credentials WHERE session_key = $1`,
		key,
	).Scan(&credential)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find credential: %w", err)
	}

	return credential, nil
}

// Set はクレデンシャルを保存する。既存の値は上書きされる。
func (r *PostgresCredentialRepo) Set(ctx context.Context, key, credential string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO browser_credentials (session_key, credential, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (session_key)
		 DO UPDATE SET credential = EXCLUDED.credential, updated_at = now()`,
		key, credential,
	)
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Remove は保存済みクレデンシャルを削除する。存在しない場合も成功扱い。
func (r *PostgresCredentialRepo) Remove(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM browser_credentials WHERE session_key = $1`,
		key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// DeleteStale は最終更新からmaxAge秒を超えた行を削除する。
// 放棄されたブラウザセッションのクレデンシャルを残さないための定期処理。
func (r *PostgresCredentialRepo) DeleteStale(ctx context.Context, maxAgeSeconds int) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM browser_credentials
		 WHERE updated_at < now() - ($1 * interval '1 second')`,
		maxAgeSeconds,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale credentials: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted credentials: %w", err)
	}
	return affected, nil
}

// compile-time interface check
var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
