package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/storefront/internal/model"
)

// CredentialStore は生のアクセスクレデンシャル1件の永続化インターフェース。
// キーはブラウザセッションIDで、値はクレデンシャル文字列のみ。
// repository.CredentialRepositoryの部分集合として定義する。
type CredentialStore interface {
	// Get は保存済みクレデンシャルを返す。存在しない場合は空文字列を返す。
	Get(ctx context.Context, key string) (string, error)
	// Set はクレデンシャルを保存する。既存の値は上書きされる。
	Set(ctx context.Context, key, credential string) error
	// Remove は保存済みクレデンシャルを削除する。存在しない場合も成功扱い。
	Remove(ctx context.Context, key string) error
}

// TokenExchanger はパスワードグラントによるクレデンシャル交換のインターフェース。
// identity.Clientが実装する。
type TokenExchanger interface {
	// Exchange はユーザー名とパスワードをアクセスクレデンシャルに交換する。
	Exchange(ctx context.Context, username, password string) (string, error)
}

// Session は1つのブラウザセッションに紐づく認証状態を保持する。
//
// 書き込みはログイン・ログアウト・認可失効の3経路のみで、
// 読み取り（ナビゲーション判定や上流API呼び出し）と競合しないよう
// すべての状態アクセスをミューテックスで直列化する。
type Session struct {
	key       string
	store     CredentialStore
	exchanger TokenExchanger

	mu       sync.RWMutex
	current  *model.Identity
	resolved bool // 保存済みクレデンシャルの復元を試行済みか
}

// New は指定ブラウザセッションキーに紐づくSessionを生成する。
// 生成直後は未解決状態（Loading相当）であり、Restoreの呼び出しで解決される。
func New(key string, store CredentialStore, exchanger TokenExchanger) *Session {
	return &Session{
		key:       key,
		store:     store,
		exchanger: exchanger,
	}
}

// Restore は保存済みクレデンシャルから認証状態を復元する。
// クレデンシャルが存在しない場合は未ログイン状態として解決する。
// 復号に失敗した場合は保存済みクレデンシャルを破棄し、未ログイン状態として解決する
// （非致命的。ユーザーは再ログインすればよい）。
// 既に解決済みの場合は何もしない。
func (s *Session) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved {
		return nil
	}

	raw, err := s.store.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("failed to load stored credential: %w", err)
	}

	if raw == "" {
		s.resolved = true
		return nil
	}

	identity, err := Decode(raw)
	if err != nil {
		slog.Warn("stored credential is malformed, discarding",
			slog.String("session_key", s.key),
		)
		if removeErr := s.store.Remove(ctx, s.key); removeErr != nil {
			slog.Error("failed to discard malformed credential",
				slog.String("error", removeErr.Error()),
			)
		}
		s.resolved = true
		return nil
	}

	s.current = identity
	s.resolved = true
	return nil
}

// Login はパスワードグラント交換でログインする。
// 成功時はクレデンシャルを保存し、復号したIdentityを現在の状態に設定する。
// 失敗時は既存の認証状態を一切変更せずエラーを返す。
func (s *Session) Login(ctx context.Context, username, password string) (*model.Identity, error) {
	raw, err := s.exchanger.Exchange(ctx, username, password)
	if err != nil {
		return nil, err
	}

	identity, err := Decode(raw)
	if err != nil {
		// 認証サーバーが返したクレデンシャルが読めない場合は保存しない
		return nil, err
	}

	if err := s.store.Set(ctx, s.key, raw); err != nil {
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}

	s.mu.Lock()
	s.current = identity
	s.resolved = true
	s.mu.Unlock()

	slog.Info("user logged in",
		slog.String("username", identity.Username),
		slog.Int("role_count", len(identity.Roles)),
	)

	return identity, nil
}

// Logout は保存済みクレデンシャルを破棄し、認証状態を無条件にクリアする。
func (s *Session) Logout(ctx context.Context) {
	if err := s.store.Remove(ctx, s.key); err != nil {
		// クレデンシャルの削除に失敗してもメモリ上の状態はクリアする
		slog.Error("failed to remove stored credential on logout",
			slog.String("error", err.Error()),
		)
	}

	s.mu.Lock()
	s.current = nil
	s.resolved = true
	s.mu.Unlock()

	slog.Info("user logged out", slog.String("session_key", s.key))
}

// Invalidate は上流APIの認可失効（401相当）を受けて認証状態を破棄する。
// 効果はLogoutと同じだが、ユーザー操作ではなくクロスカッティングな強制破棄であることを
// 呼び出し側の意図として区別する。
func (s *Session) Invalidate(ctx context.Context) {
	slog.Warn("credential rejected by upstream, forcing logout",
		slog.String("session_key", s.key),
	)
	s.Logout(ctx)
}

// CredentialRejected は上流APIによるクレデンシャル拒否（401相当）の通知を受ける。
// upstream.Callerインターフェースの実装。
func (s *Session) CredentialRejected(ctx context.Context) {
	s.Invalidate(ctx)
}

// Current は現在のIdentityを返す。未ログインまたは未解決の場合はnilを返す。
func (s *Session) Current() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Resolved は保存済みクレデンシャルの復元試行が完了しているかを返す。
// falseの間のナビゲーション判定はLoadingとなる。
func (s *Session) Resolved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolved
}

// HasRole は現在のIdentityが指定ロールを保持しているかを返す。
// 未ログインの場合はpanicせずfalseを返す。
func (s *Session) HasRole(role model.Role) bool {
	return s.Current().HasRole(role)
}

// Credential は上流API呼び出しに添付する生のクレデンシャルを返す。
// 未ログインの場合は空文字列を返す。
func (s *Session) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.RawCredential
}
