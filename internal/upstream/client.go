// Package upstream はカタログ・注文APIゲートウェイのクライアントを提供する。
// Bearerクレデンシャルの添付、統一エラーフォーマットへの変換、
// 401応答時のクロスカッティングなクレデンシャル破棄通知を含む。
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/model"
)

// Caller はリクエスト単位の認証情報と認可失効時の処理を提供する。
// session.Sessionが実装する。
type Caller interface {
	// Credential は添付するBearerクレデンシャルを返す。未ログイン時は空文字列。
	Credential() string
	// CredentialRejected は上流が401を返した際に呼ばれる。
	// 実装は保存済みクレデンシャルを破棄し、以後のナビゲーションを
	// ログインビューへ向けなければならない。
	CredentialRejected(ctx context.Context)
}

// Client は上流APIゲートウェイへのHTTPクライアント。
// プロセス全体で共有され、ブラウザセッション単位の認証情報はBindで束縛する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLにはAPIゲートウェイのベースURLを指定する（例: "http://localhost:8083"）。
func NewClient(httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Bind は指定Callerの認証情報で上流を呼び出すBoundを返す。
func (c *Client) Bind(auth Caller) *Bound {
	return &Bound{client: c, auth: auth}
}

// Bound は1つのブラウザセッションの認証情報に束縛された上流APIビュー。
// カタログ・注文の各操作はこの型のメソッドとして提供される。
type Bound struct {
	client *Client
	auth   Caller
}

// errorBody は上流サービスのエラー応答に現れるフィールドの和集合。
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do は上流APIへの1リクエストを実行する。
// bodyがnil以外の場合はJSONとして送信し、outがnil以外の場合は応答をデコードする。
// 401応答はCaller.CredentialRejectedを起動した上でAUTH_EXPIREDとして返す。
// その他の非2xx応答はサーバーのメッセージを保持したREMOTE_ERRORとして返す。
func (b *Bound) do(ctx context.Context, service, method, path string, query url.Values, body, out any) error {
	reqURL := b.client.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build upstream request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred := b.auth.Credential(); cred != "" {
		req.Header.Set("Authorization", "Bearer "+cred)
	}

	start := time.Now()
	resp, err := b.client.httpClient.Do(req)
	b.client.metrics.RecordUpstreamLatency(service, time.Since(start))
	if err != nil {
		b.client.logger.Error("upstream call failed",
			slog.String("service", service),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("upstream call failed: %w", err)
	}
	defer resp.Body.Close()

	b.client.metrics.RecordUpstreamStatus(service, resp.StatusCode)

	// 401は呼び出し元のビューに関係なくプロセス全体の強制ログアウトを引き起こす
	if resp.StatusCode == http.StatusUnauthorized {
		b.client.metrics.RecordCredentialRejected()
		b.auth.CredentialRejected(ctx)
		return model.NewAuthExpiredError()
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read upstream response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		// エラーボディが読めなくても汎用メッセージで返す
		_ = json.Unmarshal(respBody, &eb)

		message := eb.Message
		if message == "" {
			message = eb.Error
		}

		b.client.logger.Warn("upstream returned error status",
			slog.String("service", service),
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return model.NewRemoteError(service, message)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse upstream response: %w", err)
		}
	}

	return nil
}
